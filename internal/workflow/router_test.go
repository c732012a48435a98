package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/models"
)

func event(path models.ApprovalPath, from, to models.TrainingStatus) TransitionEvent {
	return TransitionEvent{
		RequestID:         "req-1",
		RequestTitle:      "Training request - Leadership",
		RequesterID:       "pdo-1",
		AssignedTrainerID: "tr-1",
		FromStatus:        from,
		ToStatus:          to,
		Path:              path,
		Action:            ActionAdvance,
		Timestamp:         time.Now(),
	}
}

func TestRouteAudienceFollowsNextActor(t *testing.T) {
	r := NewRouter(nil)
	cases := []struct {
		name     string
		path     models.ApprovalPath
		to       models.TrainingStatus
		audience models.UserRole
	}{
		{"submit standard", models.ApprovalPathStandard, models.StatusUnderReview, models.RoleDevelopmentManagementOfficer},
		{"cc approved", models.ApprovalPathStandard, models.StatusCCApproved, models.RoleProgramSupervisor},
		{"sv approved", models.ApprovalPathStandard, models.StatusSVApproved, models.RoleProjectManager},
		{"submit pm alternative", models.ApprovalPathPMAlternative, models.StatusSVApproved, models.RoleProgramSupervisor},
		{"pm approved standard", models.ApprovalPathStandard, models.StatusPMApproved, models.RoleTrainer},
		{"pm approved pm alternative", models.ApprovalPathPMAlternative, models.StatusPMApproved, models.RoleTrainer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task, err := r.Route(event(tc.path, "", tc.to))
			require.NoError(t, err)
			assert.Equal(t, tc.audience, task.AudienceRole)
			assert.Empty(t, task.RecipientIDs)
			assert.Equal(t, "req-1", task.RelatedRequestID)
			assert.Contains(t, task.Body, "Leadership")
		})
	}
}

func TestRoutePMApprovedOpensSelfAssignment(t *testing.T) {
	r := NewRouter(nil)
	for _, path := range []models.ApprovalPath{models.ApprovalPathStandard, models.ApprovalPathPMAlternative} {
		task, err := r.Route(event(path, models.StatusSVApproved, models.StatusPMApproved))
		require.NoError(t, err)
		assert.Equal(t, models.RoleTrainer, task.AudienceRole)
		assert.Contains(t, task.Body, "self-assignment")
	}
}

func TestRouteRequesterNotifications(t *testing.T) {
	r := NewRouter(nil)

	task, err := r.Route(event(models.ApprovalPathStandard, models.StatusPMApproved, models.StatusTrainerAssigned))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, task.AudienceRole)
	assert.Equal(t, []string{"pdo-1", "tr-1"}, task.RecipientIDs)
	assert.Equal(t, models.NotificationTypeTrainerAssigned, task.Type)

	task, err = r.Route(event(models.ApprovalPathPMAlternative, models.StatusTrainerAssigned, models.StatusCompleted))
	require.NoError(t, err)
	assert.Empty(t, task.AudienceRole)
	assert.Equal(t, []string{"pdo-1", "tr-1"}, task.RecipientIDs)

	ev := event(models.ApprovalPathStandard, models.StatusCCApproved, models.StatusRejected)
	ev.AssignedTrainerID = ""
	task, err = r.Route(ev)
	require.NoError(t, err)
	assert.Equal(t, []string{"pdo-1"}, task.RecipientIDs)
	assert.Equal(t, "Training request rejected", task.Title)
	assert.Equal(t, "cc_approved", task.Payload["from_status"])
}

func TestRouteUnmappedStatus(t *testing.T) {
	r := NewRouter(nil)
	_, err := r.Route(event(models.ApprovalPathPMAlternative, "", models.StatusCCApproved))
	assert.ErrorIs(t, err, ErrNoAudience)

	_, err = r.Route(event(models.ApprovalPathPMAlternative, "", models.StatusUnderReview))
	assert.ErrorIs(t, err, ErrNoAudience)
}

func TestEveryReachableStatusHasAudience(t *testing.T) {
	r := NewRouter(nil)
	g := NewStatusGraph()
	for _, path := range []models.ApprovalPath{models.ApprovalPathStandard, models.ApprovalPathPMAlternative} {
		for _, status := range g.Reachable(path) {
			_, err := r.Route(event(path, "", status))
			assert.NoError(t, err, "%s/%s", path, status)
		}
	}
}

