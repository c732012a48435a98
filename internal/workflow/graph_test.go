package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/models"
)

func TestPathForRole(t *testing.T) {
	for _, role := range models.AllRoles() {
		want := models.ApprovalPathStandard
		if role == models.RoleProjectManager {
			want = models.ApprovalPathPMAlternative
		}
		assert.Equal(t, want, PathForRole(role), role)
	}
}

func TestInitialStatus(t *testing.T) {
	g := NewStatusGraph()

	status, ok := g.InitialStatus(models.ApprovalPathStandard)
	require.True(t, ok)
	assert.Equal(t, models.StatusUnderReview, status)

	status, ok = g.InitialStatus(models.ApprovalPathPMAlternative)
	require.True(t, ok)
	assert.Equal(t, models.StatusSVApproved, status)

	_, ok = g.InitialStatus("unknown")
	assert.False(t, ok)
}

func TestNextStatus(t *testing.T) {
	g := NewStatusGraph()
	cases := []struct {
		name   string
		path   models.ApprovalPath
		status models.TrainingStatus
		want   models.TrainingStatus
		ok     bool
	}{
		{"standard review", models.ApprovalPathStandard, models.StatusUnderReview, models.StatusCCApproved, true},
		{"standard cc", models.ApprovalPathStandard, models.StatusCCApproved, models.StatusSVApproved, true},
		{"standard sv", models.ApprovalPathStandard, models.StatusSVApproved, models.StatusPMApproved, true},
		{"standard pm", models.ApprovalPathStandard, models.StatusPMApproved, models.StatusTrainerAssigned, true},
		{"standard assigned", models.ApprovalPathStandard, models.StatusTrainerAssigned, models.StatusCompleted, true},
		{"pm alt sv", models.ApprovalPathPMAlternative, models.StatusSVApproved, models.StatusPMApproved, true},
		{"pm alt pm", models.ApprovalPathPMAlternative, models.StatusPMApproved, models.StatusTrainerAssigned, true},
		{"pm alt assigned", models.ApprovalPathPMAlternative, models.StatusTrainerAssigned, models.StatusCompleted, true},
		{"pm alt has no review", models.ApprovalPathPMAlternative, models.StatusUnderReview, "", false},
		{"pm alt has no cc", models.ApprovalPathPMAlternative, models.StatusCCApproved, "", false},
		{"completed", models.ApprovalPathStandard, models.StatusCompleted, "", false},
		{"rejected", models.ApprovalPathPMAlternative, models.StatusRejected, "", false},
		{"unknown path", "legacy", models.StatusUnderReview, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := g.NextStatus(tc.path, tc.status)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReachableStatusesAreValid(t *testing.T) {
	g := NewStatusGraph()
	for _, path := range []models.ApprovalPath{models.ApprovalPathStandard, models.ApprovalPathPMAlternative} {
		reachable := g.Reachable(path)
		require.NotEmpty(t, reachable)
		for _, status := range reachable {
			assert.True(t, g.IsValidStatus(path, status), "%s/%s", path, status)
		}
	}
	assert.NotContains(t, g.Reachable(models.ApprovalPathPMAlternative), models.StatusUnderReview)
	assert.NotContains(t, g.Reachable(models.ApprovalPathPMAlternative), models.StatusCCApproved)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.StatusCompleted))
	assert.True(t, IsTerminal(models.StatusRejected))
	assert.False(t, IsTerminal(models.StatusTrainerAssigned))
}

func TestStatusesReturnsCopy(t *testing.T) {
	g := NewStatusGraph()
	seq := g.Statuses(models.ApprovalPathStandard)
	seq[0] = models.StatusCompleted
	status, _ := g.InitialStatus(models.ApprovalPathStandard)
	assert.Equal(t, models.StatusUnderReview, status)
}
