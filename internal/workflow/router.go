package workflow

import (
	"fmt"

	"github.com/lifemakers/pirates-api/internal/models"
)

type template struct {
	title string
	body  string
	kind  models.NotificationType
}

// Router derives the notification for a transition. The audience is whoever
// acts on the new status, taken from the authority table; completion and
// rejection go to the requester directly.
type Router struct {
	authority *Authority
	templates map[tier]template
}

// NewRouter builds a router that resolves audiences through authority.
func NewRouter(authority *Authority) *Router {
	if authority == nil {
		authority = NewAuthority(nil)
	}
	templates := map[tier]template{
		{models.ApprovalPathStandard, models.StatusUnderReview}: {
			title: "New training request",
			body:  "%s is awaiting review",
			kind:  models.NotificationTypeRequestSubmitted,
		},
		{models.ApprovalPathStandard, models.StatusCCApproved}: {
			title: "Training request approved",
			body:  "%s is awaiting supervisor approval",
			kind:  models.NotificationTypeStatusChanged,
		},
		{models.ApprovalPathStandard, models.StatusSVApproved}: {
			title: "Training request approved",
			body:  "%s is awaiting project-manager approval",
			kind:  models.NotificationTypeStatusChanged,
		},
		{models.ApprovalPathPMAlternative, models.StatusSVApproved}: {
			title: "New training request",
			body:  "%s was submitted by a project manager and is awaiting supervisor approval",
			kind:  models.NotificationTypeRequestSubmitted,
		},
	}
	for _, path := range []models.ApprovalPath{models.ApprovalPathStandard, models.ApprovalPathPMAlternative} {
		templates[tier{path, models.StatusPMApproved}] = template{
			title: "Training open for assignment",
			body:  "%s is approved and open for trainer self-assignment",
			kind:  models.NotificationTypeStatusChanged,
		}
		templates[tier{path, models.StatusTrainerAssigned}] = template{
			title: "Trainer assigned",
			body:  "A trainer has been assigned to %s",
			kind:  models.NotificationTypeTrainerAssigned,
		}
		templates[tier{path, models.StatusCompleted}] = template{
			title: "Training completed",
			body:  "%s has been completed",
			kind:  models.NotificationTypeRequestCompleted,
		}
		templates[tier{path, models.StatusRejected}] = template{
			title: "Training request rejected",
			body:  "%s was rejected",
			kind:  models.NotificationTypeRequestRejected,
		}
	}
	return &Router{authority: authority, templates: templates}
}

// Route returns the notification task for event, or ErrNoAudience when the
// new status has no route on the event's path.
func (r *Router) Route(event TransitionEvent) (*NotificationTask, error) {
	tpl, ok := r.templates[tier{event.Path, event.ToStatus}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoAudience, event.Path, event.ToStatus)
	}

	task := &NotificationTask{
		Title:            tpl.title,
		Body:             fmt.Sprintf(tpl.body, subject(event)),
		Type:             tpl.kind,
		RelatedRequestID: event.RequestID,
		Payload: map[string]interface{}{
			"request_id":    event.RequestID,
			"from_status":   string(event.FromStatus),
			"to_status":     string(event.ToStatus),
			"approval_path": string(event.Path),
			"action":        string(event.Action),
		},
	}

	switch event.ToStatus {
	case models.StatusTrainerAssigned:
		task.AudienceRole = models.RoleAdmin
		task.RecipientIDs = recipients(event.RequesterID, event.AssignedTrainerID)
		task.Payload["trainer_id"] = event.AssignedTrainerID
	case models.StatusCompleted:
		task.RecipientIDs = recipients(event.RequesterID, event.AssignedTrainerID)
	case models.StatusRejected:
		task.RecipientIDs = recipients(event.RequesterID)
	default:
		role, ok := r.authority.Advancer(event.Path, event.ToStatus)
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrNoAudience, event.Path, event.ToStatus)
		}
		task.AudienceRole = role
	}

	if task.AudienceRole == "" && len(task.RecipientIDs) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoAudience, event.Path, event.ToStatus)
	}
	return task, nil
}

func subject(event TransitionEvent) string {
	if event.RequestTitle != "" {
		return fmt.Sprintf("Training request %q", event.RequestTitle)
	}
	return "A training request"
}

func recipients(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
