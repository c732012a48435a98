// Package workflow holds the training request state machine: the status
// graph of both approval paths, the role authority table and the routing of
// transition notifications. Everything here is pure and safe for concurrent use.
package workflow

import (
	"errors"
	"time"

	"github.com/lifemakers/pirates-api/internal/models"
)

var (
	// ErrInvalidTransition means the path/status pair has no defined step for the action.
	ErrInvalidTransition = errors.New("workflow: invalid transition")
	// ErrInvalidState means the request is already completed or rejected.
	ErrInvalidState = errors.New("workflow: request is finalized")
	// ErrUnauthorized means the acting role may not trigger the transition.
	ErrUnauthorized = errors.New("workflow: role not permitted")
	// ErrNoAudience means a reachable status has no notification route.
	ErrNoAudience = errors.New("workflow: no audience for status")
)

// Action is a caller-requested mutation of a request's status.
type Action string

const (
	ActionSubmit        Action = "submit"
	ActionAdvance       Action = "advance"
	ActionReject        Action = "reject"
	ActionAssignTrainer Action = "assign_trainer"
)

// Actor identifies who triggers a transition.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// TransitionEvent describes one committed status change.
type TransitionEvent struct {
	RequestID         string
	RequestTitle      string
	RequesterID       string
	AssignedTrainerID string
	FromStatus        models.TrainingStatus
	ToStatus          models.TrainingStatus
	Path              models.ApprovalPath
	Action            Action
	TriggeredByRole   models.UserRole
	TriggeredBy       string
	Timestamp         time.Time
}

// NewTransitionEvent captures the event for request after it moved away from `from`.
func NewTransitionEvent(req *models.TrainingRequest, from models.TrainingStatus, action Action, actor Actor) TransitionEvent {
	return TransitionEvent{
		RequestID:         req.ID,
		RequestTitle:      req.Title,
		RequesterID:       req.RequesterID,
		AssignedTrainerID: req.TrainerID(),
		FromStatus:        from,
		ToStatus:          req.Status,
		Path:              req.ApprovalPath,
		Action:            action,
		TriggeredByRole:   actor.Role,
		TriggeredBy:       actor.UserID,
		Timestamp:         req.UpdatedAt,
	}
}

// NotificationTask is the single notification produced for a transition.
// AudienceRole fans out to every active member of the role; RecipientIDs are
// notified directly.
type NotificationTask struct {
	AudienceRole     models.UserRole
	RecipientIDs     []string
	Title            string
	Body             string
	Type             models.NotificationType
	RelatedRequestID string
	Payload          map[string]interface{}
}
