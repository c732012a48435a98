package models

import "time"

// ApprovalPath selects which status sequence a request follows. Fixed at creation.
type ApprovalPath string

const (
	ApprovalPathStandard      ApprovalPath = "standard"
	ApprovalPathPMAlternative ApprovalPath = "pm_alternative"
)

// Valid reports whether p is a known path.
func (p ApprovalPath) Valid() bool {
	return p == ApprovalPathStandard || p == ApprovalPathPMAlternative
}

// TrainingStatus is the persisted workflow state of a training request.
type TrainingStatus string

const (
	StatusUnderReview     TrainingStatus = "under_review"
	StatusCCApproved      TrainingStatus = "cc_approved"
	StatusSVApproved      TrainingStatus = "sv_approved"
	StatusPMApproved      TrainingStatus = "pm_approved"
	StatusTrainerAssigned TrainingStatus = "tr_assigned"
	StatusCompleted       TrainingStatus = "completed"
	StatusRejected        TrainingStatus = "rejected"
)

// TrainingRequest is the record driven through the approval workflow.
type TrainingRequest struct {
	ID                string         `db:"id" json:"id"`
	Title             string         `db:"title" json:"title"`
	Description       *string        `db:"description" json:"description,omitempty"`
	RequesterID       string         `db:"requester_id" json:"requester_id"`
	RequesterRole     UserRole       `db:"requester_role" json:"requester_role"`
	ApprovalPath      ApprovalPath   `db:"approval_path" json:"approval_path"`
	Status            TrainingStatus `db:"status" json:"status"`
	AssignedTrainerID *string        `db:"assigned_trainer_id" json:"assigned_trainer_id,omitempty"`
	Specialization    string         `db:"specialization" json:"specialization"`
	Province          string         `db:"province" json:"province"`
	Center            *string        `db:"center" json:"center,omitempty"`
	RequestedDate     time.Time      `db:"requested_date" json:"requested_date"`
	DurationHours     int            `db:"duration_hours" json:"duration_hours"`
	MaxParticipants   int            `db:"max_participants" json:"max_participants"`
	Notes             *string        `db:"notes" json:"notes,omitempty"`
	RejectionReason   *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Version           int            `db:"version" json:"version"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// TrainerID returns the assigned trainer or an empty string.
func (r *TrainingRequest) TrainerID() string {
	if r == nil || r.AssignedTrainerID == nil {
		return ""
	}
	return *r.AssignedTrainerID
}

// TrainingRequestFilter narrows list queries.
type TrainingRequestFilter struct {
	RequesterID string
	TrainerID   string
	Statuses    []TrainingStatus
	NotStatuses []TrainingStatus
	Path        ApprovalPath
	Province    string
	Search      string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// TransitionUpdate is the single compare-and-swap write applied by the workflow engine.
type TransitionUpdate struct {
	ID                string         `db:"id"`
	ExpectedVersion   int            `db:"expected_version"`
	Status            TrainingStatus `db:"status"`
	AssignedTrainerID *string        `db:"assigned_trainer_id"`
	RejectionReason   *string        `db:"rejection_reason"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

// CalendarEvent is a scheduled training rendered on the calendar view.
type CalendarEvent struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Date           string         `json:"date"`
	Status         TrainingStatus `json:"status"`
	Specialization string         `json:"specialization"`
	Province       string         `json:"province"`
	DurationHours  int            `json:"duration_hours"`
	TrainerID      *string        `json:"trainer_id,omitempty"`
}

// CalendarDay groups calendar events sharing the same date.
type CalendarDay struct {
	Date   string          `json:"date"`
	Events []CalendarEvent `json:"events"`
}
