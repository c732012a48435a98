package dto

import "github.com/lifemakers/pirates-api/internal/models"

// SubmitTrainingRequest is the payload for creating a training request.
// RequestedDate uses the YYYY-MM-DD layout.
type SubmitTrainingRequest struct {
	Specialization  string `json:"specialization" validate:"required,max=120"`
	Province        string `json:"province" validate:"required,max=120"`
	Center          string `json:"center" validate:"omitempty,max=120"`
	Description     string `json:"description" validate:"omitempty,max=2000"`
	RequestedDate   string `json:"requestedDate" validate:"required,datetime=2006-01-02"`
	DurationHours   int    `json:"durationHours" validate:"required,min=1,max=200"`
	MaxParticipants int    `json:"maxParticipants" validate:"required,min=1,max=1000"`
	Notes           string `json:"notes" validate:"omitempty,max=2000"`
}

// RejectTrainingRequest carries an optional rejection reason.
type RejectTrainingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// AssignTrainerRequest names the trainer to assign. Trainers may omit it to assign themselves.
type AssignTrainerRequest struct {
	TrainerID string `json:"trainerId" validate:"omitempty,uuid"`
}

// TrainingRequestQuery mirrors supported listing filters.
type TrainingRequestQuery struct {
	Status    []models.TrainingStatus
	Path      models.ApprovalPath
	Province  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CalendarQuery bounds the calendar view; both dates use YYYY-MM-DD.
type CalendarQuery struct {
	From string `form:"from" validate:"required,datetime=2006-01-02"`
	To   string `form:"to" validate:"required,datetime=2006-01-02"`
}

// ExportQuery selects the export encoding and optional filters.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf xlsx"`
	TrainingRequestQuery
}
