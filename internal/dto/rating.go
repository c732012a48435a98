package dto

// CreateRatingRequest captures a requester's review of a completed training.
type CreateRatingRequest struct {
	OverallRating       int    `json:"overallRating" validate:"required,min=1,max=5"`
	ContentQuality      int    `json:"contentQuality" validate:"required,min=1,max=5"`
	DeliveryQuality     int    `json:"deliveryQuality" validate:"required,min=1,max=5"`
	InteractionQuality  int    `json:"interactionQuality" validate:"required,min=1,max=5"`
	OrganizationQuality int    `json:"organizationQuality" validate:"required,min=1,max=5"`
	ReviewText          string `json:"reviewText" validate:"omitempty,max=2000"`
	IsAnonymous         bool   `json:"isAnonymous"`
}
