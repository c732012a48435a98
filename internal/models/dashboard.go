package models

import "time"

// DashboardStats summarizes the training requests visible to one user.
type DashboardStats struct {
	UserID      string    `json:"user_id"`
	Total       int       `json:"total_requests"`
	Pending     int       `json:"pending_requests"`
	Completed   int       `json:"completed_requests"`
	Upcoming    int       `json:"upcoming_trainings"`
	GeneratedAt time.Time `json:"generated_at"`
}
