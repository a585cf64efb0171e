package models

import "time"

// Registration tracks a user's participation in a tournament through a fixed
// forward-only state machine: joined_pending → pending_review → approved |
// rejected. At most one row may exist per (tournament, user); the composite
// unique index is what resolves concurrent join races.
type Registration struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_registration_tournament_user"`
	UserID       string `json:"user_id" gorm:"not null;uniqueIndex:idx_registration_tournament_user"`

	Status           RegistrationStatus `json:"status" gorm:"type:varchar(16);default:'joined_pending'"`
	DetailsSubmitted bool               `json:"details_submitted" gorm:"default:false"`
	RegisteredAt     time.Time          `json:"registered_at" gorm:"autoCreateTime"`

	// Decision metadata, stamped by the conditional admin update.
	DecidedBy *string    `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// Decided reports whether the registration reached a terminal state.
func (r *Registration) Decided() bool {
	return r.Status == RegistrationStatusApproved || r.Status == RegistrationStatusRejected
}
