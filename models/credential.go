package models

import "time"

// Credential holds the broker demo-account login a registrant submits for
// verification. The investor password is view-only: it grants read access to
// the account, never trading. One row per (tournament, user); resubmission is
// refused once the registration has advanced past joined_pending.
//
// TODO: encrypt investor_password at rest once the key-management service
// exposes an envelope API.
type Credential struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_credential_tournament_user"`
	UserID       string `json:"user_id" gorm:"not null;uniqueIndex:idx_credential_tournament_user"`

	Platform         string           `json:"platform" gorm:"not null"` // e.g. "mt4", "mt5", "ctrader"
	Login            string           `json:"login" gorm:"not null"`
	InvestorPassword string           `json:"investor_password" gorm:"not null"`
	Server           string           `json:"server" gorm:"not null"`
	Status           CredentialStatus `json:"status" gorm:"type:varchar(16);default:'submitted'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
