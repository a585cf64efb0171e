package models

import "time"

// TraderProfile is a local snapshot of user data needed for tournaments.
// Owned solely by this service and populated by the profile sync worker from
// the identity service. Join preconditions read the gateway-asserted Identity,
// not this snapshot; the display fields here back leaderboards and the admin
// review queue.
type TraderProfile struct {
	ID             string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"`
	DisplayName    string  `gorm:"index;not null" json:"display_name"`
	Country        string  `json:"country,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`

	Banned        bool `json:"banned" gorm:"default:false"`
	EmailVerified bool `json:"email_verified" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
