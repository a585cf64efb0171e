package models

import "time"

// Result is one published final ranking entry. Rank is unique within a
// tournament at the store level; "same user on two ranks" is validated at
// publish time instead (the schema cannot express it).
type Result struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_result_tournament_rank"`
	Rank         int    `json:"rank" gorm:"not null;uniqueIndex:idx_result_tournament_rank"`
	UserID       string `json:"user_id" gorm:"not null;index"`

	// Pnl is the contestant's closing profit/loss in whole currency units.
	Pnl     int64         `json:"pnl"`
	Outcome ResultOutcome `json:"outcome" gorm:"type:varchar(16);default:'winner'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
