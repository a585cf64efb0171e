package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Tournament represents a time-boxed trading contest
type Tournament struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Slug        string     `json:"slug" gorm:"uniqueIndex;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Rules       string     `json:"rules" gorm:"type:text"`
	StartAt     time.Time  `json:"start_at" gorm:"not null"`
	EndAt       *time.Time `json:"end_at,omitempty"` // nil = open-ended

	// Prize configuration. PrizePool is in whole currency units; keeping it
	// integral is what makes the derived schedule reconcile exactly.
	PrizePool      int64          `json:"prize_pool" gorm:"default:0"`
	WinnersCount   int            `json:"winners_count" gorm:"default:1"`
	PrizeBreakdown datatypes.JSON `json:"prize_breakdown,omitempty"` // ordered []PrizeTier, operator-set

	// AdminStatus is the operator flag; the effective status shown to readers
	// comes from EffectiveStatus, never from this field alone.
	AdminStatus AdminStatus `json:"admin_status" gorm:"type:varchar(16);default:'upcoming'"`

	SponsorName    string `json:"sponsor_name"`
	SponsorSiteURL string `json:"sponsor_site_url"`
	SponsorLogoURL string `json:"sponsor_logo_url"`
	BannerURL      string `json:"banner_url"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Calculated fields (not stored in DB)
	Status            TournamentStatus `json:"status,omitempty" gorm:"-"`
	ParticipantsCount int64            `json:"participants_count,omitempty" gorm:"-"`
	ApprovedCount     int64            `json:"approved_count,omitempty" gorm:"-"`
}

// PrizeTier is one rank's payout in a prize schedule.
type PrizeTier struct {
	Position int   `json:"position"`
	Amount   int64 `json:"amount"`
}

// EffectiveStatus derives the tournament's phase from its timestamps and the
// operator flag. The operator's "completed" always wins over the time window.
// This is the single authority for the precedence rule; call sites must not
// re-derive it.
func (t *Tournament) EffectiveStatus(now time.Time) TournamentStatus {
	if t.AdminStatus == AdminStatusCompleted {
		return TournamentStatusCompleted
	}
	if t.EndAt != nil && now.After(*t.EndAt) {
		return TournamentStatusCompleted
	}
	if !t.StartAt.After(now) {
		return TournamentStatusLive
	}
	return TournamentStatusUpcoming
}

// ExplicitBreakdown decodes the stored prize_breakdown JSON, ordered by
// position. Returns nil when no breakdown was set.
func (t *Tournament) ExplicitBreakdown() ([]PrizeTier, error) {
	if len(t.PrizeBreakdown) == 0 {
		return nil, nil
	}
	var tiers []PrizeTier
	if err := json.Unmarshal(t.PrizeBreakdown, &tiers); err != nil {
		return nil, fmt.Errorf("malformed prize_breakdown: %w", err)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Position < tiers[j].Position })
	return tiers, nil
}

// ValidatePrizeBreakdown checks an operator-supplied breakdown against the
// winners count: positions must be exactly the contiguous range 1..winners
// and amounts must not be negative. The sum is deliberately not checked
// against the pool; a mismatch is surfaced as a warning, not an error.
func ValidatePrizeBreakdown(tiers []PrizeTier, winners int) error {
	if len(tiers) != winners {
		return fmt.Errorf("prize breakdown has %d entries, winners_count is %d", len(tiers), winners)
	}
	seen := make(map[int]bool, len(tiers))
	for _, tier := range tiers {
		if tier.Position < 1 || tier.Position > winners {
			return fmt.Errorf("prize position %d outside 1..%d", tier.Position, winners)
		}
		if seen[tier.Position] {
			return fmt.Errorf("duplicate prize position %d", tier.Position)
		}
		seen[tier.Position] = true
		if tier.Amount < 0 {
			return fmt.Errorf("negative amount at position %d", tier.Position)
		}
	}
	return nil
}
