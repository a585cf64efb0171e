package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fayyadalaas-cell/fxleagues-sub000/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResultService struct {
	DB *gorm.DB
}

func NewResultService(db *gorm.DB) *ResultService {
	return &ResultService{DB: db}
}

// ResultInput is one row of the final ranking an operator publishes.
type ResultInput struct {
	Rank    int                  `json:"rank"`
	UserID  string               `json:"user_id"`
	Pnl     int64                `json:"pnl"`
	Outcome models.ResultOutcome `json:"outcome"`
}

// PublishResults replaces a tournament's published ranking. Validation runs
// before any write: ranks must be unique and within 1..winners_count, and a
// user cannot occupy two ranks (the schema only enforces rank uniqueness).
func (s *ResultService) PublishResults(ctx context.Context, ident models.Identity, tournamentID string, inputs []ResultInput) ([]models.Result, error) {
	if !ident.IsOperator() {
		return nil, ErrForbidden
	}

	var tournament models.Tournament
	if err := s.DB.WithContext(ctx).First(&tournament, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one result is required", ErrInvalidInput)
	}
	seenRanks := make(map[int]bool, len(inputs))
	seenUsers := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if in.Rank < 1 || in.Rank > tournament.WinnersCount {
			return nil, fmt.Errorf("%w: rank %d outside 1..%d", ErrInvalidInput, in.Rank, tournament.WinnersCount)
		}
		if seenRanks[in.Rank] {
			return nil, fmt.Errorf("%w: duplicate rank %d", ErrInvalidInput, in.Rank)
		}
		seenRanks[in.Rank] = true
		if in.UserID == "" {
			return nil, fmt.Errorf("%w: user_id required on rank %d", ErrInvalidInput, in.Rank)
		}
		if seenUsers[in.UserID] {
			return nil, fmt.Errorf("%w: user %s occupies two ranks", ErrInvalidInput, in.UserID)
		}
		seenUsers[in.UserID] = true
	}

	results := make([]models.Result, 0, len(inputs))
	for _, in := range inputs {
		outcome := in.Outcome
		if outcome == "" {
			outcome = models.ResultOutcomeWinner
		}
		results = append(results, models.Result{
			ID:           uuid.NewString(),
			TournamentID: tournamentID,
			Rank:         in.Rank,
			UserID:       in.UserID,
			Pnl:          in.Pnl,
			Outcome:      outcome,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.Result{}).Error; err != nil {
			return err
		}
		for i := range results {
			if err := tx.Create(&results[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpsertResults handles PUT /admin/tournaments/:id/results
func (s *ResultService) UpsertResults(c *fiber.Ctx) error {
	ident, _ := c.Locals("identity").(models.Identity)

	var body struct {
		Results []ResultInput `json:"results"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	results, err := s.PublishResults(c.Context(), ident, c.Params("id"), body.Results)
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		case errors.Is(err, ErrInvalidInput):
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("ERROR publishing results for tournament %s: %v", c.Params("id"), err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to publish results"})
		}
	}
	return c.JSON(fiber.Map{"message": "results published", "results": results})
}

// GetLeaderboard handles GET /tournaments/:slug/leaderboard. Published
// results ordered by rank, with trader profile snapshots attached for
// display.
func (s *ResultService) GetLeaderboard(c *fiber.Ctx) error {
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var results []models.Result
	if err := s.DB.Where("tournament_id = ?", tournament.ID).
		Order("rank ASC").
		Find(&results).Error; err != nil {
		log.Printf("ERROR fetching results for tournament %s: %v", tournament.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	type LeaderboardRow struct {
		models.Result
		DisplayName string `json:"display_name,omitempty"`
		Country     string `json:"country,omitempty"`
	}

	rows := make([]LeaderboardRow, 0, len(results))
	for _, r := range results {
		row := LeaderboardRow{Result: r}
		var profile models.TraderProfile
		if err := s.DB.Where("external_user_id = ?", r.UserID).First(&profile).Error; err == nil {
			row.DisplayName = profile.DisplayName
			row.Country = profile.Country
		}
		rows = append(rows, row)
	}
	return c.JSON(fiber.Map{
		"tournament_id": tournament.ID,
		"slug":          tournament.Slug,
		"status":        tournament.EffectiveStatus(time.Now()),
		"leaderboard":   rows,
	})
}
