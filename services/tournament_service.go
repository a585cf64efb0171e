package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fayyadalaas-cell/fxleagues-sub000/models"
	"github.com/fayyadalaas-cell/fxleagues-sub000/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TournamentService struct {
	DB *gorm.DB
}

func NewTournamentService(db *gorm.DB) *TournamentService {
	return &TournamentService{DB: db}
}

// tournamentView is the read shape for detail responses: the stored row plus
// the computed status, derived counts and the effective prize schedule.
type tournamentView struct {
	models.Tournament
	PrizeSchedule    PrizeSchedule `json:"prize_schedule"`
	PrizePoolDisplay string        `json:"prize_pool_display"`
	// PrizeSumWarning is true when the operator's explicit breakdown does not
	// add up to the pool. Allowed, but surfaced so the editor can see it.
	PrizeSumWarning bool `json:"prize_sum_warning"`
}

func (s *TournamentService) buildView(t models.Tournament) (tournamentView, error) {
	s.decorate(&t)
	explicit, err := t.ExplicitBreakdown()
	if err != nil {
		return tournamentView{}, err
	}
	schedule := ComputePrizeSchedule(t.PrizePool, t.WinnersCount, explicit)
	return tournamentView{
		Tournament:       t,
		PrizeSchedule:    schedule,
		PrizePoolDisplay: utils.FormatAmount(t.PrizePool),
		PrizeSumWarning:  !schedule.SumMatchesPool,
	}, nil
}

// decorate fills the calculated fields. Counts are always derived by counting
// rows, never cached on the tournament.
func (s *TournamentService) decorate(t *models.Tournament) {
	t.Status = t.EffectiveStatus(time.Now())

	s.DB.Model(&models.Registration{}).
		Where("tournament_id = ?", t.ID).
		Count(&t.ParticipantsCount)
	s.DB.Model(&models.Registration{}).
		Where("tournament_id = ? AND status = ?", t.ID, models.RegistrationStatusApproved).
		Count(&t.ApprovedCount)
}

// parseBreakdownForm parses and validates the prize_breakdown form field.
// An empty field means "derive the default split".
func parseBreakdownForm(raw string, winners int) (datatypes.JSON, error) {
	if raw == "" {
		return nil, nil
	}
	var tiers []models.PrizeTier
	if err := json.Unmarshal([]byte(raw), &tiers); err != nil {
		return nil, fmt.Errorf("prize_breakdown must be a JSON array of {position, amount}: %w", err)
	}
	if err := models.ValidatePrizeBreakdown(tiers, winners); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(tiers)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

// CreateTournament handles POST /admin/tournaments (multipart form).
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	ident, _ := c.Locals("identity").(models.Identity)
	if !ident.IsOperator() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "operator role required"})
	}

	title := c.FormValue("title")
	startAtStr := c.FormValue("start_at")
	if title == "" || startAtStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "title and start_at are required"})
	}

	startAt, err := time.Parse(time.RFC3339, startAtStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_at (use RFC3339)"})
	}

	var endAt *time.Time
	if v := c.FormValue("end_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid end_at (use RFC3339)"})
		}
		if !t.After(startAt) {
			return c.Status(400).JSON(fiber.Map{"error": "end_at must be after start_at"})
		}
		endAt = &t
	}

	prizePool := int64(0)
	if v := c.FormValue("prize_pool"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			prizePool = n
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "prize_pool must be a non-negative integer amount"})
		}
	}

	winnersCount := 1
	if v := c.FormValue("winners_count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 50 {
			winnersCount = n
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "winners_count must be between 1 and 50"})
		}
	}

	breakdown, err := parseBreakdownForm(c.FormValue("prize_breakdown"), winnersCount)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	adminStatus := models.AdminStatusUpcoming
	if v := c.FormValue("admin_status"); v != "" {
		if v != string(models.AdminStatusUpcoming) && v != string(models.AdminStatusCompleted) {
			return c.Status(400).JSON(fiber.Map{"error": "admin_status must be 'upcoming' or 'completed'"})
		}
		adminStatus = models.AdminStatus(v)
	}

	tournamentSlug := slug.Make(title)
	var clash int64
	s.DB.Model(&models.Tournament{}).Where("slug = ?", tournamentSlug).Count(&clash)
	if clash > 0 {
		tournamentSlug = fmt.Sprintf("%s-%s", tournamentSlug, uuid.NewString()[:8])
	}

	tournament := &models.Tournament{
		ID:             uuid.NewString(),
		Slug:           tournamentSlug,
		Title:          title,
		Description:    c.FormValue("description"),
		Rules:          c.FormValue("rules"),
		StartAt:        startAt,
		EndAt:          endAt,
		PrizePool:      prizePool,
		WinnersCount:   winnersCount,
		PrizeBreakdown: breakdown,
		AdminStatus:    adminStatus,
		SponsorName:    c.FormValue("sponsor_name"),
		SponsorSiteURL: c.FormValue("sponsor_site_url"),
	}

	// Optional sponsor logo and banner go to object storage.
	if logo, err := c.FormFile("sponsor_logo"); err == nil && logo.Size > 0 {
		ext := filepath.Ext(logo.Filename)
		if ext == "" {
			ext = ".png"
		}
		url, err := utils.UploadToBucket(logo, "tournaments/sponsors/"+uuid.NewString()+ext)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload sponsor logo"})
		}
		tournament.SponsorLogoURL = url
	}
	if banner, err := c.FormFile("banner"); err == nil && banner.Size > 0 {
		ext := filepath.Ext(banner.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		url, err := utils.UploadToBucket(banner, "tournaments/banners/"+uuid.NewString()+ext)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload banner"})
		}
		tournament.BannerURL = url
	}

	if err := s.DB.Create(tournament).Error; err != nil {
		log.Printf("ERROR creating tournament: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	view, err := s.buildView(*tournament)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to build response"})
	}
	return c.Status(201).JSON(view)
}

// ListTournaments handles GET /tournaments. Status is computed per row at
// read time; ?status=live|upcoming|completed filters on the effective phase,
// not the stored flag.
func (s *TournamentService) ListTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	if err := s.DB.Order("start_at DESC").Find(&tournaments).Error; err != nil {
		log.Printf("ERROR fetching tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}

	filter := c.Query("status")
	now := time.Now()
	out := make([]models.Tournament, 0, len(tournaments))
	for _, t := range tournaments {
		t.Status = t.EffectiveStatus(now)
		if filter != "" && string(t.Status) != filter {
			continue
		}
		s.DB.Model(&models.Registration{}).
			Where("tournament_id = ?", t.ID).
			Count(&t.ParticipantsCount)
		out = append(out, t)
	}
	return c.JSON(out)
}

// GetTournamentBySlug handles GET /tournaments/:slug
func (s *TournamentService) GetTournamentBySlug(c *fiber.Ctx) error {
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		log.Printf("ERROR fetching tournament %s: %v", c.Params("slug"), err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	view, err := s.buildView(tournament)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "stored prize breakdown is malformed"})
	}
	return c.JSON(view)
}

// GetTournamentByID handles GET /admin/tournaments/:id
func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	view, err := s.buildView(tournament)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "stored prize breakdown is malformed"})
	}
	return c.JSON(view)
}

// UpdateTournament handles PUT /admin/tournaments/:id (multipart form).
func (s *TournamentService) UpdateTournament(c *fiber.Ctx) error {
	ident, _ := c.Locals("identity").(models.Identity)
	if !ident.IsOperator() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "operator role required"})
	}

	id := c.Params("id")
	var existing models.Tournament
	if err := s.DB.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		log.Printf("DB error fetching tournament %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	updates := map[string]interface{}{}

	if v := c.FormValue("title"); v != "" {
		updates["title"] = v
	}
	if v := c.FormValue("description"); v != "" {
		updates["description"] = v
	}
	if v := c.FormValue("rules"); v != "" {
		updates["rules"] = v
	}
	if v := c.FormValue("sponsor_name"); v != "" {
		updates["sponsor_name"] = v
	}
	if v := c.FormValue("sponsor_site_url"); v != "" {
		updates["sponsor_site_url"] = v
	}

	startAt := existing.StartAt
	if v := c.FormValue("start_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid start_at (use RFC3339)"})
		}
		startAt = t
		updates["start_at"] = t
	}
	if v := c.FormValue("end_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid end_at (use RFC3339)"})
		}
		if !t.After(startAt) {
			return c.Status(400).JSON(fiber.Map{"error": "end_at must be after start_at"})
		}
		updates["end_at"] = t
	}

	if v := c.FormValue("prize_pool"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "prize_pool must be a non-negative integer amount"})
		}
		updates["prize_pool"] = n
	}

	winnersCount := existing.WinnersCount
	if v := c.FormValue("winners_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			return c.Status(400).JSON(fiber.Map{"error": "winners_count must be between 1 and 50"})
		}
		winnersCount = n
		updates["winners_count"] = n
	}

	if v := c.FormValue("prize_breakdown"); v != "" {
		breakdown, err := parseBreakdownForm(v, winnersCount)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		updates["prize_breakdown"] = breakdown
	} else if winnersCount != existing.WinnersCount {
		// A winners_count change must not strand a stored explicit breakdown
		// with the wrong number of positions.
		stored, err := existing.ExplicitBreakdown()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "stored prize breakdown is malformed"})
		}
		if len(stored) > 0 {
			if err := models.ValidatePrizeBreakdown(stored, winnersCount); err != nil {
				return c.Status(400).JSON(fiber.Map{
					"error": "winners_count conflicts with the stored prize_breakdown; supply a matching prize_breakdown in the same request",
				})
			}
		}
	}

	if v := c.FormValue("admin_status"); v != "" {
		if v != string(models.AdminStatusUpcoming) && v != string(models.AdminStatusCompleted) {
			return c.Status(400).JSON(fiber.Map{"error": "admin_status must be 'upcoming' or 'completed'"})
		}
		updates["admin_status"] = v
	}

	if logo, err := c.FormFile("sponsor_logo"); err == nil && logo.Size > 0 {
		ext := filepath.Ext(logo.Filename)
		if ext == "" {
			ext = ".png"
		}
		url, err := utils.UploadToBucket(logo, "tournaments/sponsors/"+uuid.NewString()+ext)
		if err != nil {
			log.Printf("ERROR uploading sponsor logo for tournament %s: %v", id, err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload sponsor logo"})
		}
		updates["sponsor_logo_url"] = url
	}
	if banner, err := c.FormFile("banner"); err == nil && banner.Size > 0 {
		ext := filepath.Ext(banner.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		url, err := utils.UploadToBucket(banner, "tournaments/banners/"+uuid.NewString()+ext)
		if err != nil {
			log.Printf("ERROR uploading banner for tournament %s: %v", id, err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload banner"})
		}
		updates["banner_url"] = url
	}

	if len(updates) > 0 {
		if err := s.DB.Model(&existing).Updates(updates).Error; err != nil {
			log.Printf("ERROR updating tournament %s: %v", id, err)
			return c.Status(500).JSON(fiber.Map{"error": "update failed"})
		}
	}

	if err := s.DB.First(&existing, "id = ?", id).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to refetch tournament"})
	}
	view, err := s.buildView(existing)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "stored prize breakdown is malformed"})
	}
	return c.JSON(view)
}

// DeleteTournament handles DELETE /admin/tournaments/:id. Hard delete, with
// dependent rows removed in the same transaction.
func (s *TournamentService) DeleteTournament(c *fiber.Ctx) error {
	ident, _ := c.Locals("identity").(models.Identity)
	if !ident.IsOperator() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "operator role required"})
	}

	id := c.Params("id")
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tournament_id = ?", id).Delete(&models.Credential{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&models.Result{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Tournament{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(404, "tournament not found")
		}
		return c.JSON(fiber.Map{"message": "tournament deleted"})
	})
}
