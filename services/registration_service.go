package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fayyadalaas-cell/fxleagues-sub000/metrics"
	"github.com/fayyadalaas-cell/fxleagues-sub000/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegistrationService struct {
	DB *gorm.DB
}

func NewRegistrationService(db *gorm.DB) *RegistrationService {
	return &RegistrationService{DB: db}
}

// JoinResult is the structured outcome of a join attempt. AlreadyRegistered
// distinguishes the duplicate case from a genuine failure — a second join is
// not an error from the caller's perspective.
type JoinResult struct {
	Registration      models.Registration `json:"registration"`
	AlreadyRegistered bool                `json:"already_registered"`
}

// DecideResult is the structured outcome of an admin decision. Applied is
// false when the conditional update matched no pending row (someone else
// decided first, or the registrant never reached review).
type DecideResult struct {
	Applied      bool                 `json:"applied"`
	Registration *models.Registration `json:"registration,omitempty"`
}

// CredentialInput carries the view-only broker login a registrant submits.
type CredentialInput struct {
	Platform         string `json:"platform"`
	Login            string `json:"login"`
	InvestorPassword string `json:"investor_password"`
	Server           string `json:"server"`
}

func (in CredentialInput) validate() error {
	if in.Platform == "" || in.Login == "" || in.InvestorPassword == "" || in.Server == "" {
		return ErrInvalidInput
	}
	return nil
}

// Join registers the caller for a tournament. The uniqueness constraint on
// (tournament_id, user_id) is the sole guard against concurrent joins: the
// losing insert surfaces as a duplicate-key error and is mapped to an
// already-registered outcome. No counters are written — participant counts
// are always derived by counting rows.
func (s *RegistrationService) Join(ctx context.Context, ident models.Identity, tournamentID string) (JoinResult, error) {
	if !ident.SignedIn() {
		return JoinResult{}, ErrNotSignedIn
	}
	if ident.Banned {
		return JoinResult{}, ErrBanned
	}

	var tournament models.Tournament
	if err := s.DB.WithContext(ctx).First(&tournament, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return JoinResult{}, ErrNotFound
		}
		return JoinResult{}, err
	}
	if tournament.EffectiveStatus(time.Now()) == models.TournamentStatusCompleted {
		return JoinResult{}, ErrTournamentClosed
	}

	reg := models.Registration{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       ident.UserID,
		Status:       models.RegistrationStatusJoined,
	}
	if err := s.DB.WithContext(ctx).Create(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Registration
			if err := s.DB.WithContext(ctx).
				Where("tournament_id = ? AND user_id = ?", tournamentID, ident.UserID).
				First(&existing).Error; err != nil {
				return JoinResult{}, err
			}
			metrics.DuplicateJoins.Inc()
			return JoinResult{Registration: existing, AlreadyRegistered: true}, nil
		}
		return JoinResult{}, err
	}

	metrics.Joins.Inc()
	return JoinResult{Registration: reg}, nil
}

// SubmitCredentials upserts the caller's broker credential (one per user per
// tournament) and advances the registration to pending_review. Both writes
// run in one transaction so a partial failure can never leave credentials
// saved against a registration still in joined_pending; once the registration
// has advanced, further submits are refused, so the upsert clause only
// resolves retries of a submit that never committed.
func (s *RegistrationService) SubmitCredentials(ctx context.Context, ident models.Identity, tournamentID string, in CredentialInput) (*models.Registration, error) {
	if !ident.SignedIn() {
		return nil, ErrNotSignedIn
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var reg models.Registration
	if err := s.DB.WithContext(ctx).
		Where("tournament_id = ? AND user_id = ?", tournamentID, ident.UserID).
		First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotJoined
		}
		return nil, err
	}
	if reg.Status != models.RegistrationStatusJoined {
		return nil, ErrAlreadySubmitted
	}

	cred := models.Credential{
		ID:               uuid.NewString(),
		TournamentID:     tournamentID,
		UserID:           ident.UserID,
		Platform:         in.Platform,
		Login:            in.Login,
		InvestorPassword: in.InvestorPassword,
		Server:           in.Server,
		Status:           models.CredentialStatusSubmitted,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tournament_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"platform", "login", "investor_password", "server", "status", "updated_at",
			}),
		}).Create(&cred).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Registration{}).
			Where("id = ? AND status = ?", reg.ID, models.RegistrationStatusJoined).
			Updates(map[string]interface{}{
				"status":            models.RegistrationStatusPendingReview,
				"details_submitted": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Advanced by a concurrent submit; roll the credential write back
			// with it and report the state conflict.
			return ErrAlreadySubmitted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CredentialSubmissions.Inc()
	reg.Status = models.RegistrationStatusPendingReview
	reg.DetailsSubmitted = true
	return &reg, nil
}

// Decide applies a terminal approve/reject as a conditional write: the row
// must still be pending_review for the update to match. A lost race is a
// no-op outcome, never retried and never an error.
func (s *RegistrationService) Decide(ctx context.Context, ident models.Identity, registrationID string, approve bool) (DecideResult, error) {
	if !ident.IsOperator() {
		return DecideResult{}, ErrForbidden
	}

	newStatus := models.RegistrationStatusRejected
	if approve {
		newStatus = models.RegistrationStatusApproved
	}
	now := time.Now()

	res := s.DB.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status = ?", registrationID, models.RegistrationStatusPendingReview).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"decided_by": ident.UserID,
			"decided_at": now,
		})
	if res.Error != nil {
		return DecideResult{}, res.Error
	}

	var reg models.Registration
	if err := s.DB.WithContext(ctx).First(&reg, "id = ?", registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DecideResult{}, ErrNotFound
		}
		return DecideResult{}, err
	}

	if res.RowsAffected == 0 {
		metrics.DecisionsLost.Inc()
		return DecideResult{Applied: false, Registration: &reg}, nil
	}

	metrics.DecisionsApplied.Inc()
	return DecideResult{Applied: true, Registration: &reg}, nil
}

// GetRegistration returns the caller's registration for a tournament, or
// ErrNotFound when no row exists (the NONE state).
func (s *RegistrationService) GetRegistration(ctx context.Context, ident models.Identity, tournamentID string) (*models.Registration, error) {
	if !ident.SignedIn() {
		return nil, ErrNotSignedIn
	}
	var reg models.Registration
	if err := s.DB.WithContext(ctx).
		Where("tournament_id = ? AND user_id = ?", tournamentID, ident.UserID).
		First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// ---- Fiber handlers ----

// JoinTournament handles POST /tournaments/:id/join
func (s *RegistrationService) JoinTournament(c *fiber.Ctx) error {
	ident := identityFromCtx(c)

	result, err := s.Join(c.Context(), ident, c.Params("id"))
	if err != nil {
		return registrationError(c, err)
	}
	if result.AlreadyRegistered {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"outcome":      "already_registered",
			"registration": result.Registration,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"outcome":      "registered",
		"registration": result.Registration,
	})
}

// SubmitTournamentCredentials handles POST /tournaments/:id/credentials
func (s *RegistrationService) SubmitTournamentCredentials(c *fiber.Ctx) error {
	ident := identityFromCtx(c)

	var in CredentialInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	reg, err := s.SubmitCredentials(c.Context(), ident, c.Params("id"), in)
	if err != nil {
		return registrationError(c, err)
	}
	return c.JSON(fiber.Map{
		"outcome":      "credentials_submitted",
		"registration": reg,
	})
}

// GetMyRegistration handles GET /tournaments/:id/registration
func (s *RegistrationService) GetMyRegistration(c *fiber.Ctx) error {
	ident := identityFromCtx(c)

	reg, err := s.GetRegistration(c.Context(), ident, c.Params("id"))
	if err != nil {
		return registrationError(c, err)
	}
	return c.JSON(reg)
}

// ListPendingRegistrations handles GET /admin/tournaments/:id/registrations.
// It returns the review queue with each registrant's submitted credential and
// profile snapshot attached.
func (s *RegistrationService) ListPendingRegistrations(c *fiber.Ctx) error {
	ident := identityFromCtx(c)
	if !ident.IsOperator() {
		return registrationError(c, ErrForbidden)
	}

	tournamentID := c.Params("id")
	statusFilter := c.Query("status", string(models.RegistrationStatusPendingReview))

	var regs []models.Registration
	if err := s.DB.Where("tournament_id = ? AND status = ?", tournamentID, statusFilter).
		Order("registered_at ASC").
		Find(&regs).Error; err != nil {
		log.Printf("ERROR fetching registrations for tournament %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch registrations"})
	}

	type ReviewEntry struct {
		Registration models.Registration   `json:"registration"`
		Credential   *models.Credential    `json:"credential,omitempty"`
		Profile      *models.TraderProfile `json:"profile,omitempty"`
	}

	entries := make([]ReviewEntry, 0, len(regs))
	for _, reg := range regs {
		entry := ReviewEntry{Registration: reg}

		var cred models.Credential
		if err := s.DB.Where("tournament_id = ? AND user_id = ?", tournamentID, reg.UserID).
			First(&cred).Error; err == nil {
			entry.Credential = &cred
		}
		var profile models.TraderProfile
		if err := s.DB.Where("external_user_id = ?", reg.UserID).First(&profile).Error; err == nil {
			entry.Profile = &profile
		}
		entries = append(entries, entry)
	}
	return c.JSON(entries)
}

// ApproveRegistration handles POST /admin/registrations/:id/approve
func (s *RegistrationService) ApproveRegistration(c *fiber.Ctx) error {
	return s.decideHandler(c, true)
}

// RejectRegistration handles POST /admin/registrations/:id/reject
func (s *RegistrationService) RejectRegistration(c *fiber.Ctx) error {
	return s.decideHandler(c, false)
}

func (s *RegistrationService) decideHandler(c *fiber.Ctx, approve bool) error {
	ident := identityFromCtx(c)

	result, err := s.Decide(c.Context(), ident, c.Params("id"), approve)
	if err != nil {
		return registrationError(c, err)
	}
	if !result.Applied {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"outcome":      "no_longer_pending",
			"registration": result.Registration,
		})
	}
	return c.JSON(fiber.Map{
		"outcome":      "decided",
		"registration": result.Registration,
	})
}

// identityFromCtx pulls the Identity the middleware attached. The zero value
// (not signed in) falls out naturally when the gateway sent no user.
func identityFromCtx(c *fiber.Ctx) models.Identity {
	ident, _ := c.Locals("identity").(models.Identity)
	return ident
}

// registrationError maps the error taxonomy onto HTTP responses. Conflicts
// and state errors are expected outcomes with plain messages, not failures.
func registrationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotSignedIn):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrBanned):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, ErrTournamentClosed), errors.Is(err, ErrNotJoined), errors.Is(err, ErrAlreadySubmitted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "platform, login, investor_password and server are required"})
	default:
		log.Printf("ERROR registration operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
