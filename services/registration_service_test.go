package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fayyadalaas-cell/fxleagues-sub000/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.Registration{},
		&models.Credential{},
		&models.Result{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestTournament(t *testing.T, db *gorm.DB, adminStatus models.AdminStatus) *models.Tournament {
	t.Helper()
	end := time.Now().Add(24 * time.Hour)
	tournament := &models.Tournament{
		ID:           uuid.NewString(),
		Slug:         "spring-league-" + uuid.NewString()[:8],
		Title:        "Spring League",
		StartAt:      time.Now().Add(-time.Hour),
		EndAt:        &end,
		PrizePool:    1000,
		WinnersCount: 3,
		AdminStatus:  adminStatus,
	}
	if err := db.Create(tournament).Error; err != nil {
		t.Fatalf("failed to create tournament: %v", err)
	}
	return tournament
}

func trader(userID string) models.Identity {
	return models.Identity{UserID: userID, EmailVerified: true}
}

func operator(userID string) models.Identity {
	return models.Identity{UserID: userID, Roles: []string{"operator"}, EmailVerified: true}
}

var testCredential = CredentialInput{
	Platform:         "mt5",
	Login:            "10023045",
	InvestorPassword: "view-only-pass",
	Server:           "Demo-Server-03",
}

func TestJoinCreatesRegistration(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)

	result, err := svc.Join(context.Background(), trader("user-1"), tournament.ID)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if result.AlreadyRegistered {
		t.Error("first join reported already registered")
	}
	if result.Registration.Status != models.RegistrationStatusJoined {
		t.Errorf("status = %s, want %s", result.Registration.Status, models.RegistrationStatusJoined)
	}
}

func TestJoinTwiceIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	ctx := context.Background()

	first, err := svc.Join(ctx, trader("user-1"), tournament.ID)
	if err != nil {
		t.Fatalf("first Join failed: %v", err)
	}
	second, err := svc.Join(ctx, trader("user-1"), tournament.ID)
	if err != nil {
		t.Fatalf("second Join returned an error, want already-registered outcome: %v", err)
	}
	if !second.AlreadyRegistered {
		t.Error("second join not reported as already registered")
	}
	if second.Registration.ID != first.Registration.ID {
		t.Error("second join returned a different registration row")
	}

	var count int64
	db.Model(&models.Registration{}).
		Where("tournament_id = ? AND user_id = ?", tournament.ID, "user-1").
		Count(&count)
	if count != 1 {
		t.Errorf("stored %d registrations, want exactly 1", count)
	}
}

func TestJoinPreconditions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	ctx := context.Background()

	if _, err := svc.Join(ctx, models.Identity{}, tournament.ID); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("anonymous join: err = %v, want ErrNotSignedIn", err)
	}

	banned := models.Identity{UserID: "user-2", Banned: true}
	if _, err := svc.Join(ctx, banned, tournament.ID); !errors.Is(err, ErrBanned) {
		t.Errorf("banned join: err = %v, want ErrBanned", err)
	}

	if _, err := svc.Join(ctx, trader("user-3"), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing tournament: err = %v, want ErrNotFound", err)
	}

	closed := createTestTournament(t, db, models.AdminStatusCompleted)
	if _, err := svc.Join(ctx, trader("user-4"), closed.ID); !errors.Is(err, ErrTournamentClosed) {
		t.Errorf("closed tournament: err = %v, want ErrTournamentClosed", err)
	}
}

func TestSubmitCredentialsWithoutJoin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)

	_, err := svc.SubmitCredentials(context.Background(), trader("user-1"), tournament.ID, testCredential)
	if !errors.Is(err, ErrNotJoined) {
		t.Errorf("err = %v, want ErrNotJoined", err)
	}
}

func TestSubmitCredentialsAdvancesRegistration(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	ctx := context.Background()

	if _, err := svc.Join(ctx, trader("user-1"), tournament.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	reg, err := svc.SubmitCredentials(ctx, trader("user-1"), tournament.ID, testCredential)
	if err != nil {
		t.Fatalf("SubmitCredentials failed: %v", err)
	}
	if reg.Status != models.RegistrationStatusPendingReview {
		t.Errorf("status = %s, want %s", reg.Status, models.RegistrationStatusPendingReview)
	}
	if !reg.DetailsSubmitted {
		t.Error("details_submitted not set")
	}

	var cred models.Credential
	if err := db.Where("tournament_id = ? AND user_id = ?", tournament.ID, "user-1").
		First(&cred).Error; err != nil {
		t.Fatalf("credential not stored: %v", err)
	}
	if cred.Login != testCredential.Login || cred.Server != testCredential.Server {
		t.Errorf("stored credential %+v does not match input", cred)
	}
	if cred.Status != models.CredentialStatusSubmitted {
		t.Errorf("credential status = %s, want %s", cred.Status, models.CredentialStatusSubmitted)
	}
}

func TestSubmitCredentialsTwiceRefused(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	ctx := context.Background()

	_, _ = svc.Join(ctx, trader("user-1"), tournament.ID)
	if _, err := svc.SubmitCredentials(ctx, trader("user-1"), tournament.ID, testCredential); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	_, err := svc.SubmitCredentials(ctx, trader("user-1"), tournament.ID, testCredential)
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("second submit: err = %v, want ErrAlreadySubmitted", err)
	}

	var count int64
	db.Model(&models.Credential{}).
		Where("tournament_id = ? AND user_id = ?", tournament.ID, "user-1").
		Count(&count)
	if count != 1 {
		t.Errorf("stored %d credentials, want exactly 1", count)
	}
}

func TestSubmitCredentialsValidatesInput(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	ctx := context.Background()

	_, _ = svc.Join(ctx, trader("user-1"), tournament.ID)

	incomplete := CredentialInput{Platform: "mt5", Login: "1"}
	_, err := svc.SubmitCredentials(ctx, trader("user-1"), tournament.ID, incomplete)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}

	// Validation happens before any write.
	var reg models.Registration
	db.Where("tournament_id = ? AND user_id = ?", tournament.ID, "user-1").First(&reg)
	if reg.Status != models.RegistrationStatusJoined {
		t.Errorf("registration advanced to %s despite invalid input", reg.Status)
	}
}

func pendingRegistration(t *testing.T, db *gorm.DB, svc *RegistrationService, tournamentID, userID string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Join(ctx, trader(userID), tournamentID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	reg, err := svc.SubmitCredentials(ctx, trader(userID), tournamentID, testCredential)
	if err != nil {
		t.Fatalf("SubmitCredentials failed: %v", err)
	}
	return reg.ID
}

func TestDecideApprove(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	regID := pendingRegistration(t, db, svc, tournament.ID, "user-1")

	result, err := svc.Decide(context.Background(), operator("admin-1"), regID, true)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if !result.Applied {
		t.Fatal("decision on pending registration not applied")
	}
	if result.Registration.Status != models.RegistrationStatusApproved {
		t.Errorf("status = %s, want %s", result.Registration.Status, models.RegistrationStatusApproved)
	}
	if result.Registration.DecidedBy == nil || *result.Registration.DecidedBy != "admin-1" {
		t.Error("decided_by not stamped")
	}
	if result.Registration.DecidedAt == nil {
		t.Error("decided_at not stamped")
	}
}

func TestDecideRaceOnlyOneWins(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	regID := pendingRegistration(t, db, svc, tournament.ID, "user-1")
	ctx := context.Background()

	approve, err := svc.Decide(ctx, operator("admin-1"), regID, true)
	if err != nil {
		t.Fatalf("first decision failed: %v", err)
	}
	reject, err := svc.Decide(ctx, operator("admin-2"), regID, false)
	if err != nil {
		t.Fatalf("second decision errored, want no-op outcome: %v", err)
	}

	if !approve.Applied {
		t.Error("first decision should have applied")
	}
	if reject.Applied {
		t.Error("second decision should have been a no-op")
	}

	// The loser observes the winner's state; the first decision sticks.
	var reg models.Registration
	db.First(&reg, "id = ?", regID)
	if reg.Status != models.RegistrationStatusApproved {
		t.Errorf("status = %s, want %s (first decision wins)", reg.Status, models.RegistrationStatusApproved)
	}
	if reg.DecidedBy == nil || *reg.DecidedBy != "admin-1" {
		t.Error("decided_by overwritten by losing decision")
	}
}

func TestDecideRequiresPendingReview(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	ctx := context.Background()

	// Still in joined_pending: no credentials submitted yet.
	joined, err := svc.Join(ctx, trader("user-1"), tournament.ID)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	result, err := svc.Decide(ctx, operator("admin-1"), joined.Registration.ID, true)
	if err != nil {
		t.Fatalf("Decide errored, want no-op outcome: %v", err)
	}
	if result.Applied {
		t.Error("decision applied to a registration not in pending_review")
	}
}

func TestDecideAuthorization(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	regID := pendingRegistration(t, db, svc, tournament.ID, "user-1")
	ctx := context.Background()

	if _, err := svc.Decide(ctx, trader("user-1"), regID, true); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-operator decide: err = %v, want ErrForbidden", err)
	}

	if _, err := svc.Decide(ctx, operator("admin-1"), uuid.NewString(), true); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing registration: err = %v, want ErrNotFound", err)
	}
}

func TestGetRegistration(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRegistrationService(db)
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	ctx := context.Background()

	if _, err := svc.GetRegistration(ctx, trader("user-1"), tournament.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("no row: err = %v, want ErrNotFound", err)
	}

	_, _ = svc.Join(ctx, trader("user-1"), tournament.ID)
	reg, err := svc.GetRegistration(ctx, trader("user-1"), tournament.ID)
	if err != nil {
		t.Fatalf("GetRegistration failed: %v", err)
	}
	if reg.Status != models.RegistrationStatusJoined {
		t.Errorf("status = %s, want %s", reg.Status, models.RegistrationStatusJoined)
	}
}
