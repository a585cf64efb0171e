package services

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/fayyadalaas-cell/fxleagues-sub000/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTournamentTestApp(db *gorm.DB, ident models.Identity) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("identity", ident)
		return c.Next()
	})
	svc := NewTournamentService(db)
	app.Put("/admin/tournaments/:id", svc.UpdateTournament)
	return app
}

func multipartForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("writing form field %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func setExplicitBreakdown(t *testing.T, db *gorm.DB, tournamentID string, tiers []models.PrizeTier) {
	t.Helper()
	encoded, err := json.Marshal(tiers)
	if err != nil {
		t.Fatalf("encoding breakdown: %v", err)
	}
	if err := db.Model(&models.Tournament{}).Where("id = ?", tournamentID).
		Update("prize_breakdown", datatypes.JSON(encoded)).Error; err != nil {
		t.Fatalf("storing breakdown: %v", err)
	}
}

func TestUpdateWinnersCountRejectsStaleBreakdown(t *testing.T) {
	db := setupTestDB(t)
	app := newTournamentTestApp(db, operator("admin-1"))
	// WinnersCount is 3.
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	setExplicitBreakdown(t, db, tournament.ID, []models.PrizeTier{
		{Position: 1, Amount: 500},
		{Position: 2, Amount: 300},
		{Position: 3, Amount: 200},
	})

	body, contentType := multipartForm(t, map[string]string{"winners_count": "5"})
	req := httptest.NewRequest("PUT", "/admin/tournaments/"+tournament.ID, body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (stored 3-tier breakdown cannot serve 5 winners)", resp.StatusCode)
	}

	var stored models.Tournament
	if err := db.First(&stored, "id = ?", tournament.ID).Error; err != nil {
		t.Fatalf("refetching tournament: %v", err)
	}
	if stored.WinnersCount != 3 {
		t.Errorf("winners_count = %d after rejected update, want 3", stored.WinnersCount)
	}
	tiers, err := stored.ExplicitBreakdown()
	if err != nil {
		t.Fatalf("decoding stored breakdown: %v", err)
	}
	if len(tiers) != 3 {
		t.Errorf("stored breakdown has %d tiers after rejected update, want 3", len(tiers))
	}
}

func TestUpdateWinnersCountWithMatchingBreakdown(t *testing.T) {
	db := setupTestDB(t)
	app := newTournamentTestApp(db, operator("admin-1"))
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)
	setExplicitBreakdown(t, db, tournament.ID, []models.PrizeTier{
		{Position: 1, Amount: 500},
		{Position: 2, Amount: 300},
		{Position: 3, Amount: 200},
	})

	fresh, err := json.Marshal([]models.PrizeTier{
		{Position: 1, Amount: 400},
		{Position: 2, Amount: 250},
		{Position: 3, Amount: 150},
		{Position: 4, Amount: 120},
		{Position: 5, Amount: 80},
	})
	if err != nil {
		t.Fatalf("encoding breakdown: %v", err)
	}
	body, contentType := multipartForm(t, map[string]string{
		"winners_count":   "5",
		"prize_breakdown": string(fresh),
	})
	req := httptest.NewRequest("PUT", "/admin/tournaments/"+tournament.ID, body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stored models.Tournament
	if err := db.First(&stored, "id = ?", tournament.ID).Error; err != nil {
		t.Fatalf("refetching tournament: %v", err)
	}
	if stored.WinnersCount != 5 {
		t.Errorf("winners_count = %d, want 5", stored.WinnersCount)
	}
	tiers, err := stored.ExplicitBreakdown()
	if err != nil {
		t.Fatalf("decoding stored breakdown: %v", err)
	}
	if len(tiers) != 5 {
		t.Errorf("stored breakdown has %d tiers, want 5", len(tiers))
	}
}

func TestUpdateWinnersCountWithDerivedSchedule(t *testing.T) {
	db := setupTestDB(t)
	app := newTournamentTestApp(db, operator("admin-1"))
	// No explicit breakdown stored: the schedule is derived, so winners_count
	// may move freely.
	tournament := createTestTournament(t, db, models.AdminStatusUpcoming)

	body, contentType := multipartForm(t, map[string]string{"winners_count": "5"})
	req := httptest.NewRequest("PUT", "/admin/tournaments/"+tournament.ID, body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stored models.Tournament
	if err := db.First(&stored, "id = ?", tournament.ID).Error; err != nil {
		t.Fatalf("refetching tournament: %v", err)
	}
	if stored.WinnersCount != 5 {
		t.Errorf("winners_count = %d, want 5", stored.WinnersCount)
	}
}
