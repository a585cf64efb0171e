// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/fayyadalaas-cell/fxleagues-sub000/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// remoteProfile matches the JSON the identity service returns for each user.
type remoteProfile struct {
	ExternalID    string     `json:"external_id"`
	DisplayName   string     `json:"display_name"`
	Country       string     `json:"country,omitempty"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	Banned        bool       `json:"banned"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type profileChangesResponse struct {
	Profiles []remoteProfile `json:"profiles"`
}

// ProfileSyncWorker keeps the local trader_profiles snapshot current with the
// identity service. The snapshot backs the ban/email-verified checks on join
// and the display fields on leaderboards.
type ProfileSyncWorker struct {
	db           *gorm.DB
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
	scheduler    gocron.Scheduler
}

func NewProfileSyncWorker(db *gorm.DB, identityServiceURL, endpointPath, serviceToken string) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		db:           db,
		baseURL:      identityServiceURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Start runs an initial backfill, then schedules incremental syncs.
func (w *ProfileSyncWorker) Start(ctx context.Context) error {
	log.Println("🔁 Starting Profile Sync Worker (identity service → trader_profiles)…")

	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial profile sync failed: %v", err)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	w.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := w.syncBatch(ctx, w.lastSyncTime()); err != nil {
				log.Printf("❌ Profile sync batch failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule profile sync job: %w", err)
	}

	sched.Start()
	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
		log.Println("⏹️ Profile Sync Worker stopped")
	}()
	return nil
}

// lastSyncTime finds the most recent UpdatedAt in the local snapshot.
func (w *ProfileSyncWorker) lastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM trader_profiles").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches profile changes since the given time and upserts them.
func (w *ProfileSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid identity service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to identity service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("identity service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode identity service response: %w", err)
	}

	if len(response.Profiles) == 0 {
		return nil
	}

	var upsertCount, errorCount int
	for _, remote := range response.Profiles {
		local := models.TraderProfile{
			ExternalUserID: remote.ExternalID,
			DisplayName:    remote.DisplayName,
			Country:        remote.Country,
			AvatarURL:      remote.AvatarURL,
			Banned:         remote.Banned,
			EmailVerified:  remote.EmailVerified,
			CreatedAt:      remote.CreatedAt,
			UpdatedAt:      remote.UpdatedAt,
		}
		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "country", "avatar_url", "banned", "email_verified", "updated_at",
			}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert trader_profile (external_id=%q): %v", remote.ExternalID, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d profile(s) (%d upserted, %d errors) since %s",
		len(response.Profiles), upsertCount, errorCount, sinceStr)
	return nil
}
