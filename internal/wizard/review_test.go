package wizard

import (
	"testing"
	"time"

	"github.com/radiusdt/campaign-studio/internal/config"
	"github.com/radiusdt/campaign-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeStep(t *testing.T) {
	campaign := &models.Campaign{ID: "123"}
	adSet := &models.AdSet{ID: "456", CampaignID: "123"}
	ok := models.UploadOutcome{Status: models.UploadFulfilled}
	failed := models.UploadOutcome{Status: models.UploadRejected}

	tests := []struct {
		name    string
		session *models.CreationSession
		want    Step
	}{
		{"nil", nil, StepCampaign},
		{"empty", &models.CreationSession{}, StepCampaign},
		{"campaign without id", &models.CreationSession{Campaign: &models.Campaign{Name: "x"}}, StepCampaign},
		{"campaign only", &models.CreationSession{Campaign: campaign}, StepAdSet},
		{"ad set without uploads", &models.CreationSession{Campaign: campaign, AdSet: adSet}, StepUpload},
		{"partial uploads", &models.CreationSession{Campaign: campaign, AdSet: adSet, Uploads: []models.UploadOutcome{ok, failed}}, StepUpload},
		{"all uploads", &models.CreationSession{Campaign: campaign, AdSet: adSet, Uploads: []models.UploadOutcome{ok, ok}}, StepReview},
		{"uploads without ad set", &models.CreationSession{Campaign: campaign, Uploads: []models.UploadOutcome{ok}}, StepAdSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResumeStep(tt.session))
		})
	}
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "campaign", StepCampaign.String())
	assert.Equal(t, "review", StepReview.String())
	assert.Equal(t, "step(7)", Step(7).String())
	assert.False(t, Step(0).Valid())
	assert.True(t, StepUpload.Valid())
}

func TestBuildTargeting(t *testing.T) {
	tg := BuildTargeting(AdSetInput{
		Interests:          []models.Interest{{ID: ""}, {ID: "6003", Name: "Shopping"}},
		PublisherPlatforms: []string{" facebook ", ""},
	}, []string{"BR", "PT"})

	assert.Equal(t, []string{"BR", "PT"}, tg.GeoLocations.Countries)
	assert.Equal(t, DefaultAgeMin, tg.AgeMin)
	assert.Equal(t, DefaultAgeMax, tg.AgeMax)
	assert.Equal(t, []models.FlexibleSpec{{Interests: []models.Interest{{ID: "6003", Name: "Shopping"}}}}, tg.FlexibleSpec)
	assert.Equal(t, []string{"facebook"}, tg.PublisherPlatforms)
	assert.Nil(t, tg.DevicePlatforms)

	empty := BuildTargeting(AdSetInput{}, []string{"BR"})
	assert.Nil(t, empty.FlexibleSpec)
}

func TestRenderReview(t *testing.T) {
	end := time.Date(2026, 11, 30, 23, 59, 0, 0, time.UTC)
	session := &models.CreationSession{
		Campaign: &models.Campaign{ID: "123", Name: "Black Friday", Objective: models.ObjectiveLinkClicks, Status: models.CampaignStatusPaused},
		AdSet: &models.AdSet{
			ID:               "456",
			Name:             "BF adults",
			CampaignID:       "123",
			DailyBudgetCents: 5005,
			StartTime:        time.Date(2026, 11, 20, 9, 0, 0, 0, time.UTC),
			EndTime:          &end,
			Targeting: models.Targeting{
				GeoLocations: models.GeoLocations{Countries: []string{"BR"}},
				FlexibleSpec: []models.FlexibleSpec{{Interests: []models.Interest{{ID: "1", Name: "Shopping"}, {ID: "2", Name: "Fashion"}}}},
				AgeMin:       18,
				AgeMax:       45,
			},
			Status: models.CampaignStatusPaused,
		},
		Uploads: []models.UploadOutcome{
			{Status: models.UploadFulfilled, File: models.FileMeta{Name: "a.png", MimeType: "image/png", ByteSize: 1536, URL: "https://cdn/a.png"}},
			{Status: models.UploadFulfilled, File: models.FileMeta{Name: "b.mp4", MimeType: "video/mp4", ByteSize: 10, LocalRef: "local://x/b.mp4"}},
		},
	}

	view := RenderReview(session)
	require.NotNil(t, view.Campaign)
	assert.Equal(t, "Black Friday", view.Campaign.Name)
	require.NotNil(t, view.AdSet)
	assert.Equal(t, "50.05", view.AdSet.DailyBudget)
	assert.Equal(t, "18-45", view.AdSet.AgeRange)
	assert.Equal(t, []string{"Shopping", "Fashion"}, view.AdSet.Interests)
	assert.Equal(t, "2026-11-20 09:00 UTC to 2026-11-30 23:59 UTC", view.AdSet.Schedule)
	require.Len(t, view.Files, 2)
	assert.Equal(t, "1.5 KB", view.Files[0].Size)
	assert.Equal(t, "https://cdn/a.png", view.Files[0].URL)
	assert.Equal(t, "local://x/b.mp4", view.Files[1].URL)
	assert.True(t, view.Ready)
	assert.Empty(t, view.Missing)

	// Rendering does not mutate the session.
	assert.Equal(t, "local://x/b.mp4", session.Uploads[1].File.LocalRef)
}

func TestRenderReview_Incomplete(t *testing.T) {
	view := RenderReview(nil)
	assert.False(t, view.Ready)
	assert.Equal(t, []string{"campaign", "ad set", "creatives"}, view.Missing)
	assert.NotNil(t, view.Files)

	view = RenderReview(&models.CreationSession{Campaign: &models.Campaign{ID: "1"}})
	assert.Equal(t, []string{"ad set", "creatives"}, view.Missing)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "12.30", FormatCents(1230))
	assert.Equal(t, "-0.05", FormatCents(-5))

	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "2.5 MB", FormatBytes(5<<19))
}

func TestManager(t *testing.T) {
	m := NewManager(Deps{Options: config.WizardConfig{}})

	a := m.Get("a")
	assert.Same(t, a, m.Get("a"))
	assert.NotSame(t, a, m.Get("b"))
	assert.Equal(t, 2, m.Len())

	m.Release("a")
	m.Release("a")
	assert.Equal(t, 1, m.Len())
	assert.NotSame(t, a, m.Get("a"))
}

func TestManager_LookupDoesNotCreate(t *testing.T) {
	m := NewManager(Deps{})

	_, ok := m.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	a := m.Get("a")
	got, ok := m.Lookup("a")
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestManager_EvictIdle(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	m := NewManager(Deps{})
	m.now = func() time.Time { return now }

	m.Get("idle")
	busy := m.Get("busy")
	now = now.Add(90 * time.Minute)
	m.Get("fresh")

	busy.mu.Lock()
	assert.Equal(t, 1, m.EvictIdle(time.Hour))
	busy.mu.Unlock()

	_, ok := m.Lookup("idle")
	assert.False(t, ok)
	_, ok = m.Lookup("fresh")
	assert.True(t, ok)

	// Once its operation finished the idle busy controller goes too.
	assert.Equal(t, 1, m.EvictIdle(time.Hour))
	assert.Equal(t, 1, m.Len())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 0, m.EvictIdle(0))
	assert.Equal(t, 1, m.EvictIdle(time.Hour))
	assert.Equal(t, 0, m.Len())
}
