package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetric_AcceptsStringsAndNumbers(t *testing.T) {
	var row CampaignInsight
	raw := `{"campaign_id":"1","campaign_name":"A","spend":"12.50","impressions":1000,"clicks":"25","ctr":"bad","cpc":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &row))

	assert.Equal(t, Metric(12.5), row.Spend)
	assert.Equal(t, Metric(1000), row.Impressions)
	assert.Equal(t, Metric(25), row.Clicks)
	assert.Equal(t, Metric(0), row.CTR)
	assert.Equal(t, Metric(0), row.CPC)
}

func TestSummarize(t *testing.T) {
	rows := []CampaignInsight{
		{Status: CampaignStatusActive, Spend: 10, Clicks: 5, Impressions: 100},
		{Status: CampaignStatusPaused, Spend: 2.5, Clicks: 15, Impressions: 300},
	}
	s := Summarize(rows)

	assert.Equal(t, 2, s.Campaigns)
	assert.Equal(t, 1, s.ActiveCampaigns)
	assert.InDelta(t, 12.5, s.TotalSpend, 1e-9)
	assert.Equal(t, int64(20), s.TotalClicks)
	assert.Equal(t, int64(400), s.TotalImpressions)
	assert.InDelta(t, 5.0, s.AvgCTR, 1e-9)
}

func TestSummarize_NoImpressions(t *testing.T) {
	s := Summarize([]CampaignInsight{{Clicks: 3}})
	assert.Zero(t, s.AvgCTR)
	assert.Zero(t, Summarize(nil).AvgCTR)
}

func TestTargeting_Validate(t *testing.T) {
	ok := Targeting{GeoLocations: GeoLocations{Countries: []string{"BR"}}, AgeMin: 18, AgeMax: 65}
	assert.NoError(t, ok.Validate())

	noGeo := ok
	noGeo.GeoLocations.Countries = nil
	assert.Error(t, noGeo.Validate())

	inverted := ok
	inverted.AgeMin, inverted.AgeMax = 40, 30
	assert.Error(t, inverted.Validate())

	tooYoung := ok
	tooYoung.AgeMin = 12
	assert.Error(t, tooYoung.Validate())
}

func TestFileMeta_LocalRefNotSerialized(t *testing.T) {
	meta := FileMeta{Name: "a.png", MimeType: "image/png", ByteSize: 3, LocalRef: "local://x/a.png"}
	assert.Equal(t, "local://x/a.png", meta.AccessibleURL())

	b, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "local://")

	meta.URL = "https://cdn.example.com/a.png"
	assert.Equal(t, "https://cdn.example.com/a.png", meta.AccessibleURL())
}

func TestAllFulfilled(t *testing.T) {
	ok := UploadOutcome{Status: UploadFulfilled}
	bad := UploadOutcome{Status: UploadRejected}

	assert.False(t, AllFulfilled(nil))
	assert.True(t, AllFulfilled([]UploadOutcome{ok, ok}))
	assert.False(t, AllFulfilled([]UploadOutcome{ok, bad, ok}))
}

func TestPendingFile_HasMIMEPrefix(t *testing.T) {
	prefixes := []string{"image/", "video/"}
	assert.True(t, PendingFile{MimeType: "image/png"}.HasMIMEPrefix(prefixes))
	assert.True(t, PendingFile{MimeType: "Video/MP4"}.HasMIMEPrefix(prefixes))
	assert.False(t, PendingFile{MimeType: "text/plain"}.HasMIMEPrefix(prefixes))
	assert.False(t, PendingFile{}.HasMIMEPrefix(prefixes))
}

func TestCampaignEnums_Valid(t *testing.T) {
	assert.True(t, ObjectiveLeadGeneration.Valid())
	assert.True(t, ObjectiveBrandAwareness.Valid())
	assert.False(t, CampaignObjective("link_clicks").Valid())
	assert.False(t, CampaignObjective("").Valid())

	assert.True(t, CampaignStatusPaused.Valid())
	assert.False(t, CampaignStatus("DELETED").Valid())
}
