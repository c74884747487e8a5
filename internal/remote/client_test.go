package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/config"
	"github.com/radiusdt/campaign-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.RemoteConfig{
		BaseURL:       srv.URL + "/webhook",
		CampaignPath:  "criarCampanha",
		AdSetPath:     "criarConjunto",
		UploadPath:    "uploadCriativo",
		AdPath:        "criarAnuncio",
		InsightsPath:  "relatorios",
		StatusPath:    "gerenciarStatusDaCampanha",
		AnalysisPath:  "gerarRelatorioPDF",
		Timeout:       5 * time.Second,
		InsightsLimit: 300,
	}, zap.NewNop(), nil)
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestCreateCampaign(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/criarCampanha", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got = decodeBody(t, r)
		w.Write([]byte(`{"id":"123","name":"Black Friday","objective":"LINK_CLICKS","status":"PAUSED"}`))
	})

	campaign, err := client.CreateCampaign(context.Background(), CreateCampaignRequest{
		Name:      "Black Friday",
		Objective: models.ObjectiveLinkClicks,
		Status:    models.CampaignStatusPaused,
	})
	require.NoError(t, err)
	assert.Equal(t, &models.Campaign{
		ID:        "123",
		Name:      "Black Friday",
		Objective: models.ObjectiveLinkClicks,
		Status:    models.CampaignStatusPaused,
	}, campaign)

	assert.Equal(t, "Black Friday", got["name"])
	assert.Equal(t, []interface{}{}, got["special_ad_categories"])
}

func TestCreateCampaign_ArrayResponseAndNumericID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":120210000000001}]`))
	})

	campaign, err := client.CreateCampaign(context.Background(), CreateCampaignRequest{
		Name:      "Launch",
		Objective: models.ObjectiveReach,
		Status:    models.CampaignStatusPaused,
	})
	require.NoError(t, err)
	assert.Equal(t, "120210000000001", campaign.ID)
	assert.Equal(t, "Launch", campaign.Name)
	assert.Equal(t, models.ObjectiveReach, campaign.Objective)
}

func TestCreateCampaign_MissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x"}`))
	})

	_, err := client.CreateCampaign(context.Background(), CreateCampaignRequest{Name: "x"})
	var rerr *apperr.RemoteCallError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, OpCreateCampaign, rerr.Op)
	assert.Equal(t, http.StatusOK, rerr.StatusCode)
}

func TestCreateCampaign_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid parameter","code":100}}`))
	})

	_, err := client.CreateCampaign(context.Background(), CreateCampaignRequest{Name: "x"})
	var rerr *apperr.RemoteCallError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.StatusCode)
	assert.Equal(t, "Invalid parameter", rerr.Message)
	assert.Equal(t, 100, rerr.ProviderCode)
	assert.Equal(t, "Invalid parameter", apperr.UserMessage(err))
}

func TestCreateCampaign_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(config.RemoteConfig{BaseURL: srv.URL, CampaignPath: "c"}, zap.NewNop(), nil)

	_, err := client.CreateCampaign(context.Background(), CreateCampaignRequest{Name: "x"})
	var rerr *apperr.RemoteCallError
	require.ErrorAs(t, err, &rerr)
	assert.Zero(t, rerr.StatusCode)
	assert.Error(t, rerr.Err)
}

func TestCreateAdSet(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/criarConjunto", r.URL.Path)
		got = decodeBody(t, r)
		w.Write([]byte(`{"id":"456"}`))
	})

	req := CreateAdSetRequest{
		Name:             "BF adults",
		CampaignID:       "123",
		DailyBudget:      5000,
		BillingEvent:     "IMPRESSIONS",
		OptimizationGoal: "LINK_CLICKS",
		BidStrategy:      "LOWEST_COST_WITHOUT_CAP",
		StartTime:        "2026-11-20T09:00:00Z",
		EndTime:          "2026-11-30T23:59",
		Targeting: models.Targeting{
			GeoLocations: models.GeoLocations{Countries: []string{"BR"}},
			FlexibleSpec: []models.FlexibleSpec{{Interests: []models.Interest{{ID: "6003", Name: "Shopping"}}}},
			AgeMin:       18,
			AgeMax:       45,
		},
		Status: models.CampaignStatusPaused,
	}

	adSet, err := client.CreateAdSet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "456", adSet.ID)
	assert.Equal(t, "123", adSet.CampaignID)
	assert.Equal(t, int64(5000), adSet.DailyBudgetCents)
	assert.Equal(t, time.Date(2026, 11, 20, 9, 0, 0, 0, time.UTC), adSet.StartTime)
	require.NotNil(t, adSet.EndTime)
	assert.Equal(t, time.Date(2026, 11, 30, 23, 59, 0, 0, time.UTC), *adSet.EndTime)
	assert.Equal(t, req.Targeting, adSet.Targeting)

	assert.Equal(t, "123", got["campaign_id"])
	assert.Equal(t, float64(5000), got["daily_budget"])
	targeting, ok := got["targeting"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"countries": []interface{}{"BR"}}, targeting["geo_locations"])
	assert.Equal(t, float64(18), targeting["age_min"])
}

func TestCreateAdSet_OmitsEmptyEndTime(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		w.Write([]byte(`{"id":"456"}`))
	})

	adSet, err := client.CreateAdSet(context.Background(), CreateAdSetRequest{
		Name:       "x",
		CampaignID: "1",
		StartTime:  "2026-11-20",
	})
	require.NoError(t, err)
	assert.Nil(t, adSet.EndTime)
	_, present := got["end_time"]
	assert.False(t, present)
}

func TestUploadFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/uploadCriativo", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		assert.Equal(t, "banner.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("png-bytes"), data)
		w.Write([]byte(`[ {"url": "https://cdn.example.com/banner.png", "hash": "abc"} ]`))
	})

	resp, err := client.UploadFile(context.Background(), models.PendingFile{
		Name:     "banner.png",
		MimeType: "image/png",
		Data:     []byte("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/banner.png", resp.URL)
	assert.JSONEq(t, `[{"url":"https://cdn.example.com/banner.png","hash":"abc"}]`, string(resp.Raw))
}

func TestUploadFile_NoURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	resp, err := client.UploadFile(context.Background(), models.PendingFile{Name: "a.mp4", MimeType: "video/mp4"})
	require.NoError(t, err)
	assert.Empty(t, resp.URL)
	assert.Nil(t, resp.Raw)
}

func TestUploadFile_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	})

	_, err := client.UploadFile(context.Background(), models.PendingFile{Name: "a.mp4"})
	var rerr *apperr.RemoteCallError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rerr.StatusCode)
}

func TestCreateAd(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/criarAnuncio", r.URL.Path)
		got = decodeBody(t, r)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.CreateAd(context.Background(), "456"))
	assert.Equal(t, map[string]interface{}{"adset_id": "456"}, got)
}

func TestCreateAd_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":""}`))
	})

	err := client.CreateAd(context.Background(), "456")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeRemoteCall, apperr.CodeOf(err))
	assert.Contains(t, apperr.UserMessage(err), "not authorized")
}
