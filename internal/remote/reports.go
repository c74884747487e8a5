package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/models"
)

var insightMetrics = []string{
	"campaign_id",
	"campaign_name",
	"spend",
	"impressions",
	"reach",
	"clicks",
	"ctr",
	"cpc",
	"date_start",
	"date_stop",
}

type insightsRequest struct {
	Level   string   `json:"level"`
	Limit   int      `json:"limit"`
	Metrics []string `json:"metrics"`
}

type statusRequest struct {
	CampaignID string                `json:"campaign_id"`
	Status     models.CampaignStatus `json:"status"`
}

// FetchInsights returns campaign-level metrics from the reports webhook.
func (c *Client) FetchInsights(ctx context.Context) ([]models.CampaignInsight, error) {
	resp, err := c.postJSON(ctx, OpFetchInsights, c.cfg.InsightsPath, insightsRequest{
		Level:   "campaign",
		Limit:   c.insightsLimit(),
		Metrics: insightMetrics,
	})
	if err != nil {
		return nil, err
	}

	rows, err := ExtractInsightRows(resp.body)
	if err != nil {
		return nil, payloadError(OpFetchInsights, resp.status, err)
	}
	return rows, nil
}

// reportRequiredMetrics are always requested so rows can be labeled.
var reportRequiredMetrics = []string{"campaign_id", "campaign_name", "date_start", "date_stop"}

// FetchReport returns campaign-level rows with the chosen metrics. The
// identifying columns are always added to the request.
func (c *Client) FetchReport(ctx context.Context, metrics []string) ([]models.ReportRow, error) {
	selected := make([]string, 0, len(metrics)+len(reportRequiredMetrics))
	seen := make(map[string]bool, cap(selected))
	for _, m := range metrics {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		selected = append(selected, m)
	}
	if len(selected) == 0 {
		return nil, apperr.Validation("metrics", "no metrics selected")
	}
	for _, m := range reportRequiredMetrics {
		if !seen[m] {
			selected = append(selected, m)
		}
	}

	resp, err := c.postJSON(ctx, OpFetchReport, c.cfg.InsightsPath, insightsRequest{
		Level:   "campaign",
		Limit:   c.insightsLimit(),
		Metrics: selected,
	})
	if err != nil {
		return nil, err
	}

	data, err := extractData(OpFetchReport, resp.body)
	if err != nil {
		return nil, payloadError(OpFetchReport, resp.status, err)
	}
	rows := []models.ReportRow{}
	if data != nil {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, payloadError(OpFetchReport, resp.status, err)
		}
	}
	return rows, nil
}

type analysisRequest struct {
	Results []models.ReportRow `json:"resultados"`
}

// AnalyzeReport sends report rows to the analysis webhook and returns the
// text it produced.
func (c *Client) AnalyzeReport(ctx context.Context, rows []models.ReportRow) (string, error) {
	if len(rows) == 0 {
		return "", apperr.Validation("rows", "no report rows to analyze")
	}

	resp, err := c.postJSON(ctx, OpAnalyzeReport, c.cfg.AnalysisPath, analysisRequest{Results: rows})
	if err != nil {
		return "", err
	}

	obj, err := firstObject(resp.body)
	if err != nil {
		return "", payloadError(OpAnalyzeReport, resp.status, err)
	}
	output := rawString(obj["output"])
	if output == "" {
		return "", &apperr.RemoteCallError{
			Op:         OpAnalyzeReport,
			StatusCode: resp.status,
			Message:    "The analysis service returned no output.",
		}
	}
	return output, nil
}

func (c *Client) insightsLimit() int {
	if c.cfg.InsightsLimit <= 0 {
		return 300
	}
	return c.cfg.InsightsLimit
}

// payloadError reports an undecodable 2xx body as a failed remote call.
func payloadError(op string, status int, err error) error {
	var rerr *apperr.RemoteCallError
	if errors.As(err, &rerr) {
		rerr.Op = op
		rerr.StatusCode = status
		return rerr
	}
	return &apperr.RemoteCallError{Op: op, StatusCode: status, Err: err}
}

// ExtractInsightRows decodes the reports payload. It accepts
// [{"data":[...]}], {"data":[...]}, a bare array of rows or a single row.
// A top-level "error" field is reported as a RemoteCallError.
func ExtractInsightRows(body []byte) ([]models.CampaignInsight, error) {
	data, err := extractData(OpFetchInsights, body)
	if err != nil || data == nil {
		return nil, err
	}
	var rows []models.CampaignInsight
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// extractData unwraps the row array of a reports payload.
func extractData(op string, body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	switch body[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(body, &arr); err != nil {
			return nil, err
		}
		if len(arr) > 0 {
			if data, ok := dataField(arr[0]); ok {
				return data, nil
			}
		}
		return body, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, err
		}
		if raw, ok := obj["error"]; ok && !isNull(raw) {
			return nil, parseErrorBody(op, 0, body)
		}
		if data, ok := obj["data"]; ok && !isNull(data) {
			return data, nil
		}
		return append(append([]byte{'['}, body...), ']'), nil
	default:
		return nil, fmt.Errorf("unexpected reports payload")
	}
}

func dataField(raw json.RawMessage) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil, false
	}
	data, ok := obj["data"]
	if !ok || isNull(data) {
		return nil, false
	}
	return data, true
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// SetCampaignStatus switches a campaign between ACTIVE and PAUSED. It
// returns the status echoed by the remote, or status when none is echoed.
func (c *Client) SetCampaignStatus(ctx context.Context, campaignID string, status models.CampaignStatus) (models.CampaignStatus, error) {
	if campaignID == "" {
		return "", apperr.Validation("campaign_id", "campaign id is required")
	}
	if !status.Valid() {
		return "", apperr.Validation("status", "status must be ACTIVE or PAUSED")
	}

	resp, err := c.postJSON(ctx, OpSetStatus, c.cfg.StatusPath, statusRequest{
		CampaignID: campaignID,
		Status:     status,
	})
	if err != nil {
		return "", err
	}

	obj, err := firstObject(resp.body)
	if err == nil && obj != nil {
		if echoed := rawString(obj["status"]); echoed != "" {
			return models.CampaignStatus(echoed), nil
		}
	}
	return status, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 and the shorter forms sent by date pickers.
// Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// FormatTime renders t as RFC 3339 in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
