package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Metric is a numeric insight value. The reports webhook sends numbers as
// JSON strings ("12.34"); both forms are accepted.
type Metric float64

func (m *Metric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Unparseable metrics count as zero, as the dashboard did.
			*m = 0
			return nil
		}
		*m = Metric(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// CampaignInsight is one campaign-level row of the reports webhook.
type CampaignInsight struct {
	CampaignID   string         `json:"campaign_id"`
	CampaignName string         `json:"campaign_name"`
	Status       CampaignStatus `json:"status,omitempty"`
	Spend        Metric         `json:"spend"`
	Impressions  Metric         `json:"impressions"`
	Reach        Metric         `json:"reach"`
	Clicks       Metric         `json:"clicks"`
	CTR          Metric         `json:"ctr"`
	CPC          Metric         `json:"cpc"`
	DateStart    string         `json:"date_start,omitempty"`
	DateStop     string         `json:"date_stop,omitempty"`
}

// Active reports whether the campaign is currently delivering.
func (c CampaignInsight) Active() bool {
	return c.Status == CampaignStatusActive
}

// Summary aggregates insight rows into dashboard KPIs.
type Summary struct {
	Campaigns        int     `json:"campaigns"`
	ActiveCampaigns  int     `json:"active_campaigns"`
	TotalSpend       float64 `json:"total_spend"`
	TotalClicks      int64   `json:"total_clicks"`
	TotalImpressions int64   `json:"total_impressions"`
	// AvgCTR is a percentage, zero when there are no impressions.
	AvgCTR float64 `json:"avg_ctr"`
}

// Summarize computes dashboard KPIs over rows.
func Summarize(rows []CampaignInsight) Summary {
	var s Summary
	for _, r := range rows {
		s.Campaigns++
		if r.Active() {
			s.ActiveCampaigns++
		}
		s.TotalSpend += float64(r.Spend)
		s.TotalClicks += int64(r.Clicks)
		s.TotalImpressions += int64(r.Impressions)
	}
	if s.TotalImpressions > 0 {
		s.AvgCTR = float64(s.TotalClicks) / float64(s.TotalImpressions) * 100
	}
	return s
}

// ReportRow is one campaign row of a custom report. Its columns are the
// metrics that were requested.
type ReportRow map[string]interface{}
