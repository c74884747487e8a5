package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/models"
)

// CreateCampaignRequest is the body of the create-campaign webhook.
type CreateCampaignRequest struct {
	Name                string                   `json:"name"`
	Objective           models.CampaignObjective `json:"objective"`
	Status              models.CampaignStatus    `json:"status"`
	SpecialAdCategories []string                 `json:"special_ad_categories"`
}

// CreateAdSetRequest is the body of the create-ad-set webhook. Times are
// ISO-8601; DailyBudget is in minor currency units.
type CreateAdSetRequest struct {
	Name             string                `json:"name"`
	CampaignID       string                `json:"campaign_id"`
	DailyBudget      int64                 `json:"daily_budget"`
	BillingEvent     string                `json:"billing_event"`
	OptimizationGoal string                `json:"optimization_goal"`
	BidStrategy      string                `json:"bid_strategy"`
	StartTime        string                `json:"start_time"`
	EndTime          string                `json:"end_time,omitempty"`
	Targeting        models.Targeting      `json:"targeting"`
	Status           models.CampaignStatus `json:"status"`
}

type createAdRequest struct {
	AdSetID string `json:"adset_id"`
}

// CreateCampaign creates a campaign. The response must carry an id.
func (c *Client) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*models.Campaign, error) {
	if req.SpecialAdCategories == nil {
		req.SpecialAdCategories = []string{}
	}

	resp, err := c.postJSON(ctx, OpCreateCampaign, c.cfg.CampaignPath, req)
	if err != nil {
		return nil, err
	}

	obj, err := firstObject(resp.body)
	if err != nil {
		return nil, &apperr.RemoteCallError{Op: OpCreateCampaign, StatusCode: resp.status, Err: err}
	}
	id := rawString(obj["id"])
	if id == "" {
		return nil, &apperr.RemoteCallError{
			Op:         OpCreateCampaign,
			StatusCode: resp.status,
			Message:    "The ads API did not return a campaign id.",
		}
	}

	campaign := &models.Campaign{
		ID:        id,
		Name:      req.Name,
		Objective: req.Objective,
		Status:    req.Status,
	}
	if name := rawString(obj["name"]); name != "" {
		campaign.Name = name
	}
	if objective := rawString(obj["objective"]); objective != "" {
		campaign.Objective = models.CampaignObjective(objective)
	}
	if status := rawString(obj["status"]); status != "" {
		campaign.Status = models.CampaignStatus(status)
	}
	return campaign, nil
}

// CreateAdSet creates an ad set. The returned record is the request echoed
// back with the remote id, name and status applied.
func (c *Client) CreateAdSet(ctx context.Context, req CreateAdSetRequest) (*models.AdSet, error) {
	resp, err := c.postJSON(ctx, OpCreateAdSet, c.cfg.AdSetPath, req)
	if err != nil {
		return nil, err
	}

	obj, err := firstObject(resp.body)
	if err != nil {
		return nil, &apperr.RemoteCallError{Op: OpCreateAdSet, StatusCode: resp.status, Err: err}
	}
	id := rawString(obj["id"])
	if id == "" {
		return nil, &apperr.RemoteCallError{
			Op:         OpCreateAdSet,
			StatusCode: resp.status,
			Message:    "The ads API did not return an ad set id.",
		}
	}

	adSet, err := adSetFromRequest(req)
	if err != nil {
		return nil, &apperr.RemoteCallError{Op: OpCreateAdSet, StatusCode: resp.status, Err: err}
	}
	adSet.ID = id
	if name := rawString(obj["name"]); name != "" {
		adSet.Name = name
	}
	if status := rawString(obj["status"]); status != "" {
		adSet.Status = models.CampaignStatus(status)
	}
	return adSet, nil
}

// UploadFile sends one file as a multipart form. The hosted URL is taken from
// the response when present.
func (c *Client) UploadFile(ctx context.Context, file models.PendingFile) (*models.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, &apperr.RemoteCallError{Op: OpUploadFile, Err: err}
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, &apperr.RemoteCallError{Op: OpUploadFile, Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &apperr.RemoteCallError{Op: OpUploadFile, Err: err}
	}

	resp, err := c.do(ctx, OpUploadFile, c.cfg.UploadPath, mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}

	out := &models.UploadResponse{}
	body := bytes.TrimSpace(resp.body)
	if len(body) == 0 || !json.Valid(body) {
		return out, nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err == nil {
		out.Raw = compact.Bytes()
	}
	if obj, err := firstObject(body); err == nil {
		out.URL = rawString(obj["url"])
	}
	return out, nil
}

// CreateAd creates the final ad for an ad set. The response body is ignored;
// success is judged by status alone.
func (c *Client) CreateAd(ctx context.Context, adSetID string) error {
	_, err := c.postJSON(ctx, OpCreateAd, c.cfg.AdPath, createAdRequest{AdSetID: adSetID})
	return err
}

func adSetFromRequest(req CreateAdSetRequest) (*models.AdSet, error) {
	adSet := &models.AdSet{
		Name:             req.Name,
		CampaignID:       req.CampaignID,
		DailyBudgetCents: req.DailyBudget,
		BillingEvent:     req.BillingEvent,
		OptimizationGoal: req.OptimizationGoal,
		BidStrategy:      req.BidStrategy,
		Targeting:        req.Targeting,
		Status:           req.Status,
	}
	start, err := ParseTime(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	adSet.StartTime = start
	if req.EndTime != "" {
		end, err := ParseTime(req.EndTime)
		if err != nil {
			return nil, fmt.Errorf("end_time: %w", err)
		}
		adSet.EndTime = &end
	}
	return adSet, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
