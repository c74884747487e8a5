package wizard

import (
	"fmt"
	"strings"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/models"
	"github.com/radiusdt/campaign-studio/internal/remote"
)

// Default audience age range when none is given.
const (
	DefaultAgeMin = 18
	DefaultAgeMax = models.MaxTargetAge
)

// CampaignInput is the form of step 1.
type CampaignInput struct {
	Name      string                   `json:"name"`
	Objective models.CampaignObjective `json:"objective,omitempty"`
	Status    models.CampaignStatus    `json:"status,omitempty"`
}

// AdSetInput is the form of step 2. Times accept RFC 3339 or date-picker
// formats; an empty start time means now.
type AdSetInput struct {
	Name               string                `json:"name"`
	DailyBudgetCents   int64                 `json:"daily_budget"`
	BillingEvent       string                `json:"billing_event,omitempty"`
	OptimizationGoal   string                `json:"optimization_goal,omitempty"`
	BidStrategy        string                `json:"bid_strategy,omitempty"`
	StartTime          string                `json:"start_time,omitempty"`
	EndTime            string                `json:"end_time,omitempty"`
	AgeMin             int                   `json:"age_min,omitempty"`
	AgeMax             int                   `json:"age_max,omitempty"`
	Interests          []models.Interest     `json:"interests,omitempty"`
	PublisherPlatforms []string              `json:"publisher_platforms,omitempty"`
	DevicePlatforms    []string              `json:"device_platforms,omitempty"`
	Status             models.CampaignStatus `json:"status,omitempty"`
}

func (c *Controller) campaignRequest(in CampaignInput) (remote.CreateCampaignRequest, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return remote.CreateCampaignRequest{}, apperr.Validation("name", "campaign name is required")
	}

	req := remote.CreateCampaignRequest{
		Name:                name,
		Objective:           in.Objective,
		Status:              in.Status,
		SpecialAdCategories: []string{},
	}
	if req.Objective == "" {
		req.Objective = models.CampaignObjective(c.opts.DefaultObjective)
	}
	if req.Status == "" {
		req.Status = models.CampaignStatus(c.opts.DefaultStatus)
	}
	if !req.Objective.Valid() {
		return remote.CreateCampaignRequest{}, apperr.Validation("objective", fmt.Sprintf("unknown objective %q", req.Objective))
	}
	if !req.Status.Valid() {
		return remote.CreateCampaignRequest{}, apperr.Validation("status", "status must be ACTIVE or PAUSED")
	}
	return req, nil
}

func (c *Controller) adSetRequest(in AdSetInput, campaignID string) (remote.CreateAdSetRequest, error) {
	if in.DailyBudgetCents <= 0 {
		return remote.CreateAdSetRequest{}, apperr.Validation("daily_budget", "daily budget must be greater than zero")
	}

	start := c.now().UTC()
	if in.StartTime != "" {
		t, err := remote.ParseTime(in.StartTime)
		if err != nil {
			return remote.CreateAdSetRequest{}, apperr.Validation("start_time", err.Error())
		}
		start = t
	}
	var end string
	if in.EndTime != "" {
		t, err := remote.ParseTime(in.EndTime)
		if err != nil {
			return remote.CreateAdSetRequest{}, apperr.Validation("end_time", err.Error())
		}
		if !t.After(start) {
			return remote.CreateAdSetRequest{}, apperr.Validation("end_time", "end time must be after the start time")
		}
		end = remote.FormatTime(t)
	}

	targeting := BuildTargeting(in, c.opts.Countries)
	if err := targeting.Validate(); err != nil {
		return remote.CreateAdSetRequest{}, apperr.Validation("targeting", err.Error())
	}

	req := remote.CreateAdSetRequest{
		Name:             strings.TrimSpace(in.Name),
		CampaignID:       campaignID,
		DailyBudget:      in.DailyBudgetCents,
		BillingEvent:     firstNonEmpty(in.BillingEvent, c.opts.DefaultBillingEvent),
		OptimizationGoal: firstNonEmpty(in.OptimizationGoal, c.opts.DefaultOptimizationGoal),
		BidStrategy:      firstNonEmpty(in.BidStrategy, c.opts.DefaultBidStrategy),
		StartTime:        remote.FormatTime(start),
		EndTime:          end,
		Targeting:        targeting,
		Status:           in.Status,
	}
	if req.Status == "" {
		req.Status = models.CampaignStatus(c.opts.DefaultStatus)
	}
	if !req.Status.Valid() {
		return remote.CreateAdSetRequest{}, apperr.Validation("status", "status must be ACTIVE or PAUSED")
	}
	return req, nil
}

// BuildTargeting assembles the audience of an ad set. Geo is always the
// configured country set, never user input.
func BuildTargeting(in AdSetInput, countries []string) models.Targeting {
	t := models.Targeting{
		GeoLocations:       models.GeoLocations{Countries: append([]string(nil), countries...)},
		AgeMin:             in.AgeMin,
		AgeMax:             in.AgeMax,
		PublisherPlatforms: nonEmpty(in.PublisherPlatforms),
		DevicePlatforms:    nonEmpty(in.DevicePlatforms),
	}
	if t.AgeMin == 0 {
		t.AgeMin = DefaultAgeMin
	}
	if t.AgeMax == 0 {
		t.AgeMax = DefaultAgeMax
	}

	var interests []models.Interest
	for _, i := range in.Interests {
		if strings.TrimSpace(i.ID) == "" {
			continue
		}
		interests = append(interests, i)
	}
	if len(interests) > 0 {
		t.FlexibleSpec = []models.FlexibleSpec{{Interests: interests}}
	}
	return t
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
