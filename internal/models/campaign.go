package models

import (
	"errors"
	"time"
)

type CampaignStatus string

const (
	CampaignStatusActive CampaignStatus = "ACTIVE"
	CampaignStatusPaused CampaignStatus = "PAUSED"
)

// Valid reports whether the status can be sent to the ads API.
func (s CampaignStatus) Valid() bool {
	return s == CampaignStatusActive || s == CampaignStatusPaused
}

type CampaignObjective string

const (
	ObjectiveLinkClicks     CampaignObjective = "LINK_CLICKS"
	ObjectiveConversions    CampaignObjective = "CONVERSIONS"
	ObjectiveReach          CampaignObjective = "REACH"
	ObjectiveBrandAwareness CampaignObjective = "BRAND_AWARENESS"
	ObjectiveVideoViews     CampaignObjective = "VIDEO_VIEWS"
	ObjectiveLeadGeneration CampaignObjective = "LEAD_GENERATION"
)

// Valid reports whether o is an objective the ads API accepts.
func (o CampaignObjective) Valid() bool {
	switch o {
	case ObjectiveLinkClicks, ObjectiveConversions, ObjectiveReach,
		ObjectiveBrandAwareness, ObjectiveVideoViews, ObjectiveLeadGeneration:
		return true
	}
	return false
}

// Campaign is the top-level advertising container created by wizard step 1.
type Campaign struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Objective CampaignObjective `json:"objective,omitempty"`
	Status    CampaignStatus    `json:"status,omitempty"`
}

// Interest is a detailed-targeting interest of the ads API.
type Interest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GeoLocations restricts delivery to a set of countries.
type GeoLocations struct {
	Countries []string `json:"countries"`
}

// FlexibleSpec groups interests that are OR-ed together.
type FlexibleSpec struct {
	Interests []Interest `json:"interests,omitempty"`
}

// Targeting is the audience definition sent with an ad set.
type Targeting struct {
	GeoLocations       GeoLocations   `json:"geo_locations"`
	FlexibleSpec       []FlexibleSpec `json:"flexible_spec,omitempty"`
	AgeMin             int            `json:"age_min"`
	AgeMax             int            `json:"age_max"`
	PublisherPlatforms []string       `json:"publisher_platforms,omitempty"`
	DevicePlatforms    []string       `json:"device_platforms,omitempty"`
}

const (
	MinTargetAge = 13
	MaxTargetAge = 65
)

// Validate checks the age range and geo restriction.
func (t *Targeting) Validate() error {
	if len(t.GeoLocations.Countries) == 0 {
		return errors.New("at least one country is required")
	}
	if t.AgeMin < MinTargetAge || t.AgeMax > MaxTargetAge {
		return errors.New("age range must be within 13-65")
	}
	if t.AgeMin > t.AgeMax {
		return errors.New("age_min must not exceed age_max")
	}
	return nil
}

// AdSet is the targeting/budget/schedule unit created by wizard step 2.
type AdSet struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	CampaignID       string         `json:"campaign_id"`
	DailyBudgetCents int64          `json:"daily_budget"`
	BillingEvent     string         `json:"billing_event,omitempty"`
	OptimizationGoal string         `json:"optimization_goal,omitempty"`
	BidStrategy      string         `json:"bid_strategy,omitempty"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          *time.Time     `json:"end_time,omitempty"`
	Targeting        Targeting      `json:"targeting"`
	Status           CampaignStatus `json:"status,omitempty"`
}
