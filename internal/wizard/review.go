package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/radiusdt/campaign-studio/internal/models"
)

// ReviewView is the view model of the review step.
type ReviewView struct {
	Campaign *CampaignSummary `json:"campaign,omitempty"`
	AdSet    *AdSetSummary    `json:"adset,omitempty"`
	Files    []FileSummary    `json:"files"`
	// Ready reports whether the ad can be created.
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing,omitempty"`
}

type CampaignSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Objective string `json:"objective"`
	Status    string `json:"status"`
}

type AdSetSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DailyBudget string   `json:"daily_budget"`
	Schedule    string   `json:"schedule"`
	Countries   []string `json:"countries"`
	AgeRange    string   `json:"age_range"`
	Interests   []string `json:"interests,omitempty"`
	Platforms   []string `json:"platforms,omitempty"`
	Devices     []string `json:"devices,omitempty"`
	Status      string   `json:"status"`
}

type FileSummary struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Size   string `json:"size"`
	URL    string `json:"url,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

const reviewTimeLayout = "2006-01-02 15:04 MST"

// RenderReview builds the review screen from session. It has no side
// effects and accepts a nil session.
func RenderReview(session *models.CreationSession) ReviewView {
	view := ReviewView{Files: []FileSummary{}}

	if session != nil && session.Campaign != nil {
		c := session.Campaign
		view.Campaign = &CampaignSummary{
			ID:        c.ID,
			Name:      c.Name,
			Objective: string(c.Objective),
			Status:    string(c.Status),
		}
	}

	if session != nil && session.AdSet != nil {
		a := session.AdSet
		summary := &AdSetSummary{
			ID:          a.ID,
			Name:        a.Name,
			DailyBudget: FormatCents(a.DailyBudgetCents),
			Schedule:    formatSchedule(a.StartTime, a.EndTime),
			Countries:   append([]string(nil), a.Targeting.GeoLocations.Countries...),
			AgeRange:    fmt.Sprintf("%d-%d", a.Targeting.AgeMin, a.Targeting.AgeMax),
			Platforms:   append([]string(nil), a.Targeting.PublisherPlatforms...),
			Devices:     append([]string(nil), a.Targeting.DevicePlatforms...),
			Status:      string(a.Status),
		}
		for _, spec := range a.Targeting.FlexibleSpec {
			for _, i := range spec.Interests {
				summary.Interests = append(summary.Interests, i.Name)
			}
		}
		view.AdSet = summary
	}

	if session != nil {
		for _, o := range session.Uploads {
			view.Files = append(view.Files, FileSummary{
				Name:   o.File.Name,
				Type:   o.File.MimeType,
				Size:   FormatBytes(o.File.ByteSize),
				URL:    o.File.AccessibleURL(),
				Status: string(o.Status),
				Reason: o.Reason,
			})
		}
	}

	if session.CampaignID() == "" {
		view.Missing = append(view.Missing, "campaign")
	}
	if session.AdSetID() == "" {
		view.Missing = append(view.Missing, "ad set")
	}
	if session == nil || !models.AllFulfilled(session.Uploads) {
		view.Missing = append(view.Missing, "creatives")
	}
	view.Ready = len(view.Missing) == 0
	return view
}

// FormatCents renders minor currency units as a decimal amount.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// FormatBytes renders a size with a binary unit, e.g. "1.5 MB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatSchedule(start time.Time, end *time.Time) string {
	var b strings.Builder
	b.WriteString(start.UTC().Format(reviewTimeLayout))
	if end != nil {
		b.WriteString(" to ")
		b.WriteString(end.UTC().Format(reviewTimeLayout))
	} else {
		b.WriteString(", no end date")
	}
	return b.String()
}
