// Package wizard drives the four-step campaign-creation flow: campaign, ad
// set, creative upload and review.
package wizard

import (
	"fmt"

	"github.com/radiusdt/campaign-studio/internal/models"
)

// Step is a wizard step, numbered from 1.
type Step int

const (
	StepCampaign Step = iota + 1
	StepAdSet
	StepUpload
	StepReview
)

// TotalSteps is the number of wizard steps.
const TotalSteps = 4

var stepNames = map[Step]string{
	StepCampaign: "campaign",
	StepAdSet:    "adset",
	StepUpload:   "upload",
	StepReview:   "review",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid reports whether s is within [1, TotalSteps].
func (s Step) Valid() bool {
	return s >= StepCampaign && s <= StepReview
}

// ResumeStep returns the latest step whose prerequisites are satisfied by
// session. The review step requires every upload to have succeeded.
func ResumeStep(session *models.CreationSession) Step {
	switch {
	case session.CampaignID() == "":
		return StepCampaign
	case session.AdSetID() == "":
		return StepAdSet
	case models.AllFulfilled(session.Uploads):
		return StepReview
	default:
		return StepUpload
	}
}
