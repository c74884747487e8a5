package models

import "time"

type WizardEventType string

const (
	EventWizardOpened    WizardEventType = "wizard_opened"
	EventWizardResumed   WizardEventType = "wizard_resumed"
	EventCampaignCreated WizardEventType = "campaign_created"
	EventAdSetCreated    WizardEventType = "adset_created"
	EventUploadSettled   WizardEventType = "upload_settled"
	EventAdCreated       WizardEventType = "ad_created"
	EventStepFailed      WizardEventType = "step_failed"
	EventWizardDiscarded WizardEventType = "wizard_discarded"
)

// WizardEvent is an audit record of a wizard transition.
type WizardEvent struct {
	ID         string          `json:"id"`
	ClientID   string          `json:"client_id"`
	Type       WizardEventType `json:"type"`
	Step       int             `json:"step"`
	CampaignID string          `json:"campaign_id,omitempty"`
	AdSetID    string          `json:"adset_id,omitempty"`
	// Detail is a short description: the created name, the upload tally or
	// the failure message.
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
