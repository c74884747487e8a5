package models

import (
	"encoding/json"
	"strings"
	"time"
)

type UploadStatus string

const (
	UploadFulfilled UploadStatus = "fulfilled"
	UploadRejected  UploadStatus = "rejected"
)

// FileMeta describes an uploaded (or attempted) creative file.
type FileMeta struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	ByteSize int64  `json:"byte_size"`
	// URL is the hosted location returned by the upload endpoint.
	URL string `json:"url,omitempty"`
	// LocalRef is an ephemeral reference valid only for this process. It is
	// never persisted.
	LocalRef string `json:"-"`
}

// AccessibleURL returns the remote URL when known, else the local reference.
func (m FileMeta) AccessibleURL() string {
	if m.URL != "" {
		return m.URL
	}
	return m.LocalRef
}

// UploadOutcome is the settled result of uploading one file.
type UploadOutcome struct {
	Status UploadStatus `json:"status"`
	File   FileMeta     `json:"file"`
	// Response is the raw remote response body of a fulfilled upload.
	Response json.RawMessage `json:"response,omitempty"`
	// Reason describes why a rejected upload failed.
	Reason string `json:"reason,omitempty"`
}

// Fulfilled reports whether the upload succeeded.
func (o UploadOutcome) Fulfilled() bool {
	return o.Status == UploadFulfilled
}

// AllFulfilled reports whether every outcome succeeded. An empty slice is
// not considered a success.
func AllFulfilled(outcomes []UploadOutcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if !o.Fulfilled() {
			return false
		}
	}
	return true
}

// PendingFile is a file selected in the wizard but not yet uploaded.
type PendingFile struct {
	Name     string
	MimeType string
	Data     []byte
	LocalRef string
}

// Size returns the file size in bytes.
func (f PendingFile) Size() int64 {
	return int64(len(f.Data))
}

// HasMIMEPrefix reports whether the file MIME type starts with one of prefixes.
func (f PendingFile) HasMIMEPrefix(prefixes []string) bool {
	mt := strings.ToLower(f.MimeType)
	for _, p := range prefixes {
		if strings.HasPrefix(mt, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Meta returns the file metadata before upload.
func (f PendingFile) Meta() FileMeta {
	return FileMeta{
		Name:     f.Name,
		MimeType: f.MimeType,
		ByteSize: f.Size(),
		LocalRef: f.LocalRef,
	}
}

// CreationSession is the resumable state of one campaign-creation wizard.
// AdSet is only set once Campaign has an ID; Uploads only once AdSet is set.
type CreationSession struct {
	Campaign  *Campaign       `json:"campaign,omitempty"`
	AdSet     *AdSet          `json:"ad_set,omitempty"`
	Uploads   []UploadOutcome `json:"uploads,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}

// NewCreationSession returns an empty session.
func NewCreationSession() *CreationSession {
	return &CreationSession{}
}

// IsEmpty reports whether no step has completed.
func (s *CreationSession) IsEmpty() bool {
	return s == nil || (s.Campaign == nil && s.AdSet == nil && len(s.Uploads) == 0)
}

// CampaignID returns the created campaign ID or "".
func (s *CreationSession) CampaignID() string {
	if s == nil || s.Campaign == nil {
		return ""
	}
	return s.Campaign.ID
}

// AdSetID returns the created ad set ID or "".
func (s *CreationSession) AdSetID() string {
	if s == nil || s.AdSet == nil {
		return ""
	}
	return s.AdSet.ID
}

// Clone returns a deep copy so callers can render a snapshot without holding
// the wizard lock.
func (s *CreationSession) Clone() *CreationSession {
	if s == nil {
		return nil
	}
	cp := &CreationSession{UpdatedAt: s.UpdatedAt}
	if s.Campaign != nil {
		c := *s.Campaign
		cp.Campaign = &c
	}
	if s.AdSet != nil {
		a := *s.AdSet
		if s.AdSet.EndTime != nil {
			end := *s.AdSet.EndTime
			a.EndTime = &end
		}
		a.Targeting.GeoLocations.Countries = append([]string(nil), s.AdSet.Targeting.GeoLocations.Countries...)
		a.Targeting.PublisherPlatforms = append([]string(nil), s.AdSet.Targeting.PublisherPlatforms...)
		a.Targeting.DevicePlatforms = append([]string(nil), s.AdSet.Targeting.DevicePlatforms...)
		if s.AdSet.Targeting.FlexibleSpec != nil {
			a.Targeting.FlexibleSpec = make([]FlexibleSpec, len(s.AdSet.Targeting.FlexibleSpec))
			for i, fs := range s.AdSet.Targeting.FlexibleSpec {
				a.Targeting.FlexibleSpec[i] = FlexibleSpec{Interests: append([]Interest(nil), fs.Interests...)}
			}
		}
		cp.AdSet = &a
	}
	if s.Uploads != nil {
		cp.Uploads = make([]UploadOutcome, len(s.Uploads))
		for i, o := range s.Uploads {
			o.Response = append(json.RawMessage(nil), o.Response...)
			cp.Uploads[i] = o
		}
	}
	return cp
}

// UploadResponse is what an upload backend returned for one file.
type UploadResponse struct {
	// URL is the hosted location, empty when the backend returned none.
	URL string
	// Raw is the compacted response body, if it was JSON.
	Raw json.RawMessage
}
