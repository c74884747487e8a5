package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/metrics"
	"github.com/radiusdt/campaign-studio/internal/models"
	"go.uber.org/zap"
)

// Drafts is the draft store of the campaign-creation wizard. It serializes
// sessions into a SlotStore and never surfaces read failures to callers.
type Drafts struct {
	slots   SlotStore
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewDrafts creates a draft store over slots.
func NewDrafts(slots SlotStore, logger *zap.Logger, m *metrics.Metrics) *Drafts {
	return &Drafts{
		slots:   slots,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Save serializes session and writes it under key.
func (d *Drafts) Save(ctx context.Context, key string, session *models.CreationSession) error {
	if session == nil {
		session = models.NewCreationSession()
	}
	session.UpdatedAt = d.now().UTC()

	payload, err := EncodeSession(session)
	if err != nil {
		d.metrics.RecordDraftOp(d.slots.Backend(), "save", err)
		return &apperr.PersistenceError{Op: "save", Err: err}
	}

	err = d.slots.Set(ctx, key, payload)
	d.metrics.RecordDraftOp(d.slots.Backend(), "save", err)
	if err != nil {
		d.logger.Warn("failed to save draft",
			zap.String("client_id", key),
			zap.String("backend", d.slots.Backend()),
			zap.Error(err),
		)
		return &apperr.PersistenceError{Op: "save", Err: err}
	}

	d.logger.Debug("draft saved",
		zap.String("client_id", key),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

// Load returns the stored session, or nil when absent, unreadable or
// unparseable. Failures are logged only.
func (d *Drafts) Load(ctx context.Context, key string) *models.CreationSession {
	payload, err := d.slots.Get(ctx, key)
	if errors.Is(err, ErrSlotEmpty) {
		d.metrics.RecordDraftOp(d.slots.Backend(), "load", nil)
		return nil
	}
	if err != nil {
		d.metrics.RecordDraftOp(d.slots.Backend(), "load", err)
		d.logger.Warn("failed to read draft, treating as absent",
			zap.String("client_id", key),
			zap.String("backend", d.slots.Backend()),
			zap.Error(err),
		)
		return nil
	}

	session, err := DecodeSession(payload)
	d.metrics.RecordDraftOp(d.slots.Backend(), "load", err)
	if err != nil {
		d.logger.Warn("failed to parse draft, treating as absent",
			zap.String("client_id", key),
			zap.Error(&apperr.PersistenceError{Op: "load", Err: err}),
		)
		return nil
	}
	return session
}

// Clear removes the stored draft. Clearing an absent draft is not an error.
func (d *Drafts) Clear(ctx context.Context, key string) error {
	err := d.slots.Delete(ctx, key)
	d.metrics.RecordDraftOp(d.slots.Backend(), "clear", err)
	if err != nil {
		return &apperr.PersistenceError{Op: "clear", Err: err}
	}
	return nil
}

// EncodeSession serializes a session. Local file references are dropped.
func EncodeSession(s *models.CreationSession) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSession parses a serialized session. A JSON null is an error so
// that it is treated as no draft.
func DecodeSession(payload string) (*models.CreationSession, error) {
	var s *models.CreationSession
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("empty draft payload")
	}
	return s, nil
}
