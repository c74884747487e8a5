package storage

import (
	"context"
	"errors"

	"github.com/radiusdt/campaign-studio/internal/models"
)

// =============================================
// DRAFT SLOTS
// =============================================

// ErrSlotEmpty is returned by SlotStore.Get when nothing is stored.
var ErrSlotEmpty = errors.New("draft slot empty")

// SlotStore persists one opaque serialized draft per client key. Last
// writer wins; there is no versioning.
type SlotStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op when the slot is empty.
	Delete(ctx context.Context, key string) error
	// Backend names the implementation for logs and metrics.
	Backend() string
}

// =============================================
// WIZARD EVENTS
// =============================================

// EventStore records wizard audit events.
type EventStore interface {
	Record(ctx context.Context, ev *models.WizardEvent) error
	// ListByClient returns the most recent events first.
	ListByClient(ctx context.Context, clientID string, limit int) ([]*models.WizardEvent, error)
}
