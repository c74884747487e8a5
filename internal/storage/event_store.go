package storage

import (
	"context"
	"sync"

	"github.com/radiusdt/campaign-studio/internal/models"
)

const defaultMaxEventsPerClient = 500

// InMemoryEventStore keeps the most recent events of each client in memory.
type InMemoryEventStore struct {
	mu       sync.RWMutex
	byClient map[string][]*models.WizardEvent
	// maxPerClient bounds each client's history; older events are dropped.
	maxPerClient int
}

// NewInMemoryEventStore creates a new in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return NewInMemoryEventStoreWithLimit(defaultMaxEventsPerClient)
}

// NewInMemoryEventStoreWithLimit creates a store that keeps at most
// maxPerClient events per client.
func NewInMemoryEventStoreWithLimit(maxPerClient int) *InMemoryEventStore {
	if maxPerClient <= 0 {
		maxPerClient = defaultMaxEventsPerClient
	}
	return &InMemoryEventStore{
		byClient:     make(map[string][]*models.WizardEvent),
		maxPerClient: maxPerClient,
	}
}

func (s *InMemoryEventStore) Record(ctx context.Context, ev *models.WizardEvent) error {
	if ev == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ev
	events := append(s.byClient[ev.ClientID], &cp)
	if len(events) > s.maxPerClient {
		// Copied so the old backing array, and the dropped events, are freed.
		events = append([]*models.WizardEvent(nil), events[len(events)-s.maxPerClient:]...)
	}
	s.byClient[ev.ClientID] = events
	return nil
}

func (s *InMemoryEventStore) ListByClient(ctx context.Context, clientID string, limit int) ([]*models.WizardEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byClient[clientID]
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	result := make([]*models.WizardEvent, 0, limit)
	for i := len(events) - 1; i >= 0 && len(result) < limit; i-- {
		cp := *events[i]
		result = append(result, &cp)
	}
	return result, nil
}

// Retained returns the number of events held for clientID.
func (s *InMemoryEventStore) Retained(clientID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byClient[clientID])
}
