package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/radiusdt/campaign-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventStore_ListByClient(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, &models.WizardEvent{
			ID:        fmt.Sprintf("a-%d", i),
			ClientID:  "a",
			Type:      models.EventCampaignCreated,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Record(ctx, &models.WizardEvent{ID: "b-0", ClientID: "b"}))

	events, err := store.ListByClient(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a-2", events[0].ID)
	assert.Equal(t, "a-1", events[1].ID)

	all, err := store.ListByClient(ctx, "a", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.ListByClient(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryEventStore_CopiesEvents(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore()
	ev := &models.WizardEvent{ID: "1", ClientID: "a", Detail: "before"}
	require.NoError(t, store.Record(ctx, ev))

	ev.Detail = "after"
	events, err := store.ListByClient(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, "before", events[0].Detail)
}

func TestInMemoryEventStore_BoundsHistoryPerClient(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStoreWithLimit(50)

	for i := 0; i < 5000; i++ {
		require.NoError(t, store.Record(ctx, &models.WizardEvent{ID: fmt.Sprintf("a-%d", i), ClientID: "a"}))
	}
	require.NoError(t, store.Record(ctx, &models.WizardEvent{ID: "b-0", ClientID: "b"}))

	assert.Equal(t, 50, store.Retained("a"))
	assert.Equal(t, 1, store.Retained("b"))

	events, err := store.ListByClient(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, events, 50)
	assert.Equal(t, "a-4999", events[0].ID)
	assert.Equal(t, "a-4950", events[49].ID)
}
