package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/campaign-studio/internal/models"
)

// EventSchema creates the table backing ClickHouseEventStore.
const EventSchema = `
CREATE TABLE IF NOT EXISTS wizard_events (
	id          String,
	client_id   String,
	type        LowCardinality(String),
	step        UInt8,
	campaign_id String,
	adset_id    String,
	detail      String,
	timestamp   DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (client_id, timestamp)`

// ClickHouseEventStore implements EventStore on a ClickHouse table.
type ClickHouseEventStore struct {
	conn driver.Conn
}

// NewClickHouseEventStore creates a ClickHouse-backed event store.
func NewClickHouseEventStore(conn driver.Conn) *ClickHouseEventStore {
	return &ClickHouseEventStore{conn: conn}
}

// Migrate creates the events table if needed.
func (s *ClickHouseEventStore) Migrate(ctx context.Context) error {
	if err := s.conn.Exec(ctx, EventSchema); err != nil {
		return fmt.Errorf("failed to create wizard_events: %w", err)
	}
	return nil
}

func (s *ClickHouseEventStore) Record(ctx context.Context, ev *models.WizardEvent) error {
	if ev == nil {
		return nil
	}
	err := s.conn.Exec(ctx, `
		INSERT INTO wizard_events (id, client_id, type, step, campaign_id, adset_id, detail, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.ClientID, string(ev.Type), uint8(ev.Step), ev.CampaignID, ev.AdSetID, ev.Detail, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record wizard event: %w", err)
	}
	return nil
}

func (s *ClickHouseEventStore) ListByClient(ctx context.Context, clientID string, limit int) ([]*models.WizardEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, client_id, type, step, campaign_id, adset_id, detail, timestamp
		FROM wizard_events
		WHERE client_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wizard events: %w", err)
	}
	defer rows.Close()

	var events []*models.WizardEvent
	for rows.Next() {
		var (
			ev     models.WizardEvent
			evType string
			step   uint8
		)
		if err := rows.Scan(&ev.ID, &ev.ClientID, &evType, &step, &ev.CampaignID, &ev.AdSetID, &ev.Detail, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Type = models.WizardEventType(evType)
		ev.Step = int(step)
		events = append(events, &ev)
	}
	return events, rows.Err()
}
