package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"taskboard/internal/domain"
)

// Writer appends domain events to the audit log. Append runs inside the
// caller's transaction so events and the state change commit or roll back
// together.
type Writer struct {
	DB *sql.DB
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, actorID string, evt domain.DomainEvent) error {
	payload := evt.Payload()
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	ts := evt.OccurredAt().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,correlation_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evt.EventName(), evt.EntityKind(), evt.EntityID(), actorID, evt.CorrelationID().String(), string(data))
	return err
}

// AppendAll drains the aggregate's pending events into the log and clears
// them, so a retried save never duplicates history.
func (w Writer) AppendAll(ctx context.Context, tx *sql.Tx, actorID string, agg domain.AggregateRoot) error {
	for _, evt := range agg.PendingEvents() {
		if err := w.Append(ctx, tx, actorID, evt); err != nil {
			return err
		}
	}
	agg.ClearEvents()
	return nil
}
