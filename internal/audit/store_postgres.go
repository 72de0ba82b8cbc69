package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agora/pkg/domain"
	"agora/pkg/platform/tx"
)

// PostgresStore persists the audit trail next to the ledger. Appends join a
// caller transaction from the context, so a moderation write and its audit
// row commit together.
type PostgresStore struct {
	db *sql.DB
}

const postgresAuditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          UUID PRIMARY KEY,
	category    TEXT NOT NULL,
	action      TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	actor       TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	entity_id   TEXT NOT NULL DEFAULT '',
	collection  TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events(actor) WHERE actor != '';
CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_events(ts);
`

// NewPostgresStore ensures the schema and returns a store over db.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, postgresAuditSchema); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) executor(ctx context.Context) dbExecutor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO audit_events (id, category, action, ts, actor, subject, entity_id, collection, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.executor(ctx).ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		string(event.Action),
		event.Timestamp,
		event.Actor.String(),
		event.Subject.String(),
		event.Entity.String(),
		event.Collection.String(),
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT category, action, ts, actor, subject, entity_id, collection, reason, request_id
		FROM audit_events ORDER BY ts DESC LIMIT $1
	`
	rows, err := s.executor(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	// Oldest first, matching the memory store.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actor string) ([]Event, error) {
	const query = `
		SELECT category, action, ts, actor, subject, entity_id, collection, reason, request_id
		FROM audit_events WHERE actor = $1 ORDER BY ts
	`
	rows, err := s.executor(ctx).QueryContext(ctx, query, actor)
	if err != nil {
		return nil, fmt.Errorf("list audit events by actor: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			ev         Event
			category   string
			action     string
			ts         time.Time
			actor      string
			subject    string
			entityID   string
			collection string
		)
		if err := rows.Scan(&category, &action, &ts, &actor, &subject, &entityID, &collection, &ev.Reason, &ev.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Category = Category(category)
		ev.Action = Action(action)
		ev.Timestamp = ts.UTC()
		ev.Actor = domain.AgentID(actor)
		ev.Subject = domain.AgentID(subject)
		ev.Entity = domain.RecordID(entityID)
		ev.Collection = domain.Collection(collection)
		events = append(events, ev)
	}
	return events, rows.Err()
}
