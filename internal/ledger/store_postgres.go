package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"agora/pkg/domain"
	"agora/pkg/platform/sentinel"
	"agora/pkg/platform/tx"
)

// PostgresStore persists the ledger in postgres: the hosted deployment shape,
// where one node serves many UI processes and shares the database with the
// audit trail.
//
// Writes join a caller transaction when one is present in the context (see
// pkg/platform/tx), so an entity record and its initial status record commit
// atomically.
type PostgresStore struct {
	db *sql.DB
}

// dbExecutor abstracts *sql.DB and *sql.Tx.
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_records (
	id          TEXT PRIMARY KEY,
	author      TEXT NOT NULL,
	ts_micros   BIGINT NOT NULL,
	predecessor TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	collection  TEXT NOT NULL DEFAULT '',
	target      TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	entry       BYTEA,
	signature   BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_predecessor ON ledger_records(predecessor) WHERE predecessor != '';
CREATE INDEX IF NOT EXISTS idx_ledger_target ON ledger_records(target, kind) WHERE target != '';
CREATE INDEX IF NOT EXISTS idx_ledger_subject ON ledger_records(subject) WHERE subject != '';
CREATE INDEX IF NOT EXISTS idx_ledger_roots ON ledger_records(collection, kind) WHERE predecessor = '';
CREATE INDEX IF NOT EXISTS idx_ledger_author ON ledger_records(author, collection) WHERE predecessor = '';
CREATE INDEX IF NOT EXISTS idx_ledger_kind ON ledger_records(kind) WHERE kind IN ('grant', 'revoke');
`

// NewPostgresStore ensures the schema and returns a store over db.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// executor returns the context transaction when present, else the pool.
func (s *PostgresStore) executor(ctx context.Context) dbExecutor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	_, err := s.executor(ctx).ExecContext(ctx,
		`INSERT INTO ledger_records (id, author, ts_micros, predecessor, kind, collection, target, subject, entry, signature)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID.String(), rec.Author.String(), rec.Timestamp.UnixMicro(), rec.Predecessor.String(),
		string(rec.Kind), rec.Collection.String(), rec.Target.String(), rec.Subject.String(),
		[]byte(rec.Entry), rec.Signature,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.RecordID) (Record, error) {
	row := s.executor(ctx).QueryRowContext(ctx, selectLedgerRecords+` WHERE id = $1`, id.String())
	rec, err := scanPostgresRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Updates(ctx context.Context, id domain.RecordID) ([]Record, error) {
	return s.query(ctx, selectLedgerRecords+` WHERE predecessor = $1 ORDER BY ts_micros, id`, id.String())
}

func (s *PostgresStore) Deletes(ctx context.Context, id domain.RecordID) ([]Record, error) {
	return s.query(ctx, selectLedgerRecords+` WHERE target = $1 AND kind = $2 ORDER BY ts_micros, id`,
		id.String(), string(KindTombstone))
}

func (s *PostgresStore) Originals(ctx context.Context, c domain.Collection) ([]Record, error) {
	return s.query(ctx, selectLedgerRecords+` WHERE collection = $1 AND kind = $2 AND predecessor = '' ORDER BY ts_micros, id`,
		c.String(), string(KindEntity))
}

func (s *PostgresStore) ByTarget(ctx context.Context, id domain.RecordID, kind Kind) ([]Record, error) {
	return s.query(ctx, selectLedgerRecords+` WHERE target = $1 AND kind = $2 ORDER BY ts_micros, id`,
		id.String(), string(kind))
}

func (s *PostgresStore) BySubject(ctx context.Context, agent domain.AgentID) ([]Record, error) {
	return s.query(ctx, selectLedgerRecords+` WHERE subject = $1 ORDER BY ts_micros, id`, agent.String())
}

func (s *PostgresStore) ByKind(ctx context.Context, kind Kind) ([]Record, error) {
	return s.query(ctx, selectLedgerRecords+` WHERE kind = $1 ORDER BY ts_micros, id`, string(kind))
}

func (s *PostgresStore) AuthorOriginals(ctx context.Context, agent domain.AgentID, c domain.Collection) ([]Record, error) {
	return s.query(ctx, selectLedgerRecords+` WHERE author = $1 AND collection = $2 AND kind = $3 AND predecessor = '' ORDER BY ts_micros, id`,
		agent.String(), c.String(), string(KindEntity))
}

const selectLedgerRecords = `SELECT id, author, ts_micros, predecessor, kind, collection, target, subject, entry, signature FROM ledger_records`

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.executor(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanPostgresRecord(row rowScanner) (Record, error) {
	var (
		rec      Record
		id       string
		author   string
		tsMicros int64
		pred     string
		kind     string
		coll     string
		target   string
		subject  string
		entry    []byte
	)
	if err := row.Scan(&id, &author, &tsMicros, &pred, &kind, &coll, &target, &subject, &entry, &rec.Signature); err != nil {
		return Record{}, err
	}
	rec.ID = domain.RecordID(id)
	rec.Author = domain.AgentID(author)
	rec.Timestamp = time.UnixMicro(tsMicros).UTC()
	rec.Predecessor = domain.RecordID(pred)
	rec.Kind = Kind(kind)
	rec.Collection = domain.Collection(coll)
	rec.Target = domain.RecordID(target)
	rec.Subject = domain.AgentID(subject)
	if len(entry) > 0 {
		rec.Entry = entry
	}
	return rec, nil
}
