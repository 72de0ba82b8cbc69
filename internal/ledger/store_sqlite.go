package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// SQLiteStore persists the ledger in an embedded database: the default for a
// standalone agent node, which owns its log and needs no server.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	author      TEXT NOT NULL,
	ts_micros   INTEGER NOT NULL,
	predecessor TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	collection  TEXT NOT NULL DEFAULT '',
	target      TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	entry       BLOB,
	signature   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_predecessor ON records(predecessor) WHERE predecessor != '';
CREATE INDEX IF NOT EXISTS idx_records_target ON records(target, kind) WHERE target != '';
CREATE INDEX IF NOT EXISTS idx_records_subject ON records(subject) WHERE subject != '';
CREATE INDEX IF NOT EXISTS idx_records_roots ON records(collection, kind) WHERE predecessor = '';
CREATE INDEX IF NOT EXISTS idx_records_author ON records(author, collection) WHERE predecessor = '';
CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind) WHERE kind IN ('grant', 'revoke');
`

// OpenSQLite opens (creating if needed) the ledger database at path.
// Use ":memory:" for throwaway stores in tests.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// Single writer; WAL lets readers proceed during appends.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// NewSQLiteStore ensures the schema and returns a store over db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, author, ts_micros, predecessor, kind, collection, target, subject, entry, signature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Author.String(), rec.Timestamp.UnixMicro(), rec.Predecessor.String(),
		string(rec.Kind), rec.Collection.String(), rec.Target.String(), rec.Subject.String(),
		[]byte(rec.Entry), rec.Signature,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id domain.RecordID) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecords+` WHERE id = ?`, id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Updates(ctx context.Context, id domain.RecordID) ([]Record, error) {
	return s.query(ctx, selectRecords+` WHERE predecessor = ? ORDER BY ts_micros, id`, id.String())
}

func (s *SQLiteStore) Deletes(ctx context.Context, id domain.RecordID) ([]Record, error) {
	return s.query(ctx, selectRecords+` WHERE target = ? AND kind = ? ORDER BY ts_micros, id`,
		id.String(), string(KindTombstone))
}

func (s *SQLiteStore) Originals(ctx context.Context, c domain.Collection) ([]Record, error) {
	return s.query(ctx, selectRecords+` WHERE collection = ? AND kind = ? AND predecessor = '' ORDER BY ts_micros, id`,
		c.String(), string(KindEntity))
}

func (s *SQLiteStore) ByTarget(ctx context.Context, id domain.RecordID, kind Kind) ([]Record, error) {
	return s.query(ctx, selectRecords+` WHERE target = ? AND kind = ? ORDER BY ts_micros, id`,
		id.String(), string(kind))
}

func (s *SQLiteStore) BySubject(ctx context.Context, agent domain.AgentID) ([]Record, error) {
	return s.query(ctx, selectRecords+` WHERE subject = ? ORDER BY ts_micros, id`, agent.String())
}

func (s *SQLiteStore) ByKind(ctx context.Context, kind Kind) ([]Record, error) {
	return s.query(ctx, selectRecords+` WHERE kind = ? ORDER BY ts_micros, id`, string(kind))
}

func (s *SQLiteStore) AuthorOriginals(ctx context.Context, agent domain.AgentID, c domain.Collection) ([]Record, error) {
	return s.query(ctx, selectRecords+` WHERE author = ? AND collection = ? AND kind = ? AND predecessor = '' ORDER BY ts_micros, id`,
		agent.String(), c.String(), string(KindEntity))
}

const selectRecords = `SELECT id, author, ts_micros, predecessor, kind, collection, target, subject, entry, signature FROM records`

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
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
