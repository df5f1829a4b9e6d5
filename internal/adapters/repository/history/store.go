// Package history persists published snapshots in SQLite so past standings can
// be listed and replayed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/standings/internal/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at    INTEGER NOT NULL,
	entry_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	snapshot_id  INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	name         TEXT    NOT NULL,
	score        REAL    NOT NULL,
	point_change REAL    NOT NULL,
	PRIMARY KEY (snapshot_id, position)
);
`

const defaultRetention = 500

// entriesPerInsert keeps one multi-row INSERT (5 binds per row) under SQLite's
// historic 999 bind variable limit.
const entriesPerInsert = 190

// Option configures a Store.
type Option func(*Store)

// WithRetention keeps at most n snapshots; older ones are pruned on Append.
func WithRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retention = n
		}
	}
}

// Store provides SQLite-backed snapshot history.
type Store struct {
	db        *sql.DB
	retention int
	qb        sq.StatementBuilderType
}

// Open opens (or creates) the history database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite db: %w", err)
	}
	// one connection keeps writes serialized and pragmas applied
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}

	s := &Store{
		db:        db,
		retention: defaultRetention,
		qb:        sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores snap and prunes snapshots beyond the retention limit.
func (s *Store) Append(ctx context.Context, snap model.Snapshot) (id int64, err error) {
	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := s.qb.Insert("snapshots").
		Columns("taken_at", "entry_count").
		Values(takenAt.UTC().UnixMilli(), len(snap.Entries)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("history: build insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("history: insert snapshot: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("history: snapshot id: %w", err)
	}

	for start := 0; start < len(snap.Entries); start += entriesPerInsert {
		end := min(start+entriesPerInsert, len(snap.Entries))
		ins := s.qb.Insert("entries").Columns("snapshot_id", "position", "name", "score", "point_change")
		for i := start; i < end; i++ {
			e := snap.Entries[i]
			ins = ins.Values(id, i, e.Name, e.Score, e.PointChange)
		}
		if query, args, err = ins.ToSql(); err != nil {
			return 0, fmt.Errorf("history: build entries insert: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("history: insert entries: %w", err)
		}
	}

	if err = s.prune(ctx, tx); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return id, nil
}

func (s *Store) prune(ctx context.Context, tx *sql.Tx) error {
	keep := "SELECT id FROM snapshots ORDER BY id DESC LIMIT ?"
	for _, table := range []struct{ name, col string }{{"entries", "snapshot_id"}, {"snapshots", "id"}} {
		query, args, err := s.qb.Delete(table.name).
			Where(table.col+" NOT IN ("+keep+")", s.retention).
			ToSql()
		if err != nil {
			return fmt.Errorf("history: build prune: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("history: prune %s: %w", table.name, err)
		}
	}
	return nil
}

// Recent lists up to limit snapshots, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.HistorySummary, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	query, args, err := s.qb.Select("s.id", "s.taken_at", "s.entry_count", "COALESCE(e.name, '')", "COALESCE(e.score, 0)").
		From("snapshots s").
		LeftJoin("entries e ON e.snapshot_id = s.id AND e.position = 0").
		OrderBy("s.id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("history: build recent: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.HistorySummary, 0, limit)
	for rows.Next() {
		var (
			h       model.HistorySummary
			takenAt int64
		)
		if err := rows.Scan(&h.ID, &takenAt, &h.EntryCount, &h.Leader, &h.LeaderScore); err != nil {
			return nil, fmt.Errorf("history: scan snapshot: %w", err)
		}
		h.TakenAt = time.UnixMilli(takenAt).UTC()
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate snapshots: %w", err)
	}
	return out, nil
}

// Snapshot loads one stored snapshot with its entries in rank order.
func (s *Store) Snapshot(ctx context.Context, id int64) (model.Snapshot, error) {
	query, args, err := s.qb.Select("taken_at").From("snapshots").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("history: build lookup: %w", err)
	}
	var takenAt int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&takenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snapshot{}, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return model.Snapshot{}, fmt.Errorf("history: lookup snapshot: %w", err)
	}

	query, args, err = s.qb.Select("name", "score", "point_change").
		From("entries").
		Where(sq.Eq{"snapshot_id": id}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("history: build entries query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("history: list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := model.Snapshot{TakenAt: time.UnixMilli(takenAt).UTC(), Entries: []model.TrackedRecord{}}
	for rows.Next() {
		var e model.TrackedRecord
		if err := rows.Scan(&e.Name, &e.Score, &e.PointChange); err != nil {
			return model.Snapshot{}, fmt.Errorf("history: scan entry: %w", err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("history: iterate entries: %w", err)
	}
	return snap, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := s.qb.Select("COUNT(*)").From("snapshots").ToSql()
	if err != nil {
		return 0, fmt.Errorf("history: build count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}
