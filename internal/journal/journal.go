package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bugsort/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another version.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// Operations recorded in the journal.
const (
	OpLabel   = "label"
	OpMerge   = "merge"
	OpRun     = "run"
	OpRelabel = "relabel"
)

// Entry is one audit record.
type Entry struct {
	ID        int64
	Op        string
	ClusterID string
	Target    string
	Label     string
	Members   int
	RunID     string
	Detail    string
	CreatedAt time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Op        string
	ClusterID string
	Limit     int
}

// Journal is an append-only SQLite audit log of store mutations.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens the journal configured in cfg. It returns nil when the journal
// is disabled (empty path).
func Open(cfg *config.Config) (*Journal, error) {
	if cfg == nil || strings.TrimSpace(cfg.Paths.JournalDB) == "" {
		return nil, nil
	}
	return OpenPath(cfg.Paths.JournalDB)
}

// OpenPath opens or creates the journal database at path. The schema version
// lives in PRAGMA user_version; a database written by another version is
// refused with ErrSchemaMismatch.
func OpenPath(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	// WAL lets `bugsort history` read while a review server writes.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	j := &Journal{db: db, path: path, now: time.Now}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) migrate(ctx context.Context) error {
	var version int
	if err := j.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch version {
	case schemaVersion:
		return nil
	case 0:
	default:
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start a new journal)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Record appends an entry and returns it with ID and timestamp filled in.
func (j *Journal) Record(ctx context.Context, entry Entry) (Entry, error) {
	if j == nil {
		return entry, nil
	}
	ctx = ensureContext(ctx)
	if strings.TrimSpace(entry.Op) == "" {
		return entry, errors.New("journal entry requires an op")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = j.now().UTC()
	}
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = j.db.ExecContext(ctx,
			`INSERT INTO entries (op, cluster_id, target, label, members, run_id, detail, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.Op, entry.ClusterID, entry.Target, entry.Label, entry.Members, entry.RunID, entry.Detail,
			entry.CreatedAt.Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return entry, fmt.Errorf("insert journal entry: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return entry, nil
}

// List returns entries newest first.
func (j *Journal) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	query := "SELECT id, op, cluster_id, target, label, members, run_id, detail, created_at FROM entries"
	var (
		where []string
		args  []any
	)
	if filter.Op != "" {
		where = append(where, "op = ?")
		args = append(args, filter.Op)
	}
	if filter.ClusterID != "" {
		where = append(where, "(cluster_id = ? OR target = ?)")
		args = append(args, filter.ClusterID, filter.ClusterID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Op, &e.ClusterID, &e.Target, &e.Label, &e.Members, &e.RunID, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// retryOnBusy reruns op while SQLite reports the database locked, doubling
// the wait from 10ms up to 200ms, five tries in all.
func retryOnBusy(ctx context.Context, op func() error) error {
	wait := 10 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || attempt == 5 || !busy(err) {
			return err
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait = min(2*wait, 200*time.Millisecond)
	}
}

func busy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code() == 5 { // SQLITE_BUSY
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}
