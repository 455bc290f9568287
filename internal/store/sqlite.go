package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/ptime/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageErr("create db directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageErr("open database", err)
	}

	// SQLite only supports one concurrent writer. The daemon, the CLI and
	// the MCP server may all have the file open, so serialize this process
	// through one connection and let busy_timeout absorb the rest.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, storageErr(p, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return storageErr("create migrations table", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return storageErr("read migrations dir", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return storageErr(fmt.Sprintf("check migration %s", name), err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return storageErr(fmt.Sprintf("read migration %s", name), err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return storageErr(fmt.Sprintf("apply migration %s", name), err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return storageErr(fmt.Sprintf("record migration %s", name), err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Intervals ---

func (s *SQLiteStore) OpenInterval(ctx context.Context, project, branch string, now time.Time) (string, error) {
	id := newULID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intervals (id, project, branch, start_ms) VALUES (?, ?, ?, ?)`,
		id, project, branch, now.UnixMilli(),
	)
	if err != nil {
		return "", storageErr("open interval", err)
	}
	return id, nil
}

func (s *SQLiteStore) CloseOpenInterval(ctx context.Context, now time.Time) error {
	// MAX keeps end >= start if the clock stepped backwards.
	_, err := s.db.ExecContext(ctx,
		`UPDATE intervals SET end_ms = MAX(?, start_ms) WHERE end_ms IS NULL`,
		now.UnixMilli(),
	)
	if err != nil {
		return storageErr("close open interval", err)
	}
	return nil
}

const intervalColumns = `id, project, branch, start_ms, end_ms`

func (s *SQLiteStore) OpenIntervals(ctx context.Context) ([]*models.Interval, error) {
	return s.queryIntervals(ctx, "open intervals",
		`SELECT `+intervalColumns+` FROM intervals WHERE end_ms IS NULL`)
}

func (s *SQLiteStore) FetchAll(ctx context.Context) ([]*models.Interval, error) {
	return s.queryIntervals(ctx, "fetch all intervals",
		`SELECT `+intervalColumns+` FROM intervals`)
}

func (s *SQLiteStore) FetchAfter(ctx context.Context, after int64) ([]*models.Interval, error) {
	return s.queryIntervals(ctx, "fetch intervals after",
		`SELECT `+intervalColumns+` FROM intervals WHERE start_ms > ?`, after)
}

func (s *SQLiteStore) FetchBetween(ctx context.Context, start, end int64) ([]*models.Interval, error) {
	return s.queryIntervals(ctx, "fetch intervals between",
		`SELECT `+intervalColumns+` FROM intervals WHERE start_ms BETWEEN ? AND ?`, start, end)
}

func (s *SQLiteStore) Projects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT project FROM intervals ORDER BY project`)
	if err != nil {
		return nil, storageErr("list projects", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("scan project", err)
		}
		projects = append(projects, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list projects", err)
	}
	return projects, nil
}

func (s *SQLiteStore) queryIntervals(ctx context.Context, op, query string, args ...any) ([]*models.Interval, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer func() { _ = rows.Close() }()

	var intervals []*models.Interval
	for rows.Next() {
		iv := &models.Interval{}
		var end sql.NullInt64
		if err := rows.Scan(&iv.ID, &iv.Project, &iv.Branch, &iv.Start, &end); err != nil {
			return nil, storageErr("scan interval", err)
		}
		if end.Valid {
			v := end.Int64
			iv.End = &v
		}
		intervals = append(intervals, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return intervals, nil
}
