// Package sqlstore implements the catalog store on a SQL database. Filtering,
// sorting and pagination run in the database; SQLite (modernc.org/sqlite) and
// PostgreSQL (pgx) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"

	"github.com/eringen/promptgallery/catalog"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// relatedSample caps the candidates fetched for related-item ranking.
const relatedSample = 500

// sqliteLower is registered with the sqlite driver because its built-in
// lower() only folds ASCII letters.
const sqliteLower = "unicode_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(sqliteLower, 1, unicodeLower); err != nil {
		panic(fmt.Sprintf("sqlstore: register %s: %v", sqliteLower, err))
	}
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return strings.ToLower(fmt.Sprint(v)), nil
	}
}

// Config selects and addresses the database.
type Config struct {
	// Driver is "sqlite" or "pgx" ("postgres" is accepted as an alias).
	Driver string
	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string
	// Now overrides the clock.
	Now func() time.Time
}

// Store is a catalog.Store over database/sql.
type Store struct {
	db       *sql.DB
	postgres bool
	now      func() time.Time

	// createMu serializes slug assignment; the UNIQUE constraint backs it up
	// across processes.
	createMu sync.Mutex
}

var _ catalog.Store = (*Store)(nil)

// Open connects, applies driver tuning and creates the schema if needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := cfg.Driver
	switch driver {
	case "", DriverSQLite, "sqlite3":
		driver = DriverSQLite
	case DriverPostgres, "postgres", "postgresql":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("sqlstore: dsn required")
	}

	if driver == DriverSQLite {
		if dir := filepath.Dir(cfg.DSN); dir != "." && !strings.HasPrefix(cfg.DSN, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	dsn := cfg.DSN
	if driver == DriverSQLite && !strings.Contains(dsn, "_pragma=busy_timeout") {
		// busy_timeout is per connection, so it has to reach every pooled one.
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	s := &Store{db: db, postgres: driver == DriverPostgres, now: cfg.Now}
	if s.now == nil {
		s.now = time.Now
	}

	if driver == DriverSQLite {
		// WAL lets readers proceed during writes.
		if _, err := db.ExecContext(ctx, `
			PRAGMA journal_mode=WAL;
			PRAGMA synchronous=NORMAL;
			PRAGMA cache_size=-8000;
		`); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	} else if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS prompts (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    creator_id TEXT NOT NULL,
    creator_handle TEXT NOT NULL,
    creator_avatar_url TEXT NOT NULL DEFAULT '',
    cover_url TEXT NOT NULL,
    full_image_url TEXT NOT NULL,
    description TEXT NOT NULL,
    prompt TEXT NOT NULL,
    tags TEXT NOT NULL,
    likes INTEGER NOT NULL DEFAULT 0,
    premium INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS prompts_likes_idx ON prompts (likes DESC, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS prompts_created_idx ON prompts (created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS blog_posts (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    excerpt TEXT NOT NULL,
    content TEXT NOT NULL,
    cover_image_url TEXT NOT NULL,
    author_name TEXT NOT NULL,
    author_avatar_url TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 0,
    views INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS blog_posts_created_idx ON blog_posts (published, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(q), args...)
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

// filter accumulates WHERE clauses and their arguments.
type filter struct {
	lower   string
	clauses []string
	args    []any
}

// newFilter returns a filter using the driver's Unicode-aware lower-case
// function, matching strings.ToLower on the search term.
func (s *Store) newFilter() *filter {
	if s.postgres {
		return &filter{lower: "lower"}
	}
	return &filter{lower: sqliteLower}
}

func (f *filter) add(clause string, args ...any) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// search adds an OR of case-insensitive substring matches over columns.
func (f *filter) search(term string, columns ...string) {
	if term == "" {
		return
	}
	pattern := "%" + escapeLike(term) + "%"
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		parts[i] = f.lower + "(" + col + ") LIKE ? ESCAPE '\\'"
		args[i] = pattern
	}
	f.add("("+strings.Join(parts, " OR ")+")", args...)
}

// requireTags adds one containment predicate per tag.
func (f *filter) requireTags(tags []string) {
	for _, t := range tags {
		f.add(`tags LIKE ? ESCAPE '\'`, tagPattern(t))
	}
}

func orderBy(mode catalog.Sort, popularity string) string {
	if mode == catalog.SortNew {
		return " ORDER BY created_at DESC, id DESC"
	}
	return " ORDER BY " + popularity + " DESC, created_at DESC, id DESC"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func tagPattern(tag string) string {
	return "%," + escapeLike(tag) + ",%"
}

// existingSlugs returns slugs equal to base or of the form base-<anything>,
// ignoring the row with excludeID.
func (s *Store) existingSlugs(ctx context.Context, table, base, excludeID string) ([]string, error) {
	rows, err := s.query(ctx,
		`SELECT slug FROM `+table+` WHERE (slug = ? OR slug LIKE ? ESCAPE '\') AND id <> ?`,
		base, escapeLike(base)+"-%", excludeID)
	if err != nil {
		return nil, fmt.Errorf("list slugs: %w", err)
	}
	defer rows.Close()
	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ErrNotFound
	}
	return err
}
