package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects the SQL flavour the store speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements Ledger and Registry using database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	locks   keyLocks

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps read-modify-write transactions from hitting
	// stale WAL snapshots.
	db.SetMaxOpenConns(1)
	return newStore(db, DialectSQLite)
}

// NewPostgresStore connects to Postgres through the pgx stdlib driver.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return newStore(db, DialectPostgres)
}

// Open opens the store for a driver name ("sqlite" or "postgres").
func Open(driver, dsn string) (*SQLStore, error) {
	switch Dialect(driver) {
	case DialectSQLite:
		return NewSQLiteStore(dsn)
	case DialectPostgres:
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func newStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{
		db:      db,
		dialect: dialect,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS members (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			name        TEXT NOT NULL,
			avatar_url  TEXT,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_user ON members(user_id)`,

		`CREATE TABLE IF NOT EXISTS triggers (
			id             TEXT PRIMARY KEY,
			member_id      TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
			user_id        TEXT NOT NULL,
			prefix         TEXT NOT NULL DEFAULT '',
			suffix         TEXT NOT NULL DEFAULT '',
			case_sensitive INTEGER NOT NULL DEFAULT 1,
			position       INTEGER NOT NULL,
			created_at     TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_triggers_user_pattern ON triggers(user_id, prefix, suffix, case_sensitive)`,
		`CREATE INDEX IF NOT EXISTS idx_triggers_member ON triggers(member_id)`,

		`CREATE TABLE IF NOT EXISTS proxy_records (
			message_id        TEXT PRIMARY KEY,
			source_message_id TEXT,
			channel_id        TEXT NOT NULL,
			posted_at         TEXT NOT NULL,
			user_id           TEXT NOT NULL,
			member_id         TEXT NOT NULL,
			text              TEXT NOT NULL,
			origin            TEXT NOT NULL DEFAULT 'direct',
			revision          INTEGER NOT NULL DEFAULT 1,
			attachments       TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_source ON proxy_records(source_message_id)`,

		// One row per original message ever proxied. Rows outlive their
		// ledger record so a redelivered event is not proxied twice.
		`CREATE TABLE IF NOT EXISTS proxied_sources (
			source_message_id TEXT PRIMARY KEY,
			first_message_id  TEXT NOT NULL,
			created_at        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_user ON proxy_records(user_id, posted_at)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// q rewrites ? placeholders into $n for Postgres.
func (s *SQLStore) q(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
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

type scanner interface {
	Scan(dest ...interface{}) error
}

// isUniqueViolation recognises primary key and unique index failures from
// either driver.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
