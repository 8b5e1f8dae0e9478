package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that stored timestamps compare lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLite struct {
	db       *sql.DB
	memory   *memoryRepository
	person   *personRepository
	delivery *deliveryRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens or creates the database at path and applies the schema.
func New(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", path))
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	// single writer keeps claim transactions serialized
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to migrate sqlite database", goerr.V("path", path))
	}

	return &SQLite{
		db:       db,
		memory:   &memoryRepository{db: db},
		person:   &personRepository{db: db},
		delivery: &deliveryRepository{db: db},
	}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS people (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		relationship TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memories (
		id               TEXT PRIMARY KEY,
		kind             TEXT NOT NULL,
		title            TEXT NOT NULL DEFAULT '',
		description      TEXT NOT NULL DEFAULT '',
		content          TEXT NOT NULL DEFAULT '',
		happened_at      TEXT,
		month_day        TEXT,
		location         TEXT NOT NULL DEFAULT '',
		anniversary_type TEXT NOT NULL DEFAULT '',
		seasonal_tags    TEXT,
		proactive_score  REAL NOT NULL DEFAULT 0,
		embedding        TEXT,
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_month_day ON memories(month_day);
	CREATE INDEX IF NOT EXISTS idx_memories_score ON memories(proactive_score);

	CREATE TABLE IF NOT EXISTS memory_people (
		memory_id TEXT NOT NULL REFERENCES memories(id),
		person_id TEXT NOT NULL,
		seq       INTEGER NOT NULL,
		PRIMARY KEY (memory_id, person_id)
	);
	CREATE INDEX IF NOT EXISTS idx_memory_people_person ON memory_people(person_id);

	CREATE TABLE IF NOT EXISTS deliveries (
		id           TEXT PRIMARY KEY,
		trigger_kind TEXT NOT NULL,
		trigger_date TEXT NOT NULL,
		memory_ids   TEXT NOT NULL,
		delivered_at TEXT,
		viewed_at    TEXT,
		dismissed_at TEXT,
		created_at   TEXT NOT NULL,
		UNIQUE (trigger_kind, trigger_date)
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_created ON deliveries(created_at);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *SQLite) Memory() interfaces.MemoryRepository {
	return s.memory
}

func (s *SQLite) Person() interfaces.PersonRepository {
	return s.person
}

func (s *SQLite) Delivery() interfaces.DeliveryRepository {
	return s.delivery
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid stored timestamp", goerr.V("value", s))
	}
	return t, nil
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
