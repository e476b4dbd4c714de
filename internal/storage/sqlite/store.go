// Package sqlite persists patterns and tasks in a single SQLite database
// using the pure-Go modernc.org/sqlite driver.
//
// Each record is stored as its JSON document next to an insertion
// sequence, so loads return records in the order they were saved:
//
//	CREATE TABLE patterns (seq INTEGER PRIMARY KEY, id TEXT UNIQUE, doc TEXT NOT NULL)
//	CREATE TABLE tasks    (seq INTEGER PRIMARY KEY, id TEXT UNIQUE, doc TEXT NOT NULL)
//
// Saves replace the table contents inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
	"github.com/fyrsmithlabs/swarmintel/internal/swarm"
)

const (
	patternsTable = "patterns"
	tasksTable    = "tasks"
)

// DefaultBusyTimeout is how long a writer waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Store implements swarm.PatternRepository and swarm.TaskRepository on
// SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
}

var (
	_ swarm.PatternRepository = (*Store)(nil)
	_ swarm.TaskRepository    = (*Store)(nil)
)

// Option configures a Store.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
	logger      *logging.Logger
}

// WithBusyTimeout sets the SQLite busy_timeout pragma.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Open opens or creates the database at path, applies pragmas and
// creates the tables.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	o := options{busyTimeout: DefaultBusyTimeout, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: o.logger}
	if err := s.configurePragmas(ctx, o.busyTimeout); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configurePragmas(ctx context.Context, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
	}
	for _, q := range pragmas {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("set pragma %q: %w", q, err)
		}
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{patternsTable, tasksTable} {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY,
			id  TEXT UNIQUE,
			doc TEXT NOT NULL
		)`, table)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s table: %w", table, err)
		}
	}
	return tx.Commit()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadPatterns returns the patterns in insertion order.
func (s *Store) LoadPatterns(ctx context.Context) ([]*swarm.Pattern, error) {
	return load[swarm.Pattern](ctx, s, patternsTable)
}

// SavePatterns replaces the stored patterns.
func (s *Store) SavePatterns(ctx context.Context, patterns []*swarm.Pattern) error {
	return save(ctx, s, patternsTable, patterns, func(p *swarm.Pattern) string { return p.ID })
}

// LoadTasks returns the task log in insertion order.
func (s *Store) LoadTasks(ctx context.Context) ([]*swarm.TaskRecord, error) {
	return load[swarm.TaskRecord](ctx, s, tasksTable)
}

// SaveTasks replaces the stored task log.
func (s *Store) SaveTasks(ctx context.Context, tasks []*swarm.TaskRecord) error {
	return save(ctx, s, tasksTable, tasks, func(t *swarm.TaskRecord) string { return t.ID })
}

// load decodes every row of table. A row that does not decode makes the
// whole collection load as empty, matching the JSON file backend.
func load[T any](ctx context.Context, s *Store, table string) ([]*T, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT seq, doc FROM %s ORDER BY seq", table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		var (
			seq int64
			doc string
		)
		if err := rows.Scan(&seq, &doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		item := new(T)
		if err := json.Unmarshal([]byte(doc), item); err != nil {
			s.logger.Warn(ctx, "ignoring unreadable state table",
				zap.String("table", table),
				zap.Int64("seq", seq),
				zap.NamedError("cause", err),
				zap.Error(swarm.ErrMalformedState))
			return []*T{}, nil
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return items, nil
}

func save[T any](ctx context.Context, s *Store, table string, items []*T, idOf func(*T) string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (seq, id, doc) VALUES (?, ?, ?)", table))
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i, item := range items {
		doc, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", table, err)
		}
		if _, err := stmt.ExecContext(ctx, i+1, nullableID(idOf(item)), string(doc)); err != nil {
			return fmt.Errorf("insert %s record: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	s.logger.Debug(ctx, "state saved",
		zap.String("table", table),
		zap.Int("records", len(items)))
	return nil
}

// nullableID stores empty IDs as NULL so they do not collide under UNIQUE.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
