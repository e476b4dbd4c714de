// Package jsonfile persists patterns and tasks as indented JSON arrays.
//
// Layout inside the data directory:
//
//	patterns.json   ordered pattern collection
//	tasks.json      append-only task log
//
// Each save rewrites the whole file through a temp file and rename, so a
// crash leaves either the old or the new document. A missing file loads
// as an empty collection; so does an undecodable one, after a warning.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
	"github.com/fyrsmithlabs/swarmintel/internal/swarm"
)

const (
	// PatternsFile holds the pattern collection.
	PatternsFile = "patterns.json"

	// TasksFile holds the task log.
	TasksFile = "tasks.json"
)

// Store implements swarm.PatternRepository and swarm.TaskRepository on
// two JSON files in one directory.
type Store struct {
	dir    string
	logger *logging.Logger
}

var (
	_ swarm.PatternRepository = (*Store)(nil)
	_ swarm.TaskRepository    = (*Store)(nil)
)

// New creates the data directory if needed and returns a Store over it.
func New(dir string, logger *logging.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// LoadPatterns reads patterns.json.
func (s *Store) LoadPatterns(ctx context.Context) ([]*swarm.Pattern, error) {
	return load[swarm.Pattern](ctx, s, PatternsFile)
}

// SavePatterns rewrites patterns.json.
func (s *Store) SavePatterns(ctx context.Context, patterns []*swarm.Pattern) error {
	return save(ctx, s, PatternsFile, patterns)
}

// LoadTasks reads tasks.json.
func (s *Store) LoadTasks(ctx context.Context) ([]*swarm.TaskRecord, error) {
	return load[swarm.TaskRecord](ctx, s, TasksFile)
}

// SaveTasks rewrites tasks.json.
func (s *Store) SaveTasks(ctx context.Context, tasks []*swarm.TaskRecord) error {
	return save(ctx, s, TasksFile, tasks)
}

func load[T any](ctx context.Context, s *Store, name string) ([]*T, error) {
	path := filepath.Join(s.dir, name)
	items := []*T{}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn(ctx, "ignoring unreadable state file",
			zap.String("path", path),
			zap.NamedError("cause", err),
			zap.Error(swarm.ErrMalformedState))
		return []*T{}, nil
	}

	// null entries from hand edits are dropped
	kept := items[:0]
	for _, item := range items {
		if item != nil {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

func save[T any](ctx context.Context, s *Store, name string, items []*T) error {
	if items == nil {
		items = []*T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", name, err)
	}

	s.logger.Debug(ctx, "state saved",
		zap.String("path", path),
		zap.Int("records", len(items)))
	return nil
}
