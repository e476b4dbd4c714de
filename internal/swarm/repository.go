package swarm

import (
	"context"
	"sync"
)

// PatternRepository persists the ordered pattern collection.
//
// LoadPatterns returns an empty collection when nothing has been stored
// or the stored state cannot be decoded. SavePatterns replaces the whole
// collection.
type PatternRepository interface {
	LoadPatterns(ctx context.Context) ([]*Pattern, error)
	SavePatterns(ctx context.Context, patterns []*Pattern) error
}

// TaskRepository persists the append-only task log.
type TaskRepository interface {
	LoadTasks(ctx context.Context) ([]*TaskRecord, error)
	SaveTasks(ctx context.Context, tasks []*TaskRecord) error
}

// InMemoryPatternRepository is an in-memory PatternRepository.
type InMemoryPatternRepository struct {
	mu       sync.RWMutex
	patterns []*Pattern

	// SaveErr, when set, is returned by SavePatterns without storing.
	SaveErr error
}

// NewInMemoryPatternRepository creates a repository seeded with patterns.
func NewInMemoryPatternRepository(patterns ...*Pattern) *InMemoryPatternRepository {
	r := &InMemoryPatternRepository{}
	r.patterns = clonePatterns(patterns)
	return r
}

// LoadPatterns returns a copy of the stored patterns.
func (r *InMemoryPatternRepository) LoadPatterns(ctx context.Context) ([]*Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clonePatterns(r.patterns), nil
}

// SavePatterns replaces the stored patterns with a copy of patterns.
func (r *InMemoryPatternRepository) SavePatterns(ctx context.Context, patterns []*Pattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.patterns = clonePatterns(patterns)
	return nil
}

// InMemoryTaskRepository is an in-memory TaskRepository.
type InMemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks []*TaskRecord

	// SaveErr, when set, is returned by SaveTasks without storing.
	SaveErr error
}

// NewInMemoryTaskRepository creates a repository seeded with tasks.
func NewInMemoryTaskRepository(tasks ...*TaskRecord) *InMemoryTaskRepository {
	r := &InMemoryTaskRepository{}
	r.tasks = cloneTasks(tasks)
	return r
}

// LoadTasks returns a copy of the stored tasks.
func (r *InMemoryTaskRepository) LoadTasks(ctx context.Context) ([]*TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneTasks(r.tasks), nil
}

// SaveTasks replaces the stored tasks with a copy of tasks.
func (r *InMemoryTaskRepository) SaveTasks(ctx context.Context, tasks []*TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.tasks = cloneTasks(tasks)
	return nil
}

func clonePatterns(in []*Pattern) []*Pattern {
	out := make([]*Pattern, 0, len(in))
	for _, p := range in {
		out = append(out, p.Clone())
	}
	return out
}

func cloneTasks(in []*TaskRecord) []*TaskRecord {
	out := make([]*TaskRecord, 0, len(in))
	for _, t := range in {
		c := *t
		out = append(out, &c)
	}
	return out
}
