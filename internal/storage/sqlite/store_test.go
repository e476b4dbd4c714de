package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
	"github.com/fyrsmithlabs/swarmintel/internal/swarm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "swarm.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTestStore(t, WithBusyTimeout(1500*time.Millisecond))
	ctx := context.Background()

	var mode string
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 1500, timeout)
}

func TestStore_EmptyLoads(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	patterns, err := s.LoadPatterns(ctx)
	require.NoError(t, err)
	assert.Empty(t, patterns)

	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestStore_SaveReplacesAndKeepsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []*swarm.Pattern{
		{ID: "c", Description: "third alphabetically, first saved", Count: 1},
		{ID: "a", Description: "second", Count: 3, SuccessRate: 0.25,
			AgentPerformance: map[string]float64{"coder": 0.9}},
	}
	require.NoError(t, s.SavePatterns(ctx, first))

	got, err := s.LoadPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, 3, got[1].Count)
	assert.Equal(t, 0.9, got[1].AgentPerformance["coder"])

	require.NoError(t, s.SavePatterns(ctx, first[1:]))
	got, err = s.LoadPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestStore_EmptyIDsDoNotCollide(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTasks(ctx, []*swarm.TaskRecord{
		{Description: "legacy one"},
		{Description: "legacy two"},
	}))
	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestStore_DuplicateIDRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTasks(ctx, []*swarm.TaskRecord{{ID: "t1"}}))
	err := s.SaveTasks(ctx, []*swarm.TaskRecord{{ID: "dup"}, {ID: "dup"}})
	require.Error(t, err)

	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

func TestStore_UnreadableRowLoadsEmpty(t *testing.T) {
	tl := logging.NewTestLogger()
	s := openTestStore(t, WithLogger(tl.Logger))
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, "INSERT INTO patterns (seq, id, doc) VALUES (1, 'bad', '{oops')")
	require.NoError(t, err)

	patterns, err := s.LoadPatterns(ctx)
	require.NoError(t, err)
	assert.Empty(t, patterns)
	tl.AssertLogged(t, zapcore.WarnLevel, "ignoring unreadable state table")
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "swarm.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	svc, err := swarm.NewService(s, s)
	require.NoError(t, err)
	_, err = svc.Learn(ctx, swarm.LearnRequest{Task: "Deploy to production", Agent: "ops", Outcome: "success"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	patterns, err := s.LoadPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "deployment", patterns[0].Category)

	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "ops", tasks[0].Agent)
}
