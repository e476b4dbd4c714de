package swarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskLog_NilRepository(t *testing.T) {
	_, err := NewTaskLog(nil, nil, nil)
	assert.Error(t, err)
}

func TestTaskLog_Record(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryTaskRepository()
	log, err := NewTaskLog(repo, nil, nil)
	require.NoError(t, err)
	log.now = func() time.Time { return testNow }
	log.newID = sequentialIDs("t")

	rec, err := log.Record(ctx, "Fix the login bug", "coder", OutcomeSuccess, 1500)
	require.NoError(t, err)
	assert.Equal(t, "t1", rec.ID)
	assert.Equal(t, "bugfix", rec.Category)

	stored, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, &TaskRecord{
		ID:          "t1",
		Description: "Fix the login bug",
		Agent:       "coder",
		Outcome:     OutcomeSuccess,
		DurationMs:  1500,
		Timestamp:   testNow,
		Category:    "bugfix",
	}, stored[0])
}

func TestTaskLog_RecordAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryTaskRepository(&TaskRecord{ID: "old", Description: "earlier", Agent: "ops", Outcome: OutcomeFailure})
	log, err := NewTaskLog(repo, nil, nil)
	require.NoError(t, err)

	_, err = log.Record(ctx, "Deploy to production", "ops", OutcomeSuccess, 0)
	require.NoError(t, err)

	all, err := log.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "old", all[0].ID)
	assert.Equal(t, "deployment", all[1].Category)
}

func TestTaskLog_RecordSaveFailure(t *testing.T) {
	repo := NewInMemoryTaskRepository()
	repo.SaveErr = errors.New("read-only")
	log, err := NewTaskLog(repo, nil, nil)
	require.NoError(t, err)

	rec, err := log.Record(context.Background(), "anything", "coder", OutcomeSuccess, 0)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotNil(t, rec)
}

func TestTaskLog_Recent(t *testing.T) {
	var seeded []*TaskRecord
	for _, id := range []string{"a", "b", "c"} {
		seeded = append(seeded, &TaskRecord{ID: id})
	}
	log, err := NewTaskLog(NewInMemoryTaskRepository(seeded...), nil, nil)
	require.NoError(t, err)

	recent, err := log.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, "c", recent[1].ID)
}

func TestMaturityFor(t *testing.T) {
	tests := []struct {
		tasks int
		want  Maturity
	}{
		{0, MaturityNew},
		{1, MaturityGrowing},
		{9, MaturityGrowing},
		{10, MaturityDeveloping},
		{49, MaturityDeveloping},
		{50, MaturityMature},
		{500, MaturityMature},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaturityFor(tt.tasks), "tasks=%d", tt.tasks)
	}
}

func TestSummarizeTasks(t *testing.T) {
	tasks := []*TaskRecord{
		{Agent: "ops", Outcome: OutcomeSuccess, Category: "deployment"},
		{Agent: "coder", Outcome: OutcomeSuccess, Category: "bugfix"},
		{Agent: "coder", Outcome: OutcomeFailure, Category: "bugfix"},
		{Agent: "reviewer", Outcome: OutcomePartial, Category: "review"},
	}

	sum := SummarizeTasks(tasks)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, MaturityGrowing, sum.Maturity)
	assert.Equal(t, map[Outcome]int{OutcomeSuccess: 2, OutcomeFailure: 1, OutcomePartial: 1}, sum.ByOutcome)
	assert.Equal(t, map[string]int{"deployment": 1, "bugfix": 2, "review": 1}, sum.ByCategory)
	assert.Equal(t, []AgentContribution{
		{Agent: "coder", Tasks: 2, Successes: 1},
		{Agent: "ops", Tasks: 1, Successes: 1},
		{Agent: "reviewer", Tasks: 1, Successes: 0},
	}, sum.Contributions)
}

func TestSummarizeTasks_Empty(t *testing.T) {
	sum := SummarizeTasks(nil)
	assert.Equal(t, 0, sum.Total)
	assert.Equal(t, MaturityNew, sum.Maturity)
	assert.Empty(t, sum.Contributions)
	assert.NotNil(t, sum.Contributions)
}
