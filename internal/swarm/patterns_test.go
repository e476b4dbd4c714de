package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
)

func TestNewPatternStore_NilRepository(t *testing.T) {
	_, err := NewPatternStore(nil, nil, nil)
	assert.Error(t, err)
}

func TestPatternStore_Record_CreatesPattern(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPatternRepository()
	store := newTestStore(t, repo)

	res, err := store.Record(ctx, Observation{
		Task:       "Fix the login bug",
		Agent:      "coder",
		Outcome:    OutcomeSuccess,
		DurationMs: 1500,
	})
	require.NoError(t, err)
	assert.False(t, res.Merged)

	patterns, err := repo.LoadPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	p := patterns[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Fix the login bug", p.Description)
	assert.Equal(t, "bugfix", p.Category)
	assert.Equal(t, []string{"fix", "the", "login", "bug"}, p.Characteristics)
	assert.Equal(t, ComplexityMedium, p.Complexity)
	assert.Equal(t, 1, p.Count)
	assert.Equal(t, 1.0, p.SuccessRate)
	assert.Equal(t, []string{"coder"}, p.RecommendedAgents)
	assert.Equal(t, map[string]float64{"coder": 1.0}, p.AgentPerformance)
	assert.Equal(t, int64(1500), p.AvgCompletionTimeMs)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Equal(t, testNow, p.LastSeen)
}

func TestPatternStore_Record_MergesSimilar(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPatternRepository()
	store := newTestStore(t, repo)

	_, err := store.Record(ctx, Observation{Task: "Fix the login bug", Agent: "coder", Outcome: OutcomeSuccess})
	require.NoError(t, err)

	later := testNow.Add(time.Hour)
	store.now = func() time.Time { return later }

	res, err := store.Record(ctx, Observation{
		Task:       "Fix the login button bug",
		Agent:      "reviewer",
		Outcome:    OutcomeFailure,
		Complexity: ComplexityHigh,
		DurationMs: 99,
	})
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.InDelta(t, 0.894427, res.Similarity, 1e-6)

	patterns, err := repo.LoadPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	p := patterns[0]
	assert.Equal(t, 2, p.Count)
	assert.InDelta(t, 0.5, p.SuccessRate, 1e-12)
	assert.Equal(t, []string{"coder", "reviewer"}, p.RecommendedAgents)
	assert.InDelta(t, 0.45, p.AgentPerformance["reviewer"], 1e-12)
	assert.Equal(t, 1.0, p.AgentPerformance["coder"])
	assert.Equal(t, later, p.LastSeen)

	// creation-time fields are not touched by a merge
	assert.Equal(t, "Fix the login bug", p.Description)
	assert.Equal(t, ComplexityMedium, p.Complexity)
	assert.Equal(t, int64(0), p.AvgCompletionTimeMs)
	assert.Equal(t, testNow, p.CreatedAt)
}

func TestPatternStore_Record_BelowThresholdCreatesNew(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPatternRepository()
	store := newTestStore(t, repo)

	// cosine("alpha beta", "alpha gamma") == 0.5
	_, err := store.Record(ctx, Observation{Task: "alpha beta", Agent: "a", Outcome: OutcomeSuccess})
	require.NoError(t, err)
	res, err := store.Record(ctx, Observation{Task: "alpha gamma", Agent: "a", Outcome: OutcomeSuccess})
	require.NoError(t, err)
	assert.False(t, res.Merged)

	patterns, _ := repo.LoadPatterns(ctx)
	require.Len(t, patterns, 2)
	assert.Equal(t, 1, patterns[0].Count)
	assert.Equal(t, 1, patterns[1].Count)
}

func TestPatternStore_Record_ExistingAgentMovingAverage(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPatternRepository()
	store := newTestStore(t, repo)

	obs := Observation{Task: "ship the release", Agent: "ops", Outcome: OutcomeSuccess}
	_, err := store.Record(ctx, obs)
	require.NoError(t, err)

	obs.Outcome = OutcomeFailure
	_, err = store.Record(ctx, obs)
	require.NoError(t, err)

	patterns, _ := repo.LoadPatterns(ctx)
	assert.InDelta(t, 0.9, patterns[0].AgentPerformance["ops"], 1e-12)
	assert.Equal(t, []string{"ops"}, patterns[0].RecommendedAgents)
}

func TestPatternStore_Record_IncrementalMean(t *testing.T) {
	outcomes := []Outcome{
		OutcomeSuccess, OutcomeFailure, OutcomeSuccess, OutcomePartial, OutcomeSuccess,
		OutcomeSuccess, OutcomeFailure, OutcomeSuccess, OutcomePartial, OutcomeSuccess, OutcomeSuccess,
	}

	ctx := context.Background()
	repo := NewInMemoryPatternRepository()
	store := newTestStore(t, repo)

	successes := 0
	for i, o := range outcomes {
		if o == OutcomeSuccess {
			successes++
		}
		_, err := store.Record(ctx, Observation{Task: "deploy the api service", Agent: "ops", Outcome: o})
		require.NoError(t, err)

		patterns, _ := repo.LoadPatterns(ctx)
		require.Len(t, patterns, 1)
		n := i + 1
		assert.Equal(t, n, patterns[0].Count)
		assert.InDelta(t, float64(successes)/float64(n), patterns[0].SuccessRate, 1e-9)
	}
}

func TestPatternStore_Record_StaysBounded(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPatternRepository()
	store := newTestStore(t, repo)

	agents := []string{"coder", "reviewer", "oracle"}
	for i := 0; i < 60; i++ {
		outcome := Outcomes[(i*7)%len(Outcomes)]
		_, err := store.Record(ctx, Observation{
			Task:    "refactor the payment module",
			Agent:   agents[i%len(agents)],
			Outcome: outcome,
		})
		require.NoError(t, err)
	}

	patterns, _ := repo.LoadPatterns(ctx)
	for _, p := range patterns {
		assert.GreaterOrEqual(t, p.SuccessRate, 0.0)
		assert.LessOrEqual(t, p.SuccessRate, 1.0)
		for agent, perf := range p.AgentPerformance {
			assert.GreaterOrEqual(t, perf, 0.0, agent)
			assert.LessOrEqual(t, perf, 1.0, agent)
		}
	}
}

func TestPatternStore_Record_BestMatchPolicy(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPatternRepository(
		&Pattern{ID: "near", Description: "alpha beta gamma delta omega", Count: 1, SuccessRate: 1},
		&Pattern{ID: "exact", Description: "alpha beta gamma delta epsilon", Count: 1, SuccessRate: 1},
	)

	first := newTestStore(t, repo)
	res, err := first.Record(ctx, Observation{Task: "alpha beta gamma delta epsilon", Agent: "a", Outcome: OutcomeSuccess})
	require.NoError(t, err)
	assert.Equal(t, "near", res.Pattern.ID)

	best := newTestStore(t, repo, WithMergePolicy(BestMatch(MergeThreshold)))
	res, err = best.Record(ctx, Observation{Task: "alpha beta gamma delta epsilon", Agent: "a", Outcome: OutcomeSuccess})
	require.NoError(t, err)
	assert.Equal(t, "exact", res.Pattern.ID)
}

func TestPatternStore_Record_SaveFailure(t *testing.T) {
	ctx := context.Background()
	diskFull := errors.New("disk full")
	repo := NewInMemoryPatternRepository()
	repo.SaveErr = diskFull
	store := newTestStore(t, repo)

	res, err := store.Record(ctx, Observation{Task: "Fix the login bug", Agent: "coder", Outcome: OutcomeSuccess})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, diskFull)
	require.NotNil(t, res)

	patterns, _ := repo.LoadPatterns(ctx)
	assert.Empty(t, patterns)
}

func TestPatternStore_FindSimilar(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPatternRepository(
		&Pattern{ID: "login", Description: "Fix the login bug", SuccessRate: 1, Count: 1},
		&Pattern{ID: "signup", Description: "Fix the signup bug", SuccessRate: 0, Count: 1},
		&Pattern{ID: "docs", Description: "Write the README", SuccessRate: 0, Count: 1},
	)
	store := newTestStore(t, repo)

	matches, err := store.FindSimilar(ctx, "fix the login bug", 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "login", matches[0].Pattern.ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-12)
	assert.Equal(t, "signup", matches[1].Pattern.ID)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)

	limited, err := store.FindSimilar(ctx, "fix the login bug", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "login", limited[0].Pattern.ID)
}

func TestPatternStore_FindSimilar_UnrelatedQueryIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPatternRepository()
	store := newTestStore(t, repo)

	_, err := store.Record(ctx, Observation{Task: "Fix the login bug", Agent: "coder", Outcome: OutcomeSuccess})
	require.NoError(t, err)
	_, err = store.Record(ctx, Observation{Task: "Fix the login button bug", Agent: "reviewer", Outcome: OutcomeFailure})
	require.NoError(t, err)

	matches, err := store.FindSimilar(ctx, "implement api endpoint", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NotNil(t, matches)
}

func TestPatternStore_FindSimilar_EmptyStore(t *testing.T) {
	store := newTestStore(t, NewInMemoryPatternRepository())

	matches, err := store.FindSimilar(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPatternStore_FindSimilar_TiesKeepStorageOrder(t *testing.T) {
	repo := NewInMemoryPatternRepository(
		&Pattern{ID: "first", Description: "deploy api", SuccessRate: 0.5},
		&Pattern{ID: "second", Description: "deploy api", SuccessRate: 0.5},
	)
	store := newTestStore(t, repo)

	matches, err := store.FindSimilar(context.Background(), "deploy api", 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Pattern.ID)
	assert.Equal(t, "second", matches[1].Pattern.ID)
}

func TestPatternStore_FindSimilar_TraceLogging(t *testing.T) {
	tl := logging.NewTestLogger()
	repo := NewInMemoryPatternRepository(&Pattern{ID: "x", Description: "deploy api", SuccessRate: 0.5})
	store, err := NewPatternStore(repo, nil, tl.Logger)
	require.NoError(t, err)

	_, err = store.FindSimilar(context.Background(), "deploy", 5)
	require.NoError(t, err)
	tl.AssertLogged(t, logging.TraceLevel, "scored pattern")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "")
}

func TestComputeInsights(t *testing.T) {
	patterns := []*Pattern{
		{Category: "bugfix", SuccessRate: 1, Complexity: ComplexityLow, AgentPerformance: map[string]float64{"coder": 1, "reviewer": 0.45}},
		{Category: "bugfix", SuccessRate: 0.5, Complexity: ComplexityMedium, AgentPerformance: map[string]float64{"coder": 0.5}},
		{Category: "feature", SuccessRate: 0, Complexity: ComplexityMedium, AgentPerformance: map[string]float64{"maia": 0}},
	}

	in := ComputeInsights(patterns)
	assert.False(t, in.Empty)
	assert.Equal(t, 3, in.TotalPatterns)
	assert.InDelta(t, 0.75, in.CategorySuccessRate["bugfix"], 1e-12)
	assert.InDelta(t, 0.0, in.CategorySuccessRate["feature"], 1e-12)
	assert.InDelta(t, 0.75, in.AgentSuccessRate["coder"], 1e-12)
	assert.InDelta(t, 0.45, in.AgentSuccessRate["reviewer"], 1e-12)
	assert.Equal(t, map[string]int{"low": 1, "medium": 2}, in.ComplexityDistribution)
}

func TestComputeInsights_Empty(t *testing.T) {
	in := ComputeInsights(nil)
	assert.True(t, in.Empty)
	assert.Equal(t, NoPatternsMessage, in.Message)

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"No patterns learned yet"}`, string(data))
}

func TestPatternStore_Recent(t *testing.T) {
	ctx := context.Background()
	var seeded []*Pattern
	for _, id := range []string{"a", "b", "c", "d"} {
		seeded = append(seeded, &Pattern{ID: id, Description: id})
	}
	store := newTestStore(t, NewInMemoryPatternRepository(seeded...))

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "d", recent[1].ID)

	all, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
