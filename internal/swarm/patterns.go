package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
	"github.com/fyrsmithlabs/swarmintel/internal/textsim"
)

const (
	// DefaultQueryLimit is the default number of similar patterns returned.
	DefaultQueryLimit = 5

	// DefaultRecentLimit is the number of recent patterns shown in stats.
	DefaultRecentLimit = 10

	// NoPatternsMessage is reported by Insights for an empty store.
	NoPatternsMessage = "No patterns learned yet"

	// newAgentPerformance seeds the moving average for an agent first seen
	// on an existing pattern.
	newAgentPerformance = 0.5
)

// Match is a pattern scored against a query text.
type Match struct {
	Pattern    *Pattern `json:"pattern"`
	Similarity float64  `json:"similarity"`
}

// RecordResult describes the pattern touched by Record.
type RecordResult struct {
	Pattern    *Pattern
	Merged     bool
	Similarity float64
}

// PatternStore learns patterns from observations and answers similarity
// queries. It is the only writer of the pattern collection.
type PatternStore struct {
	repo       PatternRepository
	classifier *KeywordClassifier
	merge      MergePolicy
	now        func() time.Time
	newID      func() string
	logger     *logging.Logger
}

// StoreOption configures a PatternStore.
type StoreOption func(*PatternStore)

// WithMergePolicy replaces the default FirstMatch(MergeThreshold) policy.
func WithMergePolicy(p MergePolicy) StoreOption {
	return func(s *PatternStore) {
		if p != nil {
			s.merge = p
		}
	}
}

// WithClock overrides time.Now for created_at and last_seen.
func WithClock(now func() time.Time) StoreOption {
	return func(s *PatternStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the UUID generator for new patterns.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *PatternStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewPatternStore creates a PatternStore over repo.
func NewPatternStore(repo PatternRepository, classifier *KeywordClassifier, logger *logging.Logger, opts ...StoreOption) (*PatternStore, error) {
	if repo == nil {
		return nil, fmt.Errorf("pattern repository cannot be nil")
	}
	if classifier == nil {
		classifier = NewKeywordClassifier(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &PatternStore{
		repo:       repo,
		classifier: classifier,
		merge:      FirstMatch(MergeThreshold),
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// All returns the stored patterns in storage order.
func (s *PatternStore) All(ctx context.Context) ([]*Pattern, error) {
	patterns, err := s.repo.LoadPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading patterns: %w", err)
	}
	return patterns, nil
}

// FindSimilar returns up to limit patterns whose blended similarity to
// text exceeds MatchThreshold, best first. Equal scores keep storage order.
func (s *PatternStore) FindSimilar(ctx context.Context, text string, limit int) ([]Match, error) {
	patterns, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.rank(ctx, text, patterns, limit), nil
}

func (s *PatternStore) rank(ctx context.Context, text string, patterns []*Pattern, limit int) []Match {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	q := newQueryFeatures(text)
	matches := []Match{}
	for _, p := range patterns {
		score := q.blended(p)
		s.logger.Trace(ctx, "scored pattern",
			zap.String("pattern.id", p.ID),
			zap.Float64("similarity", score))
		if score > MatchThreshold {
			matches = append(matches, Match{Pattern: p, Similarity: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Record folds an observation into the pattern chosen by the merge
// policy, or creates a new pattern, and saves the collection.
//
// The returned result is valid even when the save fails; the error then
// wraps ErrPersistence.
func (s *PatternStore) Record(ctx context.Context, obs Observation) (*RecordResult, error) {
	patterns, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	value := obs.Outcome.Value()
	features := textsim.Extract(obs.Task)

	var result *RecordResult
	if idx, sim := s.merge(features, patterns); idx >= 0 {
		p := patterns[idx]
		mergeObservation(p, obs.Agent, value, now)
		result = &RecordResult{Pattern: p, Merged: true, Similarity: sim}
		s.logger.Debug(ctx, "pattern merged",
			zap.String("pattern.id", p.ID),
			zap.Float64("similarity", sim),
			zap.Int("count", p.Count),
			zap.Float64("success_rate", p.SuccessRate))
	} else {
		complexity := obs.Complexity
		if complexity == "" {
			complexity = ComplexityMedium
		}
		p := &Pattern{
			ID:                  s.newID(),
			Description:         obs.Task,
			Category:            s.classifier.Detect(obs.Task),
			Characteristics:     textsim.UniqueTokens(obs.Task),
			Complexity:          complexity,
			RecommendedAgents:   []string{obs.Agent},
			AgentPerformance:    map[string]float64{obs.Agent: value},
			SuccessRate:         value,
			AvgCompletionTimeMs: obs.DurationMs,
			Count:               1,
			CreatedAt:           now,
			LastSeen:            now,
		}
		patterns = append(patterns, p)
		result = &RecordResult{Pattern: p}
		s.logger.Debug(ctx, "pattern created",
			zap.String("pattern.id", p.ID),
			zap.String("category", p.Category))
	}

	if err := s.repo.SavePatterns(ctx, patterns); err != nil {
		return result, fmt.Errorf("%w: patterns: %w", ErrPersistence, err)
	}
	return result, nil
}

// mergeObservation applies one observation to an existing pattern.
// success_rate is the running mean over count observations;
// agent_performance is an exponential moving average seeded at 0.5.
func mergeObservation(p *Pattern, agent string, value float64, now time.Time) {
	if p.Count < 1 {
		p.Count = 1
	}
	p.Count++
	p.LastSeen = now
	p.SuccessRate = clamp01((p.SuccessRate*float64(p.Count-1) + value) / float64(p.Count))

	if !p.HasAgent(agent) {
		p.RecommendedAgents = append(p.RecommendedAgents, agent)
	}
	if p.AgentPerformance == nil {
		p.AgentPerformance = map[string]float64{}
	}
	prev, ok := p.AgentPerformance[agent]
	if !ok {
		prev = newAgentPerformance
	}
	p.AgentPerformance[agent] = clamp01(prev*0.9 + value*0.1)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Insights aggregates the pattern collection.
type Insights struct {
	Empty                  bool               `json:"-"`
	Message                string             `json:"message,omitempty"`
	TotalPatterns          int                `json:"total_patterns"`
	TotalTasks             int                `json:"total_tasks"`
	CategorySuccessRate    map[string]float64 `json:"category_success_rate"`
	AgentSuccessRate       map[string]float64 `json:"agent_success_rate"`
	ComplexityDistribution map[string]int     `json:"complexity_distribution"`
}

// MarshalJSON reduces an empty report to its message.
func (in Insights) MarshalJSON() ([]byte, error) {
	if in.Empty {
		return json.Marshal(struct {
			Message string `json:"message"`
		}{in.Message})
	}
	type alias Insights
	return json.Marshal(alias(in))
}

// Insights aggregates the stored patterns. TotalTasks is left at zero;
// the task log owns that figure.
func (s *PatternStore) Insights(ctx context.Context) (Insights, error) {
	patterns, err := s.All(ctx)
	if err != nil {
		return Insights{}, err
	}
	return ComputeInsights(patterns), nil
}

// ComputeInsights averages success rates per category and per agent and
// counts patterns per complexity.
func ComputeInsights(patterns []*Pattern) Insights {
	if len(patterns) == 0 {
		return Insights{Empty: true, Message: NoPatternsMessage}
	}

	type acc struct {
		count int
		total float64
	}
	categories := map[string]*acc{}
	agents := map[string]*acc{}
	complexity := map[string]int{}

	for _, p := range patterns {
		cat := p.Category
		if cat == "" {
			cat = CategoryGeneral
		}
		if categories[cat] == nil {
			categories[cat] = &acc{}
		}
		categories[cat].count++
		categories[cat].total += p.SuccessRate

		for agent, rate := range p.AgentPerformance {
			if agents[agent] == nil {
				agents[agent] = &acc{}
			}
			agents[agent].count++
			agents[agent].total += rate
		}

		cx := string(p.Complexity)
		if cx == "" {
			cx = string(ComplexityMedium)
		}
		complexity[cx]++
	}

	in := Insights{
		TotalPatterns:          len(patterns),
		CategorySuccessRate:    make(map[string]float64, len(categories)),
		AgentSuccessRate:       make(map[string]float64, len(agents)),
		ComplexityDistribution: complexity,
	}
	for cat, a := range categories {
		in.CategorySuccessRate[cat] = a.total / float64(a.count)
	}
	for agent, a := range agents {
		in.AgentSuccessRate[agent] = a.total / float64(a.count)
	}
	return in
}

// Recent returns the last n patterns in storage order, i.e. the most
// recently created ones. n <= 0 returns every pattern.
func (s *PatternStore) Recent(ctx context.Context, n int) ([]*Pattern, error) {
	patterns, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return lastN(patterns, n), nil
}

func lastN[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
