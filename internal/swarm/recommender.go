package swarm

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
)

const (
	// similarBoost multiplies the similarity of a matched pattern when
	// crediting its agents.
	similarBoost = 3.0

	// similarShown is the number of similar patterns included in a recommendation.
	similarShown = 3
)

// RankedAgent is an agent with its normalized score in [0, 1].
type RankedAgent struct {
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence"`
}

// Recommendation ranks agents for one task.
type Recommendation struct {
	Category        string        `json:"category"`
	RankedAgents    []RankedAgent `json:"ranked_agents"`
	SimilarPatterns []Match       `json:"similar_patterns"`
}

// AgentRecommender ranks agents by static capability and by past
// involvement in similar patterns.
type AgentRecommender struct {
	store      *PatternStore
	classifier *KeywordClassifier
	roster     *Roster
	limit      int
	logger     *logging.Logger
}

// NewAgentRecommender creates a recommender. limit bounds the similar
// patterns consulted; values <= 0 use DefaultQueryLimit.
func NewAgentRecommender(store *PatternStore, classifier *KeywordClassifier, roster *Roster, limit int, logger *logging.Logger) *AgentRecommender {
	if roster == nil {
		roster = DefaultRoster()
	}
	if classifier == nil {
		classifier = NewKeywordClassifier(roster.Categories)
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AgentRecommender{
		store:      store,
		classifier: classifier,
		roster:     roster,
		limit:      limit,
		logger:     logger,
	}
}

// FindBestAgent ranks agents for text. An empty category is detected from
// the text.
//
// Each keyword of the category gives +1 to every agent listing it as a
// capability. Each agent recommended by a similar pattern gets
// +3*similarity. Scores are divided by the maximum. When no agent scores
// the ranking is empty.
func (r *AgentRecommender) FindBestAgent(ctx context.Context, text, category string) (*Recommendation, error) {
	if category == "" {
		category = r.classifier.Detect(text)
	}

	similar, err := r.store.FindSimilar(ctx, text, r.limit)
	if err != nil {
		return nil, err
	}

	scores := newScoreboard()
	for _, kw := range r.classifier.Keywords(category) {
		for _, agent := range r.roster.AgentsWith(kw) {
			scores.add(agent, 1)
		}
	}
	for _, m := range similar {
		for _, agent := range m.Pattern.RecommendedAgents {
			scores.add(agent, m.Similarity*similarBoost)
		}
	}

	ranked := scores.ranked()
	r.logger.Debug(ctx, "agents ranked",
		zap.String("category", category),
		zap.Int("candidates", len(ranked)),
		zap.Int("similar_patterns", len(similar)))

	shown := similar
	if len(shown) > similarShown {
		shown = shown[:similarShown]
	}
	return &Recommendation{
		Category:        category,
		RankedAgents:    ranked,
		SimilarPatterns: shown,
	}, nil
}

// scoreboard accumulates scores and remembers first-scoring order.
type scoreboard struct {
	order  []string
	scores map[string]float64
}

func newScoreboard() *scoreboard {
	return &scoreboard{scores: map[string]float64{}}
}

func (b *scoreboard) add(agent string, delta float64) {
	if _, ok := b.scores[agent]; !ok {
		b.order = append(b.order, agent)
	}
	b.scores[agent] += delta
}

// ranked normalizes by the maximum score and sorts descending; equal
// scores keep first-scoring order.
func (b *scoreboard) ranked() []RankedAgent {
	out := make([]RankedAgent, 0, len(b.order))
	top := 0.0
	for _, agent := range b.order {
		if s := b.scores[agent]; s > top {
			top = s
		}
	}
	for _, agent := range b.order {
		conf := b.scores[agent]
		if top > 0 {
			conf /= top
		}
		out = append(out, RankedAgent{Agent: agent, Confidence: conf})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
