package swarm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
)

// StatusSuccess and StatusError are the report status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// LearnedMessage confirms a successful learn.
const LearnedMessage = "Pattern and task recorded successfully"

// RecommendReport is the result of Service.Recommend.
type RecommendReport struct {
	Status         string          `json:"status"`
	Task           string          `json:"task"`
	Recommendation *Recommendation `json:"recommendation"`
}

// QueryResult is one pattern in a query report.
type QueryResult struct {
	Similarity        float64    `json:"similarity"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	SuccessRate       float64    `json:"success_rate"`
	RecommendedAgents []string   `json:"recommended_agents"`
	Complexity        Complexity `json:"complexity"`
}

// QueryReport is the result of Service.Query.
type QueryReport struct {
	Status  string        `json:"status"`
	Query   string        `json:"query"`
	Matches int           `json:"matches"`
	Results []QueryResult `json:"results"`
}

// LearnRequest carries the raw learn arguments.
type LearnRequest struct {
	Task       string
	Agent      string
	Outcome    string
	Complexity string
	DurationMs int64
}

// LearnReport is the result of Service.Learn.
type LearnReport struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Task      string  `json:"task"`
	Agent     string  `json:"agent"`
	Outcome   Outcome `json:"outcome"`
	PatternID string  `json:"pattern_id"`
	Merged    bool    `json:"merged"`
}

// CouncilReport is the result of Service.Council.
type CouncilReport struct {
	Status                string                 `json:"status"`
	Task                  string                 `json:"task"`
	CouncilRecommendation *CouncilRecommendation `json:"council_recommendation"`
}

// RecentPattern summarizes a pattern in the stats report.
type RecentPattern struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	SuccessRate float64  `json:"success_rate"`
	Agents      []string `json:"agents"`
}

// StatsReport is the result of Service.Stats.
type StatsReport struct {
	Status         string          `json:"status"`
	Insights       Insights        `json:"insights"`
	RecentPatterns []RecentPattern `json:"recent_patterns"`
	Tasks          TaskSummary     `json:"tasks"`
}

// TasksReport is the result of Service.Tasks.
type TasksReport struct {
	Status string        `json:"status"`
	Total  int           `json:"total"`
	Tasks  []*TaskRecord `json:"tasks"`
}

// Service exposes the swarm operations: recommend, query, learn,
// council, stats and tasks.
type Service struct {
	classifier  *KeywordClassifier
	patterns    *PatternStore
	tasks       *TaskLog
	recommender *AgentRecommender
	council     *CouncilRecommender
	recentLimit int
	logger      *logging.Logger
	tracer      trace.Tracer
	metrics     *Metrics
}

type serviceOptions struct {
	roster         *Roster
	logger         *logging.Logger
	tracer         trace.Tracer
	metrics        *Metrics
	recommendLimit int
	recentLimit    int
	storeOpts      []StoreOption
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

// WithRoster replaces the built-in agent, category and council tables.
func WithRoster(r *Roster) ServiceOption {
	return func(o *serviceOptions) { o.roster = r }
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = l }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(o *serviceOptions) { o.tracer = t }
}

// WithMetrics overrides the instruments created on the global meter.
func WithMetrics(m *Metrics) ServiceOption {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithRecommendLimit bounds the similar patterns consulted by Recommend.
func WithRecommendLimit(n int) ServiceOption {
	return func(o *serviceOptions) { o.recommendLimit = n }
}

// WithRecentLimit sets how many recent patterns Stats lists.
func WithRecentLimit(n int) ServiceOption {
	return func(o *serviceOptions) { o.recentLimit = n }
}

// WithStoreOptions passes options to the underlying PatternStore.
func WithStoreOptions(opts ...StoreOption) ServiceOption {
	return func(o *serviceOptions) { o.storeOpts = append(o.storeOpts, opts...) }
}

// NewService wires the swarm components over the given repositories.
func NewService(patterns PatternRepository, tasks TaskRepository, opts ...ServiceOption) (*Service, error) {
	o := serviceOptions{
		recommendLimit: DefaultQueryLimit,
		recentLimit:    DefaultRecentLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.roster == nil {
		o.roster = DefaultRoster()
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(o.logger)
	}

	classifier := NewKeywordClassifier(o.roster.Categories)

	store, err := NewPatternStore(patterns, classifier, o.logger.Named("patterns"), o.storeOpts...)
	if err != nil {
		return nil, err
	}
	taskLog, err := NewTaskLog(tasks, classifier, o.logger.Named("tasks"))
	if err != nil {
		return nil, err
	}

	return &Service{
		classifier:  classifier,
		patterns:    store,
		tasks:       taskLog,
		recommender: NewAgentRecommender(store, classifier, o.roster, o.recommendLimit, o.logger.Named("recommender")),
		council:     NewCouncilRecommender(classifier, o.roster),
		recentLimit: o.recentLimit,
		logger:      o.logger,
		tracer:      o.tracer,
		metrics:     o.metrics,
	}, nil
}

// Patterns returns the underlying pattern store.
func (s *Service) Patterns() *PatternStore { return s.patterns }

// TaskLog returns the underlying task log.
func (s *Service) TaskLog() *TaskLog { return s.tasks }

// begin opens the span for an operation and tags the context for logging.
func (s *Service) begin(ctx context.Context, op string) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "swarm."+op)
	return logging.WithOperation(ctx, op), span, time.Now()
}

// end records the outcome of an operation on span, metrics and log.
func (s *Service) end(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error(ctx, "operation failed", zap.Error(err))
	}
	s.metrics.RecordOperation(ctx, op, time.Since(start), err)
	span.End()
}

// Recommend ranks agents for task.
func (s *Service) Recommend(ctx context.Context, task string) (rep *RecommendReport, err error) {
	ctx, span, start := s.begin(ctx, "recommend")
	defer func() { s.end(ctx, span, "recommend", start, err) }()

	if strings.TrimSpace(task) == "" {
		return nil, fmt.Errorf("%w: recommend requires a task description", ErrMissingArgument)
	}

	rec, err := s.recommender.FindBestAgent(ctx, task, "")
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("category", rec.Category),
		attribute.Int("ranked_agents", len(rec.RankedAgents)),
	)
	s.metrics.RecordMatches(ctx, "recommend", len(rec.SimilarPatterns))

	return &RecommendReport{Status: StatusSuccess, Task: task, Recommendation: rec}, nil
}

// Query returns patterns similar to text, at most limit of them.
// Similarities are rounded to three decimals.
func (s *Service) Query(ctx context.Context, text string, limit int) (rep *QueryReport, err error) {
	ctx, span, start := s.begin(ctx, "query")
	defer func() { s.end(ctx, span, "query", start, err) }()

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query requires a pattern", ErrMissingArgument)
	}
	span.SetAttributes(attribute.Int("limit", limit))

	matches, err := s.patterns.FindSimilar(ctx, text, limit)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMatches(ctx, "query", len(matches))

	rep = &QueryReport{
		Status:  StatusSuccess,
		Query:   text,
		Matches: len(matches),
		Results: make([]QueryResult, 0, len(matches)),
	}
	for _, m := range matches {
		rep.Results = append(rep.Results, QueryResult{
			Similarity:        round3(m.Similarity),
			Description:       m.Pattern.Description,
			Category:          m.Pattern.Category,
			SuccessRate:       m.Pattern.SuccessRate,
			RecommendedAgents: m.Pattern.RecommendedAgents,
			Complexity:        m.Pattern.Complexity,
		})
	}
	return rep, nil
}

// Learn validates the request, then records the observation in the
// pattern store and the task log. Both are attempted even if the first
// fails; save failures wrap ErrPersistence.
func (s *Service) Learn(ctx context.Context, req LearnRequest) (rep *LearnReport, err error) {
	ctx, span, start := s.begin(ctx, "learn")
	defer func() { s.end(ctx, span, "learn", start, err) }()

	if strings.TrimSpace(req.Task) == "" || strings.TrimSpace(req.Agent) == "" || req.Outcome == "" {
		return nil, fmt.Errorf("%w: learn requires --task, --agent, and --outcome", ErrMissingArgument)
	}
	outcome, err := ParseOutcome(req.Outcome)
	if err != nil {
		return nil, err
	}
	complexity, err := ParseComplexity(req.Complexity)
	if err != nil {
		return nil, err
	}
	if req.DurationMs < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrMissingArgument)
	}

	span.SetAttributes(
		attribute.String("agent", req.Agent),
		attribute.String("outcome", string(outcome)),
		attribute.String("complexity", string(complexity)),
	)

	result, patternErr := s.patterns.Record(ctx, Observation{
		Task:       req.Task,
		Agent:      req.Agent,
		Outcome:    outcome,
		Complexity: complexity,
		DurationMs: req.DurationMs,
	})
	_, taskErr := s.tasks.Record(ctx, req.Task, req.Agent, outcome, req.DurationMs)
	if err := errors.Join(patternErr, taskErr); err != nil {
		return nil, err
	}

	s.metrics.RecordObservation(ctx, outcome, result.Merged)
	span.SetAttributes(
		attribute.String("pattern.id", result.Pattern.ID),
		attribute.Bool("merged", result.Merged),
	)
	s.logger.Info(ctx, "observation learned",
		zap.String("pattern.id", result.Pattern.ID),
		zap.Bool("merged", result.Merged),
		zap.Int("count", result.Pattern.Count))

	return &LearnReport{
		Status:    StatusSuccess,
		Message:   LearnedMessage,
		Task:      req.Task,
		Agent:     req.Agent,
		Outcome:   outcome,
		PatternID: result.Pattern.ID,
		Merged:    result.Merged,
	}, nil
}

// Council recommends a council for task. An empty complexity means
// medium; an unrecognized one gets the default council size.
func (s *Service) Council(ctx context.Context, task, complexity string) (rep *CouncilReport, err error) {
	ctx, span, start := s.begin(ctx, "council")
	defer func() { s.end(ctx, span, "council", start, err) }()

	if strings.TrimSpace(task) == "" {
		return nil, fmt.Errorf("%w: council requires a task description", ErrMissingArgument)
	}
	cx := Complexity(complexity)
	if cx == "" {
		cx = ComplexityMedium
	}

	rec := s.council.Recommend(task, cx)
	span.SetAttributes(
		attribute.String("category", rec.TaskCategory),
		attribute.Int("council_size", len(rec.RecommendedCouncil)),
	)
	return &CouncilReport{Status: StatusSuccess, Task: task, CouncilRecommendation: rec}, nil
}

// Stats aggregates patterns and tasks and lists the most recent patterns.
// An empty store reports NoPatternsMessage instead of averages.
func (s *Service) Stats(ctx context.Context) (rep *StatsReport, err error) {
	ctx, span, start := s.begin(ctx, "stats")
	defer func() { s.end(ctx, span, "stats", start, err) }()

	patterns, err := s.patterns.All(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.All(ctx)
	if err != nil {
		return nil, err
	}

	insights := ComputeInsights(patterns)
	if !insights.Empty {
		insights.TotalTasks = len(tasks)
	}

	recent := lastN(patterns, s.recentLimit)
	rep = &StatsReport{
		Status:         StatusSuccess,
		Insights:       insights,
		RecentPatterns: make([]RecentPattern, 0, len(recent)),
		Tasks:          SummarizeTasks(tasks),
	}
	for _, p := range recent {
		rep.RecentPatterns = append(rep.RecentPatterns, RecentPattern{
			ID:          p.ID,
			Category:    p.Category,
			SuccessRate: p.SuccessRate,
			Agents:      p.RecommendedAgents,
		})
	}
	span.SetAttributes(
		attribute.Int("patterns", len(patterns)),
		attribute.Int("tasks", len(tasks)),
	)
	return rep, nil
}

// Tasks lists the last limit task records. limit <= 0 uses DefaultTaskListLimit.
func (s *Service) Tasks(ctx context.Context, limit int) (rep *TasksReport, err error) {
	ctx, span, start := s.begin(ctx, "tasks")
	defer func() { s.end(ctx, span, "tasks", start, err) }()

	if limit <= 0 {
		limit = DefaultTaskListLimit
	}
	tasks, err := s.tasks.All(ctx)
	if err != nil {
		return nil, err
	}
	return &TasksReport{
		Status: StatusSuccess,
		Total:  len(tasks),
		Tasks:  lastN(tasks, limit),
	}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
