package swarm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
)

// DefaultTaskListLimit is the number of task records listed by default.
const DefaultTaskListLimit = 20

// Maturity describes how much the swarm has learned, by task count.
type Maturity string

const (
	MaturityNew        Maturity = "new"
	MaturityGrowing    Maturity = "growing"
	MaturityDeveloping Maturity = "developing"
	MaturityMature     Maturity = "mature"
)

// MaturityFor grades a task count: 0 new, under 10 growing, under 50
// developing, otherwise mature.
func MaturityFor(tasks int) Maturity {
	switch {
	case tasks <= 0:
		return MaturityNew
	case tasks < 10:
		return MaturityGrowing
	case tasks < 50:
		return MaturityDeveloping
	}
	return MaturityMature
}

// AgentContribution counts the tasks an agent completed.
type AgentContribution struct {
	Agent     string `json:"agent"`
	Tasks     int    `json:"tasks"`
	Successes int    `json:"successes"`
}

// TaskSummary aggregates the task log.
type TaskSummary struct {
	Total         int                 `json:"total"`
	Maturity      Maturity            `json:"maturity"`
	ByOutcome     map[Outcome]int     `json:"by_outcome"`
	ByCategory    map[string]int      `json:"by_category"`
	Contributions []AgentContribution `json:"agent_contributions"`
}

// TaskLog is the append-only record of completed tasks.
type TaskLog struct {
	repo       TaskRepository
	classifier *KeywordClassifier
	now        func() time.Time
	newID      func() string
	logger     *logging.Logger
}

// NewTaskLog creates a TaskLog over repo.
func NewTaskLog(repo TaskRepository, classifier *KeywordClassifier, logger *logging.Logger) (*TaskLog, error) {
	if repo == nil {
		return nil, fmt.Errorf("task repository cannot be nil")
	}
	if classifier == nil {
		classifier = NewKeywordClassifier(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TaskLog{
		repo:       repo,
		classifier: classifier,
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     logger,
	}, nil
}

// All returns every task record in insertion order.
func (l *TaskLog) All(ctx context.Context) ([]*TaskRecord, error) {
	tasks, err := l.repo.LoadTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	return tasks, nil
}

// Record appends a task record categorized from its description.
func (l *TaskLog) Record(ctx context.Context, task, agent string, outcome Outcome, durationMs int64) (*TaskRecord, error) {
	tasks, err := l.All(ctx)
	if err != nil {
		return nil, err
	}

	rec := &TaskRecord{
		ID:          l.newID(),
		Description: task,
		Agent:       agent,
		Outcome:     outcome,
		DurationMs:  durationMs,
		Timestamp:   l.now(),
		Category:    l.classifier.Detect(task),
	}
	tasks = append(tasks, rec)

	if err := l.repo.SaveTasks(ctx, tasks); err != nil {
		return rec, fmt.Errorf("%w: tasks: %w", ErrPersistence, err)
	}
	l.logger.Debug(ctx, "task recorded",
		zap.String("task.id", rec.ID),
		zap.String("agent", agent),
		zap.String("outcome", string(outcome)))
	return rec, nil
}

// Recent returns the last n records, newest last. n <= 0 returns all.
func (l *TaskLog) Recent(ctx context.Context, n int) ([]*TaskRecord, error) {
	tasks, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	return lastN(tasks, n), nil
}

// Summary aggregates the whole log.
func (l *TaskLog) Summary(ctx context.Context) (TaskSummary, error) {
	tasks, err := l.All(ctx)
	if err != nil {
		return TaskSummary{}, err
	}
	return SummarizeTasks(tasks), nil
}

// SummarizeTasks counts tasks by outcome, category and agent. Agent
// contributions are ordered by task count, then by first appearance.
func SummarizeTasks(tasks []*TaskRecord) TaskSummary {
	sum := TaskSummary{
		Total:         len(tasks),
		Maturity:      MaturityFor(len(tasks)),
		ByOutcome:     map[Outcome]int{},
		ByCategory:    map[string]int{},
		Contributions: []AgentContribution{},
	}

	index := map[string]int{}
	for _, t := range tasks {
		sum.ByOutcome[t.Outcome]++
		sum.ByCategory[t.Category]++

		i, ok := index[t.Agent]
		if !ok {
			i = len(sum.Contributions)
			index[t.Agent] = i
			sum.Contributions = append(sum.Contributions, AgentContribution{Agent: t.Agent})
		}
		sum.Contributions[i].Tasks++
		if t.Outcome == OutcomeSuccess {
			sum.Contributions[i].Successes++
		}
	}

	sort.SliceStable(sum.Contributions, func(i, j int) bool {
		return sum.Contributions[i].Tasks > sum.Contributions[j].Tasks
	})
	return sum
}
