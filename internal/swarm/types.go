package swarm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Outcome is the result label of a completed task.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// Outcomes lists the valid outcomes in display order.
var Outcomes = []Outcome{OutcomeSuccess, OutcomeFailure, OutcomePartial}

// ParseOutcome validates s as an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.IsValid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidOutcome, s)
	}
	return o, nil
}

// IsValid reports whether o is one of the known outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomePartial:
		return true
	}
	return false
}

// Value is 1 for success and 0 otherwise. Partial counts as a failure.
func (o Outcome) Value() float64 {
	if o == OutcomeSuccess {
		return 1
	}
	return 0
}

// Complexity grades how demanding a task is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ParseComplexity validates s as a Complexity. Empty means medium.
func ParseComplexity(s string) (Complexity, error) {
	if s == "" {
		return ComplexityMedium, nil
	}
	c := Complexity(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidComplexity, s)
	}
	return c, nil
}

// IsValid reports whether c is one of the known complexities.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	}
	return false
}

// Pattern is a learned cluster of similar task observations.
//
// Description, Category, Characteristics, Complexity and
// AvgCompletionTimeMs are fixed when the pattern is created. Merges only
// touch Count, LastSeen, SuccessRate, RecommendedAgents and
// AgentPerformance.
type Pattern struct {
	ID                  string             `json:"id"`
	Description         string             `json:"description"`
	Category            string             `json:"category"`
	Characteristics     []string           `json:"characteristics"`
	Complexity          Complexity         `json:"complexity"`
	RecommendedAgents   []string           `json:"recommended_agents"`
	AgentPerformance    map[string]float64 `json:"agent_performance"`
	SuccessRate         float64            `json:"success_rate"`
	AvgCompletionTimeMs int64              `json:"avg_completion_time_ms"`
	Count               int                `json:"count"`
	CreatedAt           time.Time          `json:"created_at"`
	LastSeen            time.Time          `json:"last_seen"`
}

// Pattern decoding defaults for records written by hand or by older tools.
const (
	defaultSuccessRate = 0.5
	defaultCount       = 1
)

// UnmarshalJSON fills fields missing from the record with their defaults
// and accepts timestamps without a zone offset.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	type alias Pattern
	aux := struct {
		*alias
		CreatedAt flexTime `json:"created_at"`
		LastSeen  flexTime `json:"last_seen"`
	}{
		alias: (*alias)(p),
	}
	p.SuccessRate = defaultSuccessRate
	p.Count = defaultCount
	p.Complexity = ComplexityMedium
	p.Category = CategoryGeneral

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.CreatedAt = time.Time(aux.CreatedAt)
	p.LastSeen = time.Time(aux.LastSeen)
	if p.AgentPerformance == nil {
		p.AgentPerformance = map[string]float64{}
	}
	return nil
}

// HasAgent reports whether agent is in RecommendedAgents.
func (p *Pattern) HasAgent(agent string) bool {
	for _, a := range p.RecommendedAgents {
		if a == agent {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of p.
func (p *Pattern) Clone() *Pattern {
	c := *p
	c.Characteristics = append([]string(nil), p.Characteristics...)
	c.RecommendedAgents = append([]string(nil), p.RecommendedAgents...)
	c.AgentPerformance = make(map[string]float64, len(p.AgentPerformance))
	for k, v := range p.AgentPerformance {
		c.AgentPerformance[k] = v
	}
	return &c
}

// TaskRecord is one completed task. Records are never modified.
type TaskRecord struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Agent       string    `json:"agent"`
	Outcome     Outcome   `json:"outcome"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
	Category    string    `json:"category"`
}

// UnmarshalJSON accepts timestamps without a zone offset.
func (t *TaskRecord) UnmarshalJSON(data []byte) error {
	type alias TaskRecord
	aux := struct {
		*alias
		Timestamp flexTime `json:"timestamp"`
	}{
		alias: (*alias)(t),
	}
	t.Category = CategoryGeneral
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Timestamp = time.Time(aux.Timestamp)
	return nil
}

// Observation is a single learning input.
type Observation struct {
	Task       string
	Agent      string
	Outcome    Outcome
	Complexity Complexity
	DurationMs int64
}

// flexTime decodes RFC 3339 and zone-less ISO 8601 timestamps.
type flexTime time.Time

var flexLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range flexLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
