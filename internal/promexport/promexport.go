// Package promexport snapshots swarm statistics into Prometheus gauges.
//
// swarmctl is a short-lived process, so nothing is scraped. Instead the
// gauges are written in text exposition format to a file that
// node_exporter's textfile collector picks up.
package promexport

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fyrsmithlabs/swarmintel/internal/swarm"
)

const namespace = "swarmintel"

// Metrics holds the gauges registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	PatternsTotal          prometheus.Gauge
	TasksTotal             prometheus.Gauge
	CategorySuccessRate    *prometheus.GaugeVec
	AgentSuccessRate       *prometheus.GaugeVec
	ComplexityDistribution *prometheus.GaugeVec
	TasksByOutcome         *prometheus.GaugeVec
	AgentTasks             *prometheus.GaugeVec
}

// NewMetrics registers the gauges on a fresh registry.
//
// Metrics:
//   - swarmintel_patterns - learned patterns
//   - swarmintel_tasks - recorded tasks
//   - swarmintel_category_success_rate{category} - mean pattern success rate
//   - swarmintel_agent_success_rate{agent} - mean agent performance
//   - swarmintel_patterns_by_complexity{complexity} - patterns per complexity
//   - swarmintel_tasks_by_outcome{outcome} - tasks per outcome
//   - swarmintel_agent_tasks{agent} - tasks completed per agent
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		PatternsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "patterns",
			Help:      "Number of learned task patterns",
		}),
		TasksTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks",
			Help:      "Number of recorded tasks",
		}),
		CategorySuccessRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_success_rate",
			Help:      "Mean success rate of patterns in a category",
		}, []string{"category"}),
		AgentSuccessRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agent_success_rate",
			Help:      "Mean performance of an agent across patterns",
		}, []string{"agent"}),
		ComplexityDistribution: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "patterns_by_complexity",
			Help:      "Number of patterns per complexity level",
		}, []string{"complexity"}),
		TasksByOutcome: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_by_outcome",
			Help:      "Number of recorded tasks per outcome",
		}, []string{"outcome"}),
		AgentTasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agent_tasks",
			Help:      "Number of recorded tasks per agent",
		}, []string{"agent"}),
	}
}

// Observe sets every gauge from a stats report.
func (m *Metrics) Observe(rep *swarm.StatsReport) {
	in := rep.Insights
	m.PatternsTotal.Set(float64(in.TotalPatterns))
	m.TasksTotal.Set(float64(rep.Tasks.Total))

	for category, rate := range in.CategorySuccessRate {
		m.CategorySuccessRate.WithLabelValues(category).Set(rate)
	}
	for agent, rate := range in.AgentSuccessRate {
		m.AgentSuccessRate.WithLabelValues(agent).Set(rate)
	}
	for complexity, n := range in.ComplexityDistribution {
		m.ComplexityDistribution.WithLabelValues(complexity).Set(float64(n))
	}
	for _, outcome := range swarm.Outcomes {
		m.TasksByOutcome.WithLabelValues(string(outcome)).Set(float64(rep.Tasks.ByOutcome[outcome]))
	}
	for _, c := range rep.Tasks.Contributions {
		m.AgentTasks.WithLabelValues(c.Agent).Set(float64(c.Tasks))
	}
}

// WriteTextfile snapshots rep into path, creating its directory.
// WriteToTextfile writes through a temp file and rename.
func WriteTextfile(path string, rep *swarm.StatsReport) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create textfile directory: %w", err)
		}
	}

	m := NewMetrics()
	m.Observe(rep)
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
