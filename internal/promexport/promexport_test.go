package promexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/swarmintel/internal/swarm"
)

func sampleReport() *swarm.StatsReport {
	patterns := []*swarm.Pattern{
		{Category: "bugfix", SuccessRate: 0.5, Complexity: swarm.ComplexityMedium,
			AgentPerformance: map[string]float64{"coder": 1, "reviewer": 0.45}},
		{Category: "deployment", SuccessRate: 1, Complexity: swarm.ComplexityHigh,
			AgentPerformance: map[string]float64{"ops": 1}},
	}
	tasks := []*swarm.TaskRecord{
		{Agent: "coder", Outcome: swarm.OutcomeSuccess, Category: "bugfix"},
		{Agent: "reviewer", Outcome: swarm.OutcomeFailure, Category: "bugfix"},
		{Agent: "ops", Outcome: swarm.OutcomeSuccess, Category: "deployment"},
	}
	in := swarm.ComputeInsights(patterns)
	in.TotalTasks = len(tasks)
	return &swarm.StatsReport{
		Status:   swarm.StatusSuccess,
		Insights: in,
		Tasks:    swarm.SummarizeTasks(tasks),
	}
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()
	m.Observe(sampleReport())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PatternsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TasksTotal))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.CategorySuccessRate.WithLabelValues("bugfix")))
	assert.Equal(t, 0.45, testutil.ToFloat64(m.AgentSuccessRate.WithLabelValues("reviewer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComplexityDistribution.WithLabelValues("high")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksByOutcome.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksByOutcome.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AgentTasks.WithLabelValues("ops")))
}

func TestMetrics_ObserveEmptyStore(t *testing.T) {
	m := NewMetrics()
	m.Observe(&swarm.StatsReport{
		Insights: swarm.ComputeInsights(nil),
		Tasks:    swarm.SummarizeTasks(nil),
	})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.PatternsTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(m.CategorySuccessRate))
	assert.Equal(t, 3, testutil.CollectAndCount(m.TasksByOutcome))
}

func TestMetrics_PrivateRegistry(t *testing.T) {
	// two instances must not collide on registration
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "swarmintel.prom")
	require.NoError(t, WriteTextfile(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# TYPE swarmintel_patterns gauge")
	assert.Contains(t, text, "swarmintel_patterns 2")
	assert.Contains(t, text, `swarmintel_category_success_rate{category="deployment"} 1`)
	assert.Contains(t, text, `swarmintel_tasks_by_outcome{outcome="failure"} 1`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
}

func TestWriteTextfile_Expected(t *testing.T) {
	m := NewMetrics()
	m.Observe(sampleReport())

	expected := `
# HELP swarmintel_agent_tasks Number of recorded tasks per agent
# TYPE swarmintel_agent_tasks gauge
swarmintel_agent_tasks{agent="coder"} 1
swarmintel_agent_tasks{agent="ops"} 1
swarmintel_agent_tasks{agent="reviewer"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "swarmintel_agent_tasks"))
}
