package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/swarmintel/internal/swarm"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

const (
	barWidth        = 20
	contributionMax = 20
)

// renderText renders a report for a terminal.
func renderText(report any) string {
	var b strings.Builder
	switch r := report.(type) {
	case *swarm.RecommendReport:
		renderRecommend(&b, r)
	case *swarm.QueryReport:
		renderQuery(&b, r)
	case *swarm.LearnReport:
		renderLearn(&b, r)
	case *swarm.CouncilReport:
		renderCouncil(&b, r)
	case *swarm.StatsReport:
		renderStats(&b, r)
	case *swarm.TasksReport:
		renderTasks(&b, r)
	default:
		fmt.Fprintf(&b, "%v\n", report)
	}
	return b.String()
}

func renderError(err error) string {
	return errorStyle.Render("✗ error") + " " + err.Error()
}

func header(b *strings.Builder, title string) {
	b.WriteString(headerStyle.Render(" "+title+" ") + "\n")
}

func section(b *strings.Builder, title string) {
	b.WriteString(sectionStyle.Render("┃ "+title) + "\n")
}

func field(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render("  "+label+": ") + valueStyle.Render(value) + "\n")
}

// bar draws ratio in [0, 1] as a fixed-width bar.
func bar(ratio float64) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio*barWidth + 0.5)
	return rateStyle(ratio).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", barWidth-filled))
}

func rateStyle(ratio float64) lipgloss.Style {
	switch {
	case ratio >= 0.7:
		return goodStyle
	case ratio >= 0.4:
		return warnStyle
	}
	return errorStyle
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func renderRecommend(b *strings.Builder, r *swarm.RecommendReport) {
	header(b, "Agent recommendation")
	field(b, "Task", r.Task)
	field(b, "Category", r.Recommendation.Category)

	section(b, "Ranked agents")
	if len(r.Recommendation.RankedAgents) == 0 {
		b.WriteString(dimStyle.Render("  no agent matches this task") + "\n")
	}
	for _, ra := range r.Recommendation.RankedAgents {
		fmt.Fprintf(b, "  %-16s %s %s\n", ra.Agent, bar(ra.Confidence), dimStyle.Render(fmt.Sprintf("%.2f", ra.Confidence)))
	}

	if len(r.Recommendation.SimilarPatterns) > 0 {
		section(b, "Similar patterns")
		for _, m := range r.Recommendation.SimilarPatterns {
			fmt.Fprintf(b, "  %s %s\n", dimStyle.Render(fmt.Sprintf("%.3f", m.Similarity)), m.Pattern.Description)
		}
	}
}

func renderQuery(b *strings.Builder, r *swarm.QueryReport) {
	header(b, "Pattern query")
	field(b, "Query", r.Query)
	field(b, "Matches", fmt.Sprintf("%d", r.Matches))

	for _, res := range r.Results {
		section(b, res.Description)
		field(b, "Similarity", fmt.Sprintf("%.3f", res.Similarity))
		field(b, "Category", res.Category)
		field(b, "Complexity", string(res.Complexity))
		b.WriteString(labelStyle.Render("  Success: ") + bar(res.SuccessRate) + " " + dimStyle.Render(percent(res.SuccessRate)) + "\n")
		field(b, "Agents", strings.Join(res.RecommendedAgents, ", "))
	}
}

func renderLearn(b *strings.Builder, r *swarm.LearnReport) {
	b.WriteString(goodStyle.Render("✓ "+r.Message) + "\n")
	field(b, "Task", r.Task)
	field(b, "Agent", r.Agent)
	field(b, "Outcome", string(r.Outcome))
	action := "created"
	if r.Merged {
		action = "merged"
	}
	field(b, "Pattern", r.PatternID+" ("+action+")")
}

func renderCouncil(b *strings.Builder, r *swarm.CouncilReport) {
	c := r.CouncilRecommendation
	header(b, "Council")
	field(b, "Task", r.Task)
	field(b, "Category", c.TaskCategory)
	field(b, "Complexity", string(c.Complexity))

	section(b, "Members")
	for i, agent := range c.RecommendedCouncil {
		fmt.Fprintf(b, "  %d. %s\n", i+1, agent)
	}
	b.WriteString(dimStyle.Render("  "+c.Rationale) + "\n")
}

func renderStats(b *strings.Builder, r *swarm.StatsReport) {
	header(b, "Swarm intelligence")
	in := r.Insights
	field(b, "Maturity", string(r.Tasks.Maturity))

	if in.Empty {
		b.WriteString(dimStyle.Render("  "+in.Message) + "\n")
	} else {
		field(b, "Patterns", fmt.Sprintf("%d", in.TotalPatterns))
		field(b, "Tasks", fmt.Sprintf("%d", in.TotalTasks))

		section(b, "Success by category")
		for _, k := range sortedKeys(in.CategorySuccessRate) {
			rate := in.CategorySuccessRate[k]
			fmt.Fprintf(b, "  %-16s %s %s\n", k, bar(rate), dimStyle.Render(percent(rate)))
		}

		section(b, "Success by agent")
		for _, k := range sortedKeys(in.AgentSuccessRate) {
			rate := in.AgentSuccessRate[k]
			fmt.Fprintf(b, "  %-16s %s %s\n", k, bar(rate), dimStyle.Render(percent(rate)))
		}

		section(b, "Complexity")
		for _, cx := range []swarm.Complexity{swarm.ComplexityLow, swarm.ComplexityMedium, swarm.ComplexityHigh} {
			fmt.Fprintf(b, "  %-16s %d\n", cx, in.ComplexityDistribution[string(cx)])
		}
	}

	if len(r.Tasks.Contributions) > 0 {
		section(b, "Agent contributions")
		for _, c := range r.Tasks.Contributions {
			n := c.Tasks
			if n > contributionMax {
				n = contributionMax
			}
			fmt.Fprintf(b, "  %-16s %s %s\n", c.Agent, strings.Repeat("▓", n),
				dimStyle.Render(fmt.Sprintf("%d tasks, %d succeeded", c.Tasks, c.Successes)))
		}
	}

	if len(r.RecentPatterns) > 0 {
		section(b, "Recent patterns")
		for _, p := range r.RecentPatterns {
			fmt.Fprintf(b, "  %s %-14s %s %s\n", dimStyle.Render(shortID(p.ID)), p.Category,
				dimStyle.Render(percent(p.SuccessRate)), strings.Join(p.Agents, ", "))
		}
	}
}

func renderTasks(b *strings.Builder, r *swarm.TasksReport) {
	header(b, "Task log")
	field(b, "Total", fmt.Sprintf("%d", r.Total))
	for _, t := range r.Tasks {
		style := errorStyle
		switch t.Outcome {
		case swarm.OutcomeSuccess:
			style = goodStyle
		case swarm.OutcomePartial:
			style = warnStyle
		}
		fmt.Fprintf(b, "  %s %-8s %-12s %s\n",
			dimStyle.Render(t.Timestamp.Format("2006-01-02 15:04")),
			style.Render(string(t.Outcome)), t.Agent, t.Description)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
