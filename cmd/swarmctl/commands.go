package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/swarmintel/internal/swarm"
)

// requireText accepts a task description given as one or more words.
func requireText(what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(strings.Join(args, " ")) == "" {
			return fmt.Errorf("%w: %s requires %s", swarm.ErrMissingArgument, cmd.Name(), what)
		}
		return nil
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func (a *app) recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <task>",
		Short: "Rank agents for a task",
		Long: `Rank agents for a task by category capability and by their history on
similar learned patterns.

Examples:
  swarmctl recommend "Redesign the entire database schema"`,
		Args: requireText("a task description"),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.deps.service.Recommend(cmd.Context(), joinArgs(args))
			if err != nil {
				return err
			}
			return a.emit(rep)
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <pattern>",
		Short: "Find learned patterns similar to a text",
		Long: `Find learned patterns whose blended similarity to the text exceeds the
match threshold, best first.

Examples:
  swarmctl query "login bug" --limit 3`,
		Args: requireText("a pattern"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				limit = a.deps.cfg.Learning.QueryLimit
			}
			rep, err := a.deps.service.Query(cmd.Context(), joinArgs(args), limit)
			if err != nil {
				return err
			}
			return a.emit(rep)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", swarm.DefaultQueryLimit, "maximum number of patterns returned")
	return cmd
}

func (a *app) learnCmd() *cobra.Command {
	var req swarm.LearnRequest
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Record a completed task and learn from it",
		Long: `Record a completed task in the task log and fold it into the matching
learned pattern, or start a new pattern.

Examples:
  swarmctl learn --task "Fix the login bug" --agent coder --outcome success
  swarmctl learn --task "Migrate billing" --agent ops --outcome partial --complexity high --duration-ms 5400000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := a.deps.service.Learn(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.exportMetrics(cmd.Context())
			return a.emit(rep)
		},
	}
	cmd.Flags().StringVar(&req.Task, "task", "", "task description")
	cmd.Flags().StringVar(&req.Agent, "agent", "", "agent that handled the task")
	cmd.Flags().StringVar(&req.Outcome, "outcome", "", "success, failure or partial")
	cmd.Flags().StringVar(&req.Complexity, "complexity", string(swarm.ComplexityMedium), "low, medium or high")
	cmd.Flags().Int64Var(&req.DurationMs, "duration-ms", 0, "time taken in milliseconds")
	return cmd
}

func (a *app) councilCmd() *cobra.Command {
	var complexity string
	cmd := &cobra.Command{
		Use:   "council <task>",
		Short: "Assemble a council of agents for a task",
		Long: `Assemble a council from the category's priority agents and the
generalists. Council size follows complexity: low 3, medium 5, high 7.

Examples:
  swarmctl council "Redesign the entire database schema" --complexity high`,
		Args: requireText("a task description"),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.deps.service.Council(cmd.Context(), joinArgs(args), complexity)
			if err != nil {
				return err
			}
			return a.emit(rep)
		},
	}
	cmd.Flags().StringVar(&complexity, "complexity", string(swarm.ComplexityMedium), "low, medium or high")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize learned patterns and recorded tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := a.deps.service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			a.exportMetrics(cmd.Context())
			return a.emit(rep)
		},
	}
}

func (a *app) tasksCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List recently recorded tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := a.deps.service.Tasks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.emit(rep)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", swarm.DefaultTaskListLimit, "maximum number of tasks listed")
	return cmd
}
