// Command swarmctl learns which agents succeed at which kinds of tasks
// and recommends agents and councils for new tasks.
//
// Every invocation prints exactly one report to stdout, JSON by default.
// Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/swarmintel/internal/config"
	"github.com/fyrsmithlabs/swarmintel/internal/logging"
	"github.com/fyrsmithlabs/swarmintel/internal/promexport"
	"github.com/fyrsmithlabs/swarmintel/internal/storage/jsonfile"
	"github.com/fyrsmithlabs/swarmintel/internal/storage/sqlite"
	"github.com/fyrsmithlabs/swarmintel/internal/swarm"
	"github.com/fyrsmithlabs/swarmintel/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

// Output formats.
const (
	formatJSON = "json"
	formatText = "text"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code. Failures
// are reported on stdout as {"status":"error","message":...}.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(context.WithoutCancel(ctx)); closeErr != nil {
		fmt.Fprintf(stderr, "swarmctl: shutdown: %v\n", closeErr)
	}
	if err != nil {
		a.emitError(err)
		return 1
	}
	return 0
}

// errorReport is printed for every failed command.
type errorReport struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// app carries flags and the dependencies built for one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	format     string
	logLevel   string

	deps *dependencies
}

// dependencies holds everything opened for a command.
type dependencies struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	service   *swarm.Service
	closers   []func() error
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "swarmctl",
		Short: "Learn task patterns and recommend agents",
		Long: `swarmctl records which agents handled which tasks and how they went,
then uses that history to recommend agents and councils for new tasks.

Examples:
  # Record an outcome
  swarmctl learn --task "Fix the login bug" --agent coder --outcome success

  # Recommend agents
  swarmctl recommend "Fix the signup bug"

  # Assemble a council for a large refactor
  swarmctl council "Redesign the database schema" --complexity high`,
		Version:           fmt.Sprintf("%s (%s)", version, gitCommit),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/swarmintel/config.yaml)")
	root.PersistentFlags().StringVar(&a.format, "format", formatJSON, "output format: json or text")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")

	root.AddCommand(
		a.recommendCmd(),
		a.queryCmd(),
		a.learnCmd(),
		a.councilCmd(),
		a.statsCmd(),
		a.tasksCmd(),
	)
	return root
}

// setup loads configuration and opens the dependencies for a subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.format != formatJSON && a.format != formatText {
		return fmt.Errorf("--format must be %q or %q, got %q", formatJSON, formatText, a.format)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	ctx := logging.WithInvocationID(cmd.Context(), uuid.NewString())
	deps, err := initDependencies(ctx, cfg, a.stderr)
	if deps != nil {
		a.deps = deps
	}
	if err != nil {
		return err
	}

	ctx = logging.WithLogger(ctx, deps.logger)
	cmd.SetContext(ctx)
	deps.logger.Debug(ctx, "command started",
		zap.String("command", cmd.Name()),
		zap.String("backend", cfg.Storage.Backend))
	return nil
}

// initLogger maps the logging section onto a stderr logger.
func initLogger(cfg config.LoggingConfig, w io.Writer) (*logging.Logger, error) {
	lc := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	lc.Level = level
	lc.Format = cfg.Format
	return logging.NewLoggerTo(lc, w)
}

// initTelemetry maps the telemetry section onto OTLP providers.
func initTelemetry(ctx context.Context, cfg config.TelemetryConfig, logger *logging.Logger) (*telemetry.Telemetry, error) {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Enabled
	tc.Endpoint = cfg.Endpoint
	tc.Protocol = cfg.Protocol
	tc.Insecure = cfg.Insecure
	tc.ServiceName = cfg.ServiceName
	tc.ServiceVersion = version
	tc.SampleRate = cfg.SampleRate
	if d := cfg.ShutdownTimeout.Duration(); d > 0 {
		tc.ShutdownTimeout = d
	}
	return telemetry.New(ctx, tc, logger.Named("telemetry"))
}

// initDependencies builds the logger, telemetry, storage and service.
// The returned dependencies are non-nil whenever something was opened,
// so the caller can close them even on error.
func initDependencies(ctx context.Context, cfg *config.Config, stderr io.Writer) (*dependencies, error) {
	logger, err := initLogger(cfg.Logging, stderr)
	if err != nil {
		return nil, err
	}
	d := &dependencies{cfg: cfg, logger: logger}

	d.telemetry, err = initTelemetry(ctx, cfg.Telemetry, logger)
	if err != nil {
		return d, err
	}

	patterns, tasks, err := d.openStorage(ctx)
	if err != nil {
		return d, err
	}

	roster := swarm.DefaultRoster()
	if cfg.Roster.Path != "" {
		if roster, err = swarm.LoadRoster(cfg.Roster.Path); err != nil {
			return d, err
		}
	}

	merge, err := swarm.MergePolicyByName(cfg.Learning.MergePolicy)
	if err != nil {
		return d, err
	}

	d.service, err = swarm.NewService(patterns, tasks,
		swarm.WithRoster(roster),
		swarm.WithLogger(logger.Named("swarm")),
		swarm.WithTracer(d.telemetry.Tracer("github.com/fyrsmithlabs/swarmintel/internal/swarm")),
		swarm.WithMetrics(swarm.NewMetricsWithMeter(d.telemetry.Meter("github.com/fyrsmithlabs/swarmintel/internal/swarm"), logger)),
		swarm.WithRecommendLimit(cfg.Learning.RecommendLimit),
		swarm.WithRecentLimit(cfg.Learning.RecentLimit),
		swarm.WithStoreOptions(swarm.WithMergePolicy(merge)),
	)
	return d, err
}

// openStorage opens the configured backend.
func (d *dependencies) openStorage(ctx context.Context) (swarm.PatternRepository, swarm.TaskRepository, error) {
	switch d.cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, d.cfg.SQLiteFile(),
			sqlite.WithBusyTimeout(d.cfg.Storage.BusyTimeout.Duration()),
			sqlite.WithLogger(d.logger.Named("sqlite")))
		if err != nil {
			return nil, nil, err
		}
		d.closers = append(d.closers, s.Close)
		return s, s, nil
	case config.BackendMemory:
		return swarm.NewInMemoryPatternRepository(), swarm.NewInMemoryTaskRepository(), nil
	default:
		s, err := jsonfile.New(d.cfg.Storage.DataDir, d.logger.Named("jsonfile"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

// close releases storage, flushes telemetry and syncs the logger.
func (a *app) close(ctx context.Context) error {
	d := a.deps
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	_ = d.logger.Sync()
	return errors.Join(errs...)
}

// exportMetrics writes the Prometheus textfile snapshot when configured.
// Failures are logged; the command still succeeds.
func (a *app) exportMetrics(ctx context.Context) {
	path := a.deps.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	rep, err := a.deps.service.Stats(ctx)
	if err == nil {
		err = promexport.WriteTextfile(path, rep)
	}
	if err != nil {
		a.deps.logger.Warn(ctx, "metrics textfile not written",
			zap.String("path", path),
			zap.Error(err))
	}
}

// emit prints a report in the selected format.
func (a *app) emit(report any) error {
	if a.format == formatText {
		_, err := io.WriteString(a.stdout, renderText(report))
		return err
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (a *app) emitError(err error) {
	if a.format == formatText {
		fmt.Fprintln(a.stdout, renderError(err))
		return
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(errorReport{Status: swarm.StatusError, Message: err.Error()})
}
