// Package logging provides structured logging for swarmintel.
//
// Logger wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (trace_id, invocation.id, operation)
//   - Output on stderr by default, leaving stdout to command reports
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithInvocationID(ctx, uuid.NewString())
//	ctx = logging.WithOperation(ctx, "learn")
//	logger.Info(ctx, "pattern merged", zap.String("pattern.id", id))
//
// Tests use NewTestLogger, which records entries in memory:
//
//	tl := logging.NewTestLogger()
//	svc := swarm.NewService(repo, tasks, swarm.WithLogger(tl.Logger))
//	tl.AssertLogged(t, zapcore.WarnLevel, "malformed")
package logging
