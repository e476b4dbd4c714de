// Package telemetry wires OpenTelemetry tracing and metrics export for
// swarmctl.
//
// Telemetry is off by default. When enabled, spans and metrics are sent
// over OTLP (gRPC or HTTP/protobuf) to a collector:
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//	  sample_rate: 1.0
//
// Exporter failures degrade telemetry instead of failing the command.
// Tests use NewTestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	svc, _ := swarm.NewService(p, t, swarm.WithTracer(tt.Tracer("test")))
//	...
//	tt.AssertSpanExists(t, "swarm.learn")
package telemetry
