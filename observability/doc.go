// Package observability provides OpenTelemetry tracing and metrics for the
// compiler service and its HTTP surface.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("flowgraph"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanCompile)
//	defer span.End()
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter(observability.TracerName))
//	metrics.RecordCompile(ctx, "compile", "conductor", "ok", 4, duration)
//
// Health Checks:
//
//	health := observability.CheckAll(ctx, "flowgraph", version.Short(), compilerService)
package observability
