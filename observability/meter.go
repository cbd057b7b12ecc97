package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/flowgraph/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the compiler service and HTTP layer.
type Metrics struct {
	requestTotal     metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestActive    metric.Int64UpDownCounter
	compileTotal     metric.Int64Counter
	compileDuration  metric.Float64Histogram
	compileTasks     metric.Int64Histogram
	validationFailed metric.Int64Counter
	anomalyTotal     metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("http.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.request.total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("http.request.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.request.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("http.request.active",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.request.active gauge: %w", err)
	}

	compileTotal, err := meter.Int64Counter("flowgraph.compile.total",
		metric.WithDescription("Compilations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flowgraph.compile.total counter: %w", err)
	}

	compileDuration, err := meter.Float64Histogram("flowgraph.compile.duration",
		metric.WithDescription("Duration of validate and compile operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flowgraph.compile.duration histogram: %w", err)
	}

	compileTasks, err := meter.Int64Histogram("flowgraph.compile.tasks",
		metric.WithDescription("Top-level tasks per compiled workflow"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flowgraph.compile.tasks histogram: %w", err)
	}

	validationFailed, err := meter.Int64Counter("flowgraph.validation.failed",
		metric.WithDescription("Rejected graph documents by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flowgraph.validation.failed counter: %w", err)
	}

	anomalyTotal, err := meter.Int64Counter("flowgraph.anomaly.total",
		metric.WithDescription("Soft compile anomalies by code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flowgraph.anomaly.total counter: %w", err)
	}

	return &Metrics{
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestActive:    requestActive,
		compileTotal:     compileTotal,
		compileDuration:  compileDuration,
		compileTasks:     compileTasks,
		validationFailed: validationFailed,
		anomalyTotal:     anomalyTotal,
	}, nil
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, route, method, status string, duration time.Duration) {
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
	))
}

// RecordCompile records one validate or compile operation.
func (m *Metrics) RecordCompile(ctx context.Context, operation, system, status string, tasks int, duration time.Duration) {
	m.compileTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("system", system),
		attribute.String("status", status),
	))
	m.compileDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
	if status == "ok" && operation == "compile" {
		m.compileTasks.Record(ctx, int64(tasks))
	}
}

// RecordRejected records a document rejected with the given error code.
func (m *Metrics) RecordRejected(ctx context.Context, operation, code string) {
	m.validationFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("code", code),
	))
}

// RecordAnomaly records a soft compile anomaly.
func (m *Metrics) RecordAnomaly(ctx context.Context, code string) {
	m.anomalyTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
	))
}
