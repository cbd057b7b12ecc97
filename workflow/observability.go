package workflow

import (
	"context"
	"time"

	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/graph"
	"github.com/kbukum/flowgraph/logger"
	"github.com/kbukum/flowgraph/observability"
)

// Outcome labels shared by metrics and logs.
const (
	statusOK       = "ok"
	statusRejected = "rejected"
	statusError    = "error"
)

// outcome classifies err: nil is ok, a coded document problem is a
// rejection, anything else is an error.
func outcome(err error) (status, code string) {
	if err == nil {
		return statusOK, ""
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code == errors.ErrCodeInternal {
		return statusError, ""
	}
	return statusRejected, string(appErr.Code)
}

// WithTracing wraps a Service with OpenTelemetry spans named
// flowgraph.validate and flowgraph.compile.
func WithTracing(svc Service) Service {
	return &tracingService{inner: svc}
}

type tracingService struct {
	inner Service
}

func (s *tracingService) Validate(ctx context.Context, req Request) (graph.Result, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanValidate)
	defer span.End()
	setRequestAttributes(ctx, req)

	res, err := s.inner.Validate(ctx, req)
	switch {
	case err != nil:
		observability.SetSpanError(ctx, err)
	case res.Error != nil:
		observability.SetSpanAttribute(ctx, observability.AttrErrorCode, string(res.Error.Code))
	}
	observability.SetSpanAttribute(ctx, observability.AttrStatus, validateStatus(res, err))
	return res, err
}

func (s *tracingService) Compile(ctx context.Context, req Request) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanCompile)
	defer span.End()
	setRequestAttributes(ctx, req)

	res, err := s.inner.Compile(ctx, req)
	status, code := outcome(err)
	observability.SetSpanAttribute(ctx, observability.AttrStatus, status)
	if err != nil {
		if code != "" {
			observability.SetSpanAttribute(ctx, observability.AttrErrorCode, code)
		}
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrSystem, res.Workflow.SystemName)
	observability.SetSpanAttribute(ctx, observability.AttrTaskCount, CountTasks(res.Workflow.Tasks))
	observability.SetSpanAttribute(ctx, observability.AttrAnomalyCount, len(res.Anomalies))
	return res, nil
}

func setRequestAttributes(ctx context.Context, req Request) {
	if req.Document == nil {
		return
	}
	observability.SetSpanAttribute(ctx, observability.AttrNodeCount, len(req.Document.Nodes))
	if name := req.Metadata.WorkflowName; name != "" {
		observability.SetSpanAttribute(ctx, observability.AttrWorkflow, name)
	} else if req.Document.WorkflowName != "" {
		observability.SetSpanAttribute(ctx, observability.AttrWorkflow, req.Document.WorkflowName)
	}
}

func validateStatus(res graph.Result, err error) string {
	switch {
	case err != nil:
		return statusError
	case !res.Valid:
		return statusRejected
	}
	return statusOK
}

// WithMetrics wraps a Service with metric recording: operation counts and
// durations, rejections by code and anomalies by code.
func WithMetrics(svc Service, metrics *observability.Metrics) Service {
	return &metricsService{inner: svc, metrics: metrics}
}

type metricsService struct {
	inner   Service
	metrics *observability.Metrics
}

func (s *metricsService) Validate(ctx context.Context, req Request) (graph.Result, error) {
	start := time.Now()
	res, err := s.inner.Validate(ctx, req)

	status := validateStatus(res, err)
	if res.Error != nil {
		s.metrics.RecordRejected(ctx, "validate", string(res.Error.Code))
	}
	s.metrics.RecordCompile(ctx, "validate", req.Metadata.SystemName, status, 0, time.Since(start))
	return res, err
}

func (s *metricsService) Compile(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.inner.Compile(ctx, req)
	duration := time.Since(start)

	status, code := outcome(err)
	if code != "" {
		s.metrics.RecordRejected(ctx, "compile", code)
	}
	system, tasks := req.Metadata.SystemName, 0
	if res != nil {
		system, tasks = res.Workflow.SystemName, len(res.Workflow.Tasks)
		for _, a := range res.Anomalies {
			s.metrics.RecordAnomaly(ctx, string(a.Code))
		}
	}
	s.metrics.RecordCompile(ctx, "compile", system, status, tasks, duration)
	return res, err
}

// WithLogging wraps a Service with logging: rejections and anomalies at
// warn, unexpected failures at error, completions at debug.
func WithLogging(svc Service, log *logger.Logger) Service {
	return &loggingService{inner: svc, log: log}
}

type loggingService struct {
	inner Service
	log   *logger.Logger
}

func (s *loggingService) Validate(ctx context.Context, req Request) (graph.Result, error) {
	start := time.Now()
	res, err := s.inner.Validate(ctx, req)
	log := s.log.WithContext(ctx)

	fields := logger.MergeWithDuration(logger.Fields(logger.FieldOperation, "validate"), time.Since(start))
	switch {
	case err != nil:
		log.Error("validation failed", logger.MergeWithError(fields, err))
	case res.Error != nil:
		fields[logger.FieldCode] = string(res.Error.Code)
		if res.Error.NodeID != "" {
			fields[logger.FieldNodeID] = res.Error.NodeID
		}
		log.Warn("document rejected", fields)
	default:
		log.Debug("document valid", fields)
	}
	return res, err
}

func (s *loggingService) Compile(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.inner.Compile(ctx, req)
	log := s.log.WithContext(ctx)

	fields := logger.MergeWithDuration(logger.Fields(logger.FieldOperation, "compile"), time.Since(start))
	if err != nil {
		status, code := outcome(err)
		if status == statusError {
			log.Error("compile failed", logger.MergeWithError(fields, err))
			return nil, err
		}
		fields[logger.FieldCode] = code
		if id := errors.NodeIDOf(err); id != "" {
			fields[logger.FieldNodeID] = id
		}
		log.Warn("compile rejected", logger.MergeWithError(fields, err))
		return nil, err
	}

	fields[logger.FieldWorkflow] = res.Workflow.Name
	fields[logger.FieldSystem] = res.Workflow.SystemName
	fields[logger.FieldTaskCount] = CountTasks(res.Workflow.Tasks)
	for _, a := range res.Anomalies {
		log.Warn(a.Message, logger.Fields(
			logger.FieldWorkflow, res.Workflow.Name,
			logger.FieldAnomaly, string(a.Code),
			logger.FieldNodeID, a.NodeID,
		))
	}
	log.Debug("workflow compiled", fields)
	return res, nil
}
