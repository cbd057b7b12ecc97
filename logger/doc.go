// Package logger provides structured logging for flowgraph using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with map-based structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.WithComponent("compiler")
//	log.Info("workflow compiled", logger.Fields(logger.FieldWorkflow, "nightly", logger.FieldTaskCount, 4))
package logger
