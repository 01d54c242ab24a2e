// Package observability provides an OpenTelemetry-based metrics extension
// for the task engine. The MetricsExtension implements lifecycle hooks to
// record system-wide counters for task starts, completions, failures, and
// applied actions.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
