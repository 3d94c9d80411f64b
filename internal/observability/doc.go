// Package observability builds the zap logger and the OpenTelemetry tracer
// provider used by the AI Product Council.
//
// This package implements:
//   - Structured logging with a JSON or console encoder (zap-based)
//   - Distributed tracing with a stdout exporter (OpenTelemetry)
//
// Request IDs come from chi's RequestID middleware and are attached to log
// lines by the request logger.
package observability
