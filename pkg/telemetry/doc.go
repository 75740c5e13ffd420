// Package telemetry provides optional observability for the strand
// scheduler: prometheus instruments for queue and flush activity, and an
// OpenTelemetry tracer for flush passes. Both are opt-in; a scheduler
// without them carries no observability overhead.
package telemetry
