// Package errors defines the structured diagnostics used across the
// strand engine.
//
// Every reportable condition has a stable code (E0xx for recoverable
// misuse diagnostics, E1xx for fatal conditions) registered in a central
// template registry. Recoverable diagnostics are routed through a
// process-wide warn handler and never interrupt execution; fatal
// conditions are surfaced to callers as hard failures.
package errors
