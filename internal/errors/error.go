package errors

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Category represents the subsystem an error belongs to.
type Category string

const (
	CategoryTracking  Category = "tracking"
	CategoryComputed  Category = "computed"
	CategoryScheduler Category = "scheduler"
	CategoryLifecycle Category = "lifecycle"
)

// Error is a structured engine error with a stable code.
type Error struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the subsystem the error belongs to.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, possibly specialized per occurrence.
	Detail string

	// Source tags where the error was raised (e.g., "scheduler").
	Source string

	// Fatal marks conditions that cannot be recovered from locally.
	Fatal bool

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithSource tags the error with the raising subsystem.
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// WithDetailf replaces the template detail with a formatted one.
func (e *Error) WithDetailf(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap attaches an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from the registered template for code.
// Unknown codes yield a generic runtime error carrying the code.
func New(code string) *Error {
	if tmpl, ok := registry[code]; ok {
		return &Error{
			Code:     code,
			Category: tmpl.Category,
			Message:  tmpl.Message,
			Detail:   tmpl.Detail,
			Fatal:    tmpl.Fatal,
		}
	}
	return &Error{
		Code:     code,
		Category: CategoryLifecycle,
		Message:  "unknown error",
	}
}

// WarnHandler receives recoverable diagnostics.
type WarnHandler func(*Error)

var warnHandler atomic.Value // WarnHandler

func init() {
	warnHandler.Store(WarnHandler(func(e *Error) {
		fmt.Fprintf(os.Stderr, "[strand] %s\n", e.Error())
	}))
}

// SetWarnHandler replaces the process-wide warn handler.
// Passing nil restores the default stderr handler.
func SetWarnHandler(fn WarnHandler) {
	if fn == nil {
		fn = func(e *Error) {
			fmt.Fprintf(os.Stderr, "[strand] %s\n", e.Error())
		}
	}
	warnHandler.Store(fn)
}

// Warn routes a recoverable diagnostic to the warn handler.
// The operation that raised it is expected to continue as a no-op.
func Warn(e *Error) {
	warnHandler.Load().(WarnHandler)(e)
}

// Warnf is a convenience for Warn(New(code).WithDetailf(...)).
func Warnf(code string, format string, args ...any) {
	Warn(New(code).WithDetailf(format, args...))
}
