package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	Fatal    bool
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Recoverable diagnostics (E001-E099)
	// ============================================

	"E001": {
		Category: CategoryComputed,
		Message:  "write to read-only computed value",
		Detail:   "The computed value was created without a setter. The write was ignored; use NewWritableComputed if the value should accept writes.",
	},
	"E002": {
		Category: CategoryTracking,
		Message:  "tracking state stack underflow",
		Detail:   "ResetTracking was called without a matching PauseTracking or EnableTracking. Tracking was re-enabled.",
	},
	"E003": {
		Category: CategoryTracking,
		Message:  "operation on unregistered target",
		Detail:   "The target id is not present in the registry. It was never registered or has already been released.",
	},
	"E004": {
		Category: CategoryLifecycle,
		Message:  "effect stopped more than once",
		Detail:   "Stop is idempotent; the second call had no effect.",
	},

	// ============================================
	// Fatal conditions (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryScheduler,
		Message:  "maximum recursive updates exceeded",
		Detail:   "A computation keeps scheduling itself within a single flush chain. This is a self-sustaining update loop that will never converge.",
		Fatal:    true,
	},
	"E102": {
		Category: CategoryScheduler,
		Message:  "scheduled job panicked",
		Detail:   "The job was isolated; the flush continued with the next entry.",
	},
}
