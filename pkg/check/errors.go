package check

import (
	"errors"
	"fmt"
)

// Kind classifies why a step failed.
type Kind string

const (
	KindNotConfigured      Kind = "not_configured"
	KindUnreachable        Kind = "unreachable"
	KindDriverMissing      Kind = "driver_missing"
	KindAuthFailed         Kind = "auth_failed"
	KindPermissionDenied   Kind = "permission_denied"
	KindOperationFailed    Kind = "operation_failed"
	KindCleanupFailed      Kind = "cleanup_failed"
	KindUnresolvedTemplate Kind = "unresolved_template"
)

var hints = map[Kind]string{
	KindNotConfigured:      "Set the service's connection variables in the app spec",
	KindUnreachable:        "Service may be down, or a firewall or trusted source is blocking access",
	KindDriverMissing:      "Client for this service is not available in this build",
	KindAuthFailed:         "Check username/password credentials",
	KindPermissionDenied:   "Authenticated, but the user lacks rights for this operation",
	KindCleanupFailed:      "A test resource may have been left behind; remove it manually",
	KindUnresolvedTemplate: "A bindable variable was not expanded at deploy time; check the app spec",
}

// Hint returns the fixed hint for k, or "" if it has none.
func (k Kind) Hint() string {
	return hints[k]
}

// Error is an error labelled with its Kind. Service adapters return these so
// validators never inspect vendor error strings.
type Error struct {
	Kind   Kind
	Op     string // operation that failed, e.g. "connect", "head bucket"
	Hint   string // overrides the kind's hint when set
	Status int    // HTTP status for HTTP-based services, 0 otherwise
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap labels err with kind. A nil err returns nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WrapHint labels err with kind and a specific hint.
func WrapHint(kind Kind, hint string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Hint: hint, Err: err}
}

// Classify returns the Kind of err. Unlabelled errors are operation failures.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOperationFailed
}

// HintFor returns the hint for err: the adapter's specific hint if it set
// one, otherwise the kind's fixed hint.
func HintFor(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Hint != "" {
			return e.Hint
		}
		return e.Kind.Hint()
	}
	return ""
}

// StatusOf returns the HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
