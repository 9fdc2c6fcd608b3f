// Package errs provides the typed error kinds used across the runtime.
package errs

import "fmt"

// Kind classifies a runtime error for programmatic handling.
type Kind string

const (
	// NotFound indicates an unknown node, function, or channel key.
	NotFound Kind = "NOT_FOUND"
	// Validation indicates invalid IR: a dangling edge, a duplicate node
	// key, or a missing required config field.
	Validation Kind = "VALIDATION"
	// InvalidConfig indicates a node's config lacks a required field or
	// has a wrong type.
	InvalidConfig Kind = "INVALID_CONFIG"
	// RuntimeFailure indicates a next() call reported an error during a
	// tick.
	RuntimeFailure Kind = "RUNTIME_FAILURE"
)

// Error is the runtime's structured error type. It identifies the
// offending node by key and type tag where applicable, per spec §7's
// "user-visible failure" requirement.
type Error struct {
	Kind    Kind
	Message string
	NodeKey string
	TypeTag string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.NodeKey != "" && e.TypeTag != "":
		return fmt.Sprintf("%s: %s (node '%s' of type '%s')", e.Kind, e.Message, e.NodeKey, e.TypeTag)
	case e.NodeKey != "":
		return fmt.Sprintf("%s: %s (node '%s')", e.Kind, e.Message, e.NodeKey)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is against a bare Kind sentinel comparison by
// matching on Kind rather than identity, since Kind values are not
// themselves errors.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.NodeKey == "" && other.Message == ""
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithNode annotates the error with the offending node's key and type tag,
// matching the registry's decoration policy in §4.4.
func (e *Error) WithNode(key, typeTag string) *Error {
	cp := *e
	cp.NodeKey = key
	cp.TypeTag = typeTag
	return &cp
}
