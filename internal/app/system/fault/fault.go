// Package fault defines the error taxonomy shared by all mutating and
// querying operations.
//
// Every operation that can fail returns an error that classifies the
// failure as one of the kinds below. Callers branch on the kind with
// KindOf (or errors.As) rather than string matching, and the HTTP layer
// maps kinds to status codes with HTTPStatus.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// Unknown is the zero value; errors that are not *Fault report it.
	Unknown Kind = iota
	// NotFound: an unknown id was referenced.
	NotFound
	// Conflict: duplicate sibling name, already-shared, already-unshared.
	Conflict
	// InvalidArgument: reserved characters, malformed path, deleting a root.
	InvalidArgument
	// PermissionDenied: a non-owner attempted an owner-only mutation.
	PermissionDenied
	// IOFailure: content-store or persistence failure; retryable by the caller.
	IOFailure
	// Inconsistent: the store was found in a state that violates an
	// invariant (one-sided sharing edge, broken parent chain, interrupted
	// size walk). Logged and surfaced, never silently repaired.
	Inconsistent
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidArgument:
		return "invalid_argument"
	case PermissionDenied:
		return "permission_denied"
	case IOFailure:
		return "io_failure"
	case Inconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// Fault is a classified error with a human-readable detail string and an
// optional wrapped cause.
type Fault struct {
	Kind Kind
	Msg  string
	Err  error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return f.Msg + ": " + f.Err.Error()
	}
	return f.Msg
}

func (f *Fault) Unwrap() error { return f.Err }

// Is makes errors.Is(err, &Fault{Kind: k}) match on kind alone, so tests
// and callers can compare against sentinel kinds.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Msg == "" || t.Msg == f.Msg)
}

// New returns a fault of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a fault of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the kind from an error chain. Errors that do not carry a
// *Fault report Unknown.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unknown
}

// HTTPStatus maps a kind to the HTTP status code used by the API surface.
func HTTPStatus(k Kind) int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case InvalidArgument:
		return http.StatusBadRequest
	case PermissionDenied:
		return http.StatusForbidden
	case IOFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
