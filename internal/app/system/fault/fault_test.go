package fault

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(Conflict, "folder with this name already exists: %s", "Photos")
	if got := KindOf(err); got != Conflict {
		t.Errorf("KindOf() = %v, want Conflict", got)
	}

	wrapped := fmt.Errorf("creating folder: %w", err)
	if got := KindOf(wrapped); got != Conflict {
		t.Errorf("KindOf() through wrap = %v, want Conflict", got)
	}

	if got := KindOf(errors.New("plain")); got != Unknown {
		t.Errorf("KindOf(plain error) = %v, want Unknown", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IOFailure, cause, "staging chunk")

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}

	var f *Fault
	if !errors.As(err, &f) {
		t.Fatal("errors.As should find *Fault")
	}
	if f.Kind != IOFailure {
		t.Errorf("Kind = %v, want IOFailure", f.Kind)
	}
}

func TestIsMatchesOnKind(t *testing.T) {
	err := New(NotFound, "folder not in database: abc")
	if !errors.Is(err, &Fault{Kind: NotFound}) {
		t.Error("errors.Is should match on kind alone")
	}
	if errors.Is(err, &Fault{Kind: Conflict}) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		NotFound:         http.StatusNotFound,
		Conflict:         http.StatusConflict,
		InvalidArgument:  http.StatusBadRequest,
		PermissionDenied: http.StatusForbidden,
		IOFailure:        http.StatusBadGateway,
		Inconsistent:     http.StatusInternalServerError,
		Unknown:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", kind, got, want)
		}
	}
}
