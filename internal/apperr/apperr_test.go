package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfFollowsWrapping(t *testing.T) {
	base := New(KindNotAdmin, "adminauth.LoginAdmin", "not an admin")
	wrapped := fmt.Errorf("login: %w", base)

	if KindOf(wrapped) != KindNotAdmin {
		t.Fatalf("expected not_admin, got %s", KindOf(wrapped))
	}
	if !Is(wrapped, KindNotAdmin) || Is(wrapped, KindAuth) {
		t.Fatalf("unexpected Is result")
	}
	if Message(wrapped) != "not an admin" {
		t.Fatalf("unexpected message %q", Message(wrapped))
	}
}

func TestWrapTurnsDeadlineIntoUnavailable(t *testing.T) {
	err := Wrap(KindRead, "metrics.GetMetrics", "", context.DeadlineExceeded)
	if err.Kind != KindUnavailable {
		t.Fatalf("expected unavailable, got %s", err.Kind)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause preserved")
	}
	if HTTPStatus(err.Kind) != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", HTTPStatus(err.Kind))
	}
}

func TestUntaggedErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal, got %s", KindOf(err))
	}
	if Message(err) != "internal error" {
		t.Fatalf("expected generic message, got %q", Message(err))
	}
	if KindOf(nil) != "" {
		t.Fatalf("expected empty kind for nil")
	}
}

func TestHTTPStatusTable(t *testing.T) {
	cases := map[Kind]int{
		KindAuth:            http.StatusUnauthorized,
		KindTwoFactor:       http.StatusUnauthorized,
		KindNotAdmin:        http.StatusForbidden,
		KindAccountDisabled: http.StatusForbidden,
		KindRead:            http.StatusBadGateway,
		KindInvalid:         http.StatusBadRequest,
		KindConflict:        http.StatusConflict,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}
