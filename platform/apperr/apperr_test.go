package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestPersistenceKeepsTypedErrors(t *testing.T) {
	notFound := NotFound("client not found")
	err := Persistence("failed to load client", fmt.Errorf("repo: %w", notFound))

	if GetKind(err) != KindNotFound {
		t.Fatalf("expected not found kind to survive wrapping, got %v", GetKind(err))
	}
}

func TestPersistenceWrapsDriverErrors(t *testing.T) {
	driverErr := errors.New("connection reset")
	err := Persistence("failed to save invoice", driverErr)

	if !Is(err, KindPersistence) {
		t.Fatalf("expected persistence kind, got %v", GetKind(err))
	}
	if !errors.Is(err, driverErr) {
		t.Fatal("expected driver error to remain reachable through Unwrap")
	}
	if Persistence("unused", nil) != nil {
		t.Fatal("expected nil error to stay nil")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:          http.StatusNotFound,
		KindValidation:        http.StatusBadRequest,
		KindMissingIdentifier: http.StatusUnprocessableEntity,
		KindPersistence:       http.StatusInternalServerError,
		KindUnavailable:       http.StatusServiceUnavailable,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Fatalf("kind %v: expected %d, got %d", kind, want, got)
		}
	}
}
