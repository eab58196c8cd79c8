package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"auth", Auth(), http.StatusUnauthorized, "Unauthorized"},
		{"validation", Validation("firstName is required"), http.StatusBadRequest, "firstName is required"},
		{"not found", NotFound("sermon not found"), http.StatusNotFound, "sermon not found"},
		{"upstream hides detail", Upstream("generate sermon", errors.New("api key leaked")), http.StatusInternalServerError, "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
		{"wrapped", fmt.Errorf("handler: %w", Validation("bad")), http.StatusBadRequest, "bad"},
	}
	for _, tc := range cases {
		status, message := Status(tc.err)
		if status != tc.status || message != tc.message {
			t.Fatalf("%s: got %d %q, want %d %q", tc.name, status, message, tc.status, tc.message)
		}
	}
}

func TestUpstreamUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	err := Upstream("generate", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected upstream error to unwrap to cause")
	}
	if !Is(err, KindUpstream) || Is(err, KindAuth) {
		t.Fatalf("unexpected kind for %v", err)
	}
}
