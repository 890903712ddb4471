package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestBackendError_Unwrap(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          ErrValidation,
		http.StatusUnprocessableEntity: ErrValidation,
		http.StatusUnauthorized:        ErrUnauthorized,
		http.StatusForbidden:           ErrUnauthorized,
		http.StatusNotFound:            ErrProductNotFound,
		http.StatusConflict:            ErrInvalidTransition,
		http.StatusBadGateway:          ErrNetwork,
	}
	for status, want := range cases {
		err := fmt.Errorf("approve: %w", &BackendError{Status: status, Message: "nope"})
		if !errors.Is(err, want) {
			t.Errorf("status %d: expected %v in chain", status, want)
		}
	}
}

func TestUserMessage_PrefersBackendMessage(t *testing.T) {
	err := fmt.Errorf("approve: %w", &BackendError{Status: http.StatusConflict, Message: "Product already rejected"})
	if got := UserMessage(err); got != "Product already rejected" {
		t.Fatalf("expected verbatim backend message, got %q", got)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("approve: %w", ErrNetwork)) {
		t.Error("network failures are retryable")
	}
	if Retryable(&BackendError{Status: http.StatusConflict}) {
		t.Error("conflicts must not be retried automatically")
	}
	if Retryable(fmt.Errorf("%w: %w", ErrNetwork, ErrUnauthorized)) {
		t.Error("permission failures must never be retried")
	}
	if Retryable(nil) {
		t.Error("nil is not retryable")
	}
}
