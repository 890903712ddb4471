package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrOutOfStock         = errors.New("product out of stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNetwork            = errors.New("backend unreachable")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product not available for purchase")
	ErrNotInCart          = errors.New("product not in cart")
	ErrStaleResponse      = errors.New("stale response discarded")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// BackendError is a non-2xx answer from the marketplace backend. Message is the
// backend's own "message" field and is meant to be shown to the user verbatim.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.Status)
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// Unwrap maps the status code onto the error taxonomy so callers can use errors.Is.
func (e *BackendError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return ErrValidation
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrProductNotFound
	case e.Status == http.StatusConflict:
		return ErrInvalidTransition
	case e.Status >= http.StatusInternalServerError:
		return ErrNetwork
	}
	return nil
}

// UserMessage returns the text to surface for err: the backend message when
// there is one, otherwise the error itself.
func UserMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if errors.Is(err, ErrNetwork) {
		return "the marketplace is unreachable, please try again"
	}
	return err.Error()
}

// Retryable reports whether an operation that failed with err may be retried
// automatically. Conflicts, validation and permission failures never are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrValidation):
		return false
	}
	return errors.Is(err, ErrNetwork)
}
