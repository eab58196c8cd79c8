// Package apperr classifies service errors so HTTP adapters can map them to
// status codes without inspecting messages.
package apperr

import (
	"errors"
	"net/http"
)

// Kind identifies an error class.
type Kind int

const (
	KindUpstream Kind = iota
	KindAuth
	KindValidation
	KindNotFound
)

// Error is a classified error with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Message != "" {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Auth returns an authentication error.
func Auth() *Error { return &Error{Kind: KindAuth, Message: "Unauthorized"} }

// Validation returns a client input error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotFound returns a missing resource error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Upstream wraps a provider or store failure.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// KindOf returns the kind of err. Unclassified errors are upstream errors.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUpstream
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps err to an HTTP status code and the message safe to show clients.
func Status(err error) (int, string) {
	var classified *Error
	if !errors.As(err, &classified) {
		return http.StatusInternalServerError, "Internal server error"
	}
	switch classified.Kind {
	case KindAuth:
		return http.StatusUnauthorized, "Unauthorized"
	case KindValidation:
		return http.StatusBadRequest, classified.Message
	case KindNotFound:
		if classified.Message == "" {
			return http.StatusNotFound, "Not found"
		}
		return http.StatusNotFound, classified.Message
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
