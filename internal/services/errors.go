package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/soundcheck/internal/shared"
)

// StatusError is a non-success response from Spotify or from the proxy.
type StatusError struct {
	StatusCode int
	Message    string
}

// errorBody is the Spotify (and proxy) error envelope: {"error": {"status": 401, "message": "..."}}.
//
// The accounts service answers with {"error": "invalid_grant", "error_description": "..."} instead.
type errorBody struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

type errorObject struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// NewStatusError builds a [StatusError] from a response status and body, extracting the upstream message when present.
func NewStatusError(status int, body []byte) *StatusError {
	return &StatusError{StatusCode: status, Message: errorMessage(body)}
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Error) == 0 {
		return "Unknown error"
	}

	var obj errorObject
	if err := json.Unmarshal(eb.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}

	if eb.ErrorDescription != "" {
		return eb.ErrorDescription
	}

	var code string
	if err := json.Unmarshal(eb.Error, &code); err == nil && code != "" {
		return code
	}
	return "Unknown error"
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Is reports whether target is [shared.ErrAPIRequest], or [shared.ErrUnauthorized] for a 401.
func (e *StatusError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
