// ABOUTME: Error types for backend API responses
// ABOUTME: Extracts the backend's detail message and reduces errors to display strings
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// newError builds an Error from a response body. The backend reports
// {"detail": "..."} or, for validation failures, {"detail": [{"msg": "..."}]}.
func newError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status}

	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apiErr
	}

	if len(envelope.Detail) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			apiErr.Detail = text
			return apiErr
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			apiErr.Detail = strings.Join(msgs, "; ")
			return apiErr
		}
	}

	apiErr.Detail = envelope.Message
	return apiErr
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// IsUnauthorized reports whether the session or API key was rejected.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}

// Message reduces any error to the human-readable string shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Detail != "":
			return apiErr.Detail
		case apiErr.StatusCode == http.StatusUnauthorized:
			return "Your session has expired. Sign in again."
		case apiErr.StatusCode >= 500:
			return "The server had a problem handling the request. Try again."
		default:
			return http.StatusText(apiErr.StatusCode)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Check your connection and try again."
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	if errors.Is(err, ErrNoBusiness) {
		return "No business is selected. Set one with 'textback config set --business-id'."
	}

	return err.Error()
}
