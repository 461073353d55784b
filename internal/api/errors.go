package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is the parsed JSON error body of a non-2xx response.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// IsUnauthorized reports whether err is an HTTP 401. Unauthorized responses
// are fatal for the session: the caller tears down auth state and reloads.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsDuplicate reports whether err is the server rejecting a second list item
// for the same (user, book) pair.
func IsDuplicate(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Message), "already")
}

// Retryable reports whether a read may be retried: transport failures and
// server errors qualify, 404 and 401 do not.
func Retryable(err error) bool {
	return !IsNotFound(err) && !IsUnauthorized(err)
}

func statusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
