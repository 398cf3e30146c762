package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/coreybb/eventhub/webutil"
)

// APIError is a non-2xx response decoded from the API's error body.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []webutil.FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsSessionExpired reports whether err means the caller must log in again.
func IsSessionExpired(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
