package api

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// APIError is a non-2xx response from the platform, surfaced to the caller
// unmodified so feature code can decide user-facing messaging.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// IsStatus reports whether err carries an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// newAPIError extracts code/message from whatever error body the backend
// returned. Bodies vary across endpoints, so the fields are probed loosely.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if len(body) == 0 {
		return apiErr
	}
	parsed := gjson.ParseBytes(body)
	for _, key := range []string{"message", "error", "detail"} {
		if v := parsed.Get(key); v.Exists() {
			apiErr.Message = v.String()
			break
		}
	}
	apiErr.Code = parsed.Get("code").String()
	return apiErr
}
