package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched against *Error with errors.Is.
var (
	ErrNotFound     = errors.New("backend: not found")
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrForbidden    = errors.New("backend: forbidden")
	ErrConflict     = errors.New("backend: conflict")
	ErrBadRequest   = errors.New("backend: bad request")
	ErrUnavailable  = errors.New("backend: unavailable")
)

// Error is a non-2xx answer from the backend. Message and Fields come from
// the structured error payload when the backend sent one.
type Error struct {
	Status  int
	Code    string
	Message string
	Path    string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, http.StatusText(e.Status))
}

// Is maps the status code onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

type errorPayload struct {
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	ValidationErrors map[string]string `json:"validationErrors"`
}

// decodeError builds an *Error from a failed response body. Bodies that are
// not the backend's error payload still yield an *Error with the status.
func decodeError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}
	var payload errorPayload
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return apiErr
	}
	apiErr.Code = payload.Error
	apiErr.Message = payload.Message
	apiErr.Path = payload.Path
	if len(payload.ValidationErrors) > 0 {
		apiErr.Fields = payload.ValidationErrors
	}
	return apiErr
}
