// Package viewmodel holds the building blocks shared by the console
// view-models: the error taxonomy surfaced to pages, field-keyed
// validation, request sequencing and URL query encoding.
package viewmodel

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/osgiliath/console/internal/apiclient"
)

// FieldErrors maps a form field key to a user-facing message.
type FieldErrors map[string]string

// Valid reports whether no field failed.
func (f FieldErrors) Valid() bool {
	return len(f) == 0
}

// Keys returns the failing field keys in a stable order.
func (f FieldErrors) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge copies other into f, keeping existing messages.
func (f FieldErrors) Merge(other FieldErrors) FieldErrors {
	if f == nil {
		f = FieldErrors{}
	}
	for k, v := range other {
		if _, ok := f[k]; !ok {
			f[k] = v
		}
	}
	return f
}

// ValidationError is returned when a candidate fails local validation.
// No network call is made and no state is touched.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields.Keys(), ", ")
}

// LoadKind distinguishes a missing resource from any other fetch failure.
type LoadKind string

const (
	LoadKindNotFound LoadKind = "not_found"
	LoadKindFailed   LoadKind = "load"
)

// LoadError reports a failed fetch. Pages show an empty or error state.
type LoadError struct {
	Kind    LoadKind
	Op      string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SubmitError reports a mutation the backend rejected or never received.
type SubmitError struct {
	Op      string
	Message string
	Fields  FieldErrors
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// PreconditionError reports an operation refused before any network call
// because a locally known precondition does not hold.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NewLoadError wraps a fetch failure. A backend 404 yields LoadKindNotFound.
func NewLoadError(op, fallback string, err error) *LoadError {
	kind := LoadKindFailed
	if errors.Is(err, apiclient.ErrNotFound) {
		kind = LoadKindNotFound
	}
	return &LoadError{Kind: kind, Op: op, Message: ServerMessage(err, fallback), Err: err}
}

// NewSubmitError wraps a mutation failure, preferring the server message.
func NewSubmitError(op, fallback string, err error) *SubmitError {
	se := &SubmitError{Op: op, Message: ServerMessage(err, fallback), Err: err}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		se.Fields = FieldErrors{}
		for k, v := range apiErr.Fields {
			se.Fields[k] = v
		}
	}
	return se
}

// ServerMessage extracts the human readable message of a backend error
// payload, or returns fallback.
func ServerMessage(err error, fallback string) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

// Message returns the text a page should show for err.
func Message(err error) string {
	var (
		verr *ValidationError
		lerr *LoadError
		serr *SubmitError
		perr *PreconditionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return "Please correct the highlighted fields"
	case errors.As(err, &lerr):
		return lerr.Message
	case errors.As(err, &serr):
		return serr.Message
	case errors.As(err, &perr):
		return perr.Reason
	default:
		return "Something went wrong"
	}
}
