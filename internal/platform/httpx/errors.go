package httpx

import (
	"errors"
	"net/http"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/viewmodel"
)

// Sentinel errors for request handling.
var (
	ErrBadInput     = errors.New("malformed request")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusOf returns the HTTP status RespondError uses for err.
func StatusOf(err error) int {
	var (
		verr *viewmodel.ValidationError
		lerr *viewmodel.LoadError
		serr *viewmodel.SubmitError
		perr *viewmodel.PreconditionError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &perr):
		return http.StatusConflict
	case errors.Is(err, apiclient.ErrUnauthorized), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &lerr):
		if lerr.Kind == viewmodel.LoadKindNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.As(err, &serr):
		switch {
		case errors.Is(err, apiclient.ErrBadRequest):
			return http.StatusUnprocessableEntity
		case errors.Is(err, apiclient.ErrConflict):
			return http.StatusConflict
		case errors.Is(err, apiclient.ErrNotFound):
			return http.StatusNotFound
		case errors.Is(err, apiclient.ErrForbidden):
			return http.StatusForbidden
		}
		return http.StatusBadGateway
	case errors.Is(err, ErrBadInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps view-model and backend errors to RFC7807 responses.
func RespondError(w http.ResponseWriter, err error) {
	var (
		verr *viewmodel.ValidationError
		lerr *viewmodel.LoadError
		serr *viewmodel.SubmitError
		perr *viewmodel.PreconditionError
	)
	status := StatusOf(err)
	switch {
	case errors.As(err, &verr):
		ProblemWithFields(w, status, "Validation Failed", viewmodel.Message(err), verr.Fields)
	case errors.As(err, &perr):
		Problem(w, status, "Precondition Failed", perr.Reason)
	case status == http.StatusUnauthorized:
		Problem(w, status, "Unauthorized", viewmodel.ServerMessage(err, "Authentication required"))
	case errors.As(err, &lerr):
		if status == http.StatusNotFound {
			Problem(w, status, "Not Found", lerr.Message)
			return
		}
		Problem(w, status, "Load Failed", lerr.Message)
	case errors.As(err, &serr):
		ProblemWithFields(w, status, "Submit Failed", serr.Message, serr.Fields)
	case status == http.StatusBadRequest:
		Problem(w, status, "Bad Request", err.Error())
	default:
		Problem(w, status, "Internal Error", "")
	}
}

// RespondState writes a view-model state alongside the status err maps
// to, so a failed fetch still carries the query and the error message.
// Unauthorized errors are answered with a problem instead.
func RespondState(w http.ResponseWriter, err error, state any) {
	status := StatusOf(err)
	if status == http.StatusUnauthorized {
		RespondError(w, err)
		return
	}
	JSON(w, status, state)
}
