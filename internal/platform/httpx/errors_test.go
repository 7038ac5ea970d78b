package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/viewmodel"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	notFound := &apiclient.Error{Status: http.StatusNotFound, Message: "Invoice not found"}
	rejected := &apiclient.Error{Status: http.StatusBadRequest, Message: "Bad dates", Fields: map[string]string{"dueDate": "before issue date"}}

	cases := []struct {
		name   string
		err    error
		status int
		detail string
		fields map[string]string
	}{
		{
			name:   "validation",
			err:    &viewmodel.ValidationError{Fields: viewmodel.FieldErrors{"customerId": "Customer is required"}},
			status: http.StatusUnprocessableEntity,
			detail: "Please correct the highlighted fields",
			fields: map[string]string{"customerId": "Customer is required"},
		},
		{
			name:   "precondition",
			err:    &viewmodel.PreconditionError{Op: "update", Reason: "Only draft invoices can be edited"},
			status: http.StatusConflict,
			detail: "Only draft invoices can be edited",
		},
		{
			name:   "not found",
			err:    viewmodel.NewLoadError("load invoice", "Failed to load invoice", notFound),
			status: http.StatusNotFound,
			detail: "Invoice not found",
		},
		{
			name:   "load failed",
			err:    viewmodel.NewLoadError("load invoice", "Failed to load invoice", errors.New("dial tcp")),
			status: http.StatusBadGateway,
			detail: "Failed to load invoice",
		},
		{
			name:   "submit rejected",
			err:    viewmodel.NewSubmitError("create invoice", "Failed to create invoice", rejected),
			status: http.StatusUnprocessableEntity,
			detail: "Bad dates",
			fields: map[string]string{"dueDate": "before issue date"},
		},
		{
			name:   "bad input",
			err:    fmt.Errorf("%w: body", ErrBadInput),
			status: http.StatusBadRequest,
			detail: "malformed request: body",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, StatusOf(tc.err))

			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			require.Equal(t, tc.status, rec.Code)

			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.detail, body.Detail)
			assert.Equal(t, tc.fields, body.Fields)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRespondStateKeepsStateOnLoadFailure(t *testing.T) {
	type state struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	err := viewmodel.NewLoadError("list invoices", "Failed to load invoices", errors.New("dial tcp"))

	rec := httptest.NewRecorder()
	RespondState(rec, err, state{URL: "/invoices?status=SENT", Error: "Failed to load invoices"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var got state
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "/invoices?status=SENT", got.URL)
	assert.Equal(t, "Failed to load invoices", got.Error)
}

func TestRespondStateUnauthorizedIsProblem(t *testing.T) {
	err := viewmodel.NewLoadError("list invoices", "Failed to load invoices", apiclient.ErrUnauthorized)

	rec := httptest.NewRecorder()
	RespondState(rec, err, struct{}{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Unauthorized", body.Title)
}
