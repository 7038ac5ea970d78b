package viewmodel

import (
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osgiliath/console/internal/apiclient"
)

// ==== validation ====

type sample struct {
	Name     string  `json:"name" validate:"notblank"`
	Email    string  `json:"email" validate:"required,email"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

func TestCheckUsesJSONNamesAndMessages(t *testing.T) {
	fields := Check(sample{Name: "   ", Email: "nope"}, Messages{
		"name":        "Name is required",
		"email.email": "Invalid email format",
	})
	assert.Equal(t, FieldErrors{
		"name":     "Name is required",
		"email":    "Invalid email format",
		"quantity": "quantity must be greater than 0",
	}, fields)
}

func TestCheckValid(t *testing.T) {
	fields := Check(sample{Name: "Acme", Email: "a@b.test", Quantity: 0.5}, nil)
	assert.True(t, fields.Valid())
}

func TestCheckPrefixed(t *testing.T) {
	fields := CheckPrefixed(sample{Name: "Acme", Email: "a@b.test"}, "lineItem_2_", nil)
	assert.Equal(t, []string{"lineItem_2_quantity"}, fields.Keys())
}

func TestFieldErrorsMergeKeepsExisting(t *testing.T) {
	merged := FieldErrors{"a": "first"}.Merge(FieldErrors{"a": "second", "b": "other"})
	assert.Equal(t, FieldErrors{"a": "first", "b": "other"}, merged)
	assert.Equal(t, FieldErrors{"x": "y"}, FieldErrors(nil).Merge(FieldErrors{"x": "y"}))
}

// ==== errors ====

func TestNewLoadErrorKinds(t *testing.T) {
	notFound := NewLoadError("load invoice", "Failed to load invoice", &apiclient.Error{Status: 404})
	assert.Equal(t, LoadKindNotFound, notFound.Kind)
	assert.Equal(t, "Failed to load invoice", notFound.Message)

	failed := NewLoadError("load invoice", "Failed to load invoice", &apiclient.Error{Status: 500, Message: "db down"})
	assert.Equal(t, LoadKindFailed, failed.Kind)
	assert.Equal(t, "db down", failed.Message)
	assert.ErrorIs(t, failed, apiclient.ErrUnavailable)
}

func TestNewSubmitErrorCarriesServerFields(t *testing.T) {
	err := NewSubmitError("create customer", "Failed to create customer", &apiclient.Error{
		Status:  400,
		Message: "   ",
		Fields:  map[string]string{"email": "taken"},
	})
	assert.Equal(t, "Failed to create customer", err.Message)
	assert.Equal(t, FieldErrors{"email": "taken"}, err.Fields)

	plain := NewSubmitError("send", "Failed to send invoice", errors.New("dial tcp: refused"))
	assert.Nil(t, plain.Fields)
	assert.Equal(t, "Failed to send invoice", plain.Message)
}

func TestMessage(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.Equal(t, "Please correct the highlighted fields", Message(&ValidationError{Fields: FieldErrors{"a": "b"}}))
	assert.Equal(t, "Invoice must be loaded first", Message(&PreconditionError{Op: "send", Reason: "Invoice must be loaded first"}))
	assert.Equal(t, "Failed", Message(&SubmitError{Op: "x", Message: "Failed"}))
	assert.Equal(t, "Something went wrong", Message(errors.New("boom")))
}

// ==== sequencing ====

func TestSequenceLatestWins(t *testing.T) {
	var seq Sequence
	first := seq.Next()
	second := seq.Next()
	assert.False(t, seq.Current(first))
	assert.True(t, seq.Current(second))
}

func TestSequenceConcurrentIssueIsUnique(t *testing.T) {
	var (
		seq  Sequence
		mu   sync.Mutex
		seen = map[uint64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := seq.Next()
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
	assert.True(t, seq.Current(50))
}

// ==== query codec ====

type listQuery struct {
	Status string `schema:"status,omitempty"`
	SortBy string `schema:"sortBy,omitempty"`
	Page   int    `schema:"page,omitempty"`
}

func TestEncodeQueryDropsDefaults(t *testing.T) {
	defaults := url.Values{"sortBy": {"issueDate"}, "page": {"1"}}
	values, err := EncodeQuery(listQuery{Status: "PAID", SortBy: "issueDate", Page: 1}, defaults)
	require.NoError(t, err)
	assert.Equal(t, "/invoices?status=PAID", BuildURL("/invoices", values))

	values, err = EncodeQuery(listQuery{SortBy: "dueDate", Page: 3}, defaults)
	require.NoError(t, err)
	assert.Equal(t, "/invoices?page=3&sortBy=dueDate", BuildURL("/invoices", values))

	values, err = EncodeQuery(listQuery{SortBy: "issueDate", Page: 1}, defaults)
	require.NoError(t, err)
	assert.Equal(t, "/invoices", BuildURL("/invoices", values))
}

func TestDecodeQueryIgnoresUnknownKeys(t *testing.T) {
	var q listQuery
	require.NoError(t, DecodeQuery(&q, url.Values{"status": {"SENT"}, "utm_source": {"mail"}, "page": {"2"}}))
	assert.Equal(t, listQuery{Status: "SENT", Page: 2}, q)
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	NavigatorFunc(func(target string) { got = target }).Navigate("/customers?page=2")
	assert.Equal(t, "/customers?page=2", got)
}
