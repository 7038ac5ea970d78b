package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osgiliath/console/internal/cli"
	"github.com/osgiliath/console/internal/customers"
	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/payments"
	_ "github.com/osgiliath/console/testing"
)

// ==== fake backend ====

type backend struct {
	mu        sync.Mutex
	invoice   invoices.Invoice
	payments  []payments.Payment
	calls     []string
	lastQuery map[string]string
	rejectAll bool
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
}

func (b *backend) called(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{invoice: invoices.Invoice{
		ID: "7", InvoiceNumber: "INV-007", CustomerID: "c1", CustomerName: "Acme",
		IssueDate: "2024-03-01", DueDate: "2024-03-31", Status: invoices.StatusSent,
		Subtotal: 1000, TotalAmount: 1000, BalanceDue: 1000,
		LineItems: []invoices.LineItem{{ID: 1, Description: "Consulting", Quantity: 10, UnitPrice: 100, LineTotal: 1000}},
	}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.record(r)
			if r.URL.Path == "/auth/login" {
				next.ServeHTTP(w, r)
				return
			}
			b.mu.Lock()
			reject := b.rejectAll
			b.mu.Unlock()
			if reject || r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"Invalid username or password"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok", "username": in.Username})
	})
	r.Get("/customers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":       []customers.Customer{{ID: "c1", Name: "Acme", Email: "billing@acme.test"}},
			"totalElements": 1,
		})
	})
	r.Get("/invoices", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			b.lastQuery[k] = r.URL.Query().Get(k)
		}
		inv := b.invoice
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode([]invoices.Invoice{inv})
	})
	r.Get("/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.invoice)
	})
	r.Post("/invoices/{id}/send", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.invoice.Status = invoices.StatusSent
		_ = json.NewEncoder(w).Encode(b.invoice)
	})
	r.Post("/invoices/{id}/line-items", func(w http.ResponseWriter, r *http.Request) {
		var in invoices.LineItemInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Description == "Boom" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":400,"message":"Line item rejected"}`))
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		li := invoices.LineItem{
			ID: int64(len(b.invoice.LineItems) + 1), Description: in.Description,
			Quantity: in.Quantity, UnitPrice: in.UnitPrice, LineTotal: in.Quantity * in.UnitPrice,
		}
		b.invoice.LineItems = append(b.invoice.LineItems, li)
		b.invoice.Subtotal += li.LineTotal
		b.invoice.TotalAmount += li.LineTotal
		b.invoice.BalanceDue += li.LineTotal
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(li)
	})
	r.Get("/invoices/{id}/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	})
	r.Get("/invoices/{id}/payments", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.payments)
	})
	r.Post("/invoices/{id}/payments", func(w http.ResponseWriter, r *http.Request) {
		var c payments.Candidate
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		p := payments.Payment{ID: "p1", InvoiceID: chi.URLParam(r, "id"), Amount: c.Amount, PaymentDate: c.PaymentDate, PaymentMethod: c.PaymentMethod}
		b.payments = append(b.payments, p)
		b.invoice.BalanceDue -= c.Amount
		if b.invoice.BalanceDue <= 0 {
			b.invoice.Status = invoices.StatusPaid
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(p)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return b, srv
}

// ==== harness ====

type harness struct {
	t       *testing.T
	config  string
	backend string
}

func newHarness(t *testing.T, backendURL string) *harness {
	return &harness{t: t, config: filepath.Join(t.TempDir(), "config.yaml"), backend: backendURL}
}

func (h *harness) run(stdin string, args ...string) (string, string, int) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	code := cli.Run(context.Background(), cli.Options{
		Out:        &out,
		Err:        &errOut,
		In:         strings.NewReader(stdin),
		ConfigPath: h.config,
		Now:        func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) },
	}, append([]string{"--backend", h.backend}, args...))
	return out.String(), errOut.String(), code
}

func (h *harness) login() {
	h.t.Helper()
	_, stderr, code := h.run("", "login", "-u", "alice", "-p", "secret")
	require.Equal(h.t, 0, code, stderr)
}

// ==== auth ====

func TestLoginPersistsTokenAndBackend(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	out, stderr, code := h.run("secret\n", "login", "-u", "alice")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Logged in as alice")

	profile, err := cli.LoadProfile(h.config)
	require.NoError(t, err)
	assert.Equal(t, "tok", profile.Token)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, srv.URL, profile.BackendURL)
}

func TestLoginShowsServerMessage(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	_, stderr, code := h.run("", "login", "-u", "alice", "-p", "wrong")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Invalid username or password")
}

func TestLoginValidatesBeforeCallingBackend(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	_, stderr, code := h.run("", "login", "-u", "  ", "-p", "secret")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "username: Username is required")
	assert.Zero(t, b.called("POST /auth/login"))
}

func TestCommandsRequireLogin(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	_, stderr, code := h.run("", "customers", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not logged in")
	assert.Zero(t, b.called("GET /customers"))
}

func TestRejectedTokenIsForgotten(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	b.mu.Lock()
	b.rejectAll = true
	b.mu.Unlock()
	_, _, code := h.run("", "customers", "list")
	assert.Equal(t, 1, code)

	profile, err := cli.LoadProfile(h.config)
	require.NoError(t, err)
	assert.Empty(t, profile.Token)
}

func TestLogoutClearsProfile(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	out, _, code := h.run("", "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Logged out")
	profile, err := cli.LoadProfile(h.config)
	require.NoError(t, err)
	assert.Empty(t, profile.Token)
}

// ==== lists ====

func TestCustomersListTable(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	out, stderr, code := h.run("", "customers", "list", "-o", "table")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "billing@acme.test")
	assert.Contains(t, out, "Page 1 of 1 (1 customers)")
}

func TestInvoicesListForwardsFilters(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	out, stderr, code := h.run("", "invoices", "list", "-o", "json", "--status", "sent", "--page", "2")
	require.Equal(t, 0, code, stderr)

	b.mu.Lock()
	q := b.lastQuery
	b.mu.Unlock()
	assert.Equal(t, "SENT", q["status"])
	assert.Equal(t, "1", q["page"])
	assert.Equal(t, "issueDate", q["sortBy"])
	assert.Equal(t, "DESC", q["sortDirection"])

	var state invoices.ListState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, 1, state.ActiveFilterCount)
	assert.Equal(t, "/invoices?page=2&status=SENT", state.URL)
}

// ==== invoice actions ====

func TestSendRefusedForSentInvoice(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	_, stderr, code := h.run("", "invoices", "send", "7")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Cannot send an invoice in status SENT")
	assert.Zero(t, b.called("POST /invoices/7/send"))
}

func (b *backend) draft() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invoice.Status = invoices.StatusDraft
}

func TestAddLinesStoresEachLineInOrder(t *testing.T) {
	b, srv := newBackend(t)
	b.draft()
	h := newHarness(t, srv.URL)
	h.login()

	out, stderr, code := h.run("", "invoices", "add-lines", "7",
		"--line", "Design: phase 2:2:150", "--line", "Hosting:1:1,200", "-o", "table")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, 2, b.called("POST /invoices/7/line-items"))
	assert.Contains(t, out, "Design: phase 2")
	assert.Contains(t, out, "Hosting")

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.invoice.LineItems, 3)
	assert.Equal(t, "Design: phase 2", b.invoice.LineItems[1].Description)
	assert.Equal(t, 1200.0, b.invoice.LineItems[2].UnitPrice)
}

func TestAddLinesDryRunPreviewsWithoutPosting(t *testing.T) {
	b, srv := newBackend(t)
	b.draft()
	h := newHarness(t, srv.URL)
	h.login()

	out, stderr, code := h.run("", "invoices", "add-lines", "7", "--line", "Design:2:150", "--dry-run")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Subtotal with 1 new line(s) would be")
	assert.Contains(t, out, "1,300.00")
	assert.Zero(t, b.called("POST /invoices/7/line-items"))
}

func TestAddLinesInvalidLineNeverPosts(t *testing.T) {
	b, srv := newBackend(t)
	b.draft()
	h := newHarness(t, srv.URL)
	h.login()

	_, stderr, code := h.run("", "invoices", "add-lines", "7", "--line", "Design:2:150", "--line", "Hosting:1:0")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "lineItem_2_unitPrice: Unit price must be greater than 0")

	_, stderr, code = h.run("", "invoices", "add-lines", "7", "--line", "Design:two:150")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "is not a number")
	assert.Zero(t, b.called("POST /invoices/7/line-items"))
}

func TestAddLinesPartialFailureShowsStoredLines(t *testing.T) {
	b, srv := newBackend(t)
	b.draft()
	h := newHarness(t, srv.URL)
	h.login()

	out, stderr, code := h.run("", "invoices", "add-lines", "7",
		"--line", "Design:2:150", "--line", "Boom:1:10", "-o", "table")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Line item rejected")
	assert.Contains(t, out, "Design")
	assert.Equal(t, 2, b.called("POST /invoices/7/line-items"))
}

func TestAddLinesRefusedForSentInvoice(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	_, stderr, code := h.run("", "invoices", "add-lines", "7", "--line", "Design:2:150")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Only draft invoices can be edited")
	assert.Zero(t, b.called("POST /invoices/7/line-items"))
}

func TestInvoicePDFWritesFile(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	target := filepath.Join(t.TempDir(), "out.pdf")
	out, stderr, code := h.run("", "invoices", "pdf", "7", "--out", target)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Saved")

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(raw))
}

// ==== payments ====

func TestRecordPaymentSettlesInvoice(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	out, stderr, code := h.run("", "payments", "record", "7", "--amount", "1,000.00", "-o", "table")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "on 2024-03-15")
	assert.Contains(t, out, "is PAID")
	assert.Equal(t, 1, b.called("POST /invoices/7/payments"))

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.payments, 1)
	assert.Equal(t, payments.MethodBankTransfer, b.payments[0].PaymentMethod)
}

func TestRecordPaymentOverBalanceNeverPosts(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	_, stderr, code := h.run("", "payments", "record", "7", "--amount", "1000.01")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Amount cannot exceed invoice balance")
	assert.Zero(t, b.called("POST /invoices/7/payments"))
}

func TestRecordPaymentNegativeAmountNeverPosts(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	_, stderr, code := h.run("", "payments", "record", "7", "--amount", "-50")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "amount: Amount must be greater than 0")
	assert.Zero(t, b.called("POST /invoices/7/payments"))
}

func TestRecordPaymentMalformedAmountNeverPosts(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	for _, amount := range []string{"1.2.3", "5e1", "12abc", ""} {
		_, stderr, code := h.run("", "payments", "record", "7", "--amount", amount)
		assert.Equal(t, 1, code, amount)
		assert.Contains(t, stderr, "is not a number", amount)
	}
	assert.Zero(t, b.called("POST /invoices/7/payments"))
}

func TestRecordPaymentRejectsFutureDate(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.login()

	_, stderr, code := h.run("", "payments", "record", "7", "--amount", "10", "--date", "2024-03-16")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "paymentDate: Payment date cannot be in the future")
	assert.Zero(t, b.called("POST /invoices/7/payments"))
}
