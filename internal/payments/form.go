package payments

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/shared"
	"github.com/osgiliath/console/internal/viewmodel"
)

// InvoiceSource fetches the invoice a payment is recorded against.
type InvoiceSource interface {
	Get(ctx context.Context, id string) (*invoices.Invoice, error)
}

// Repository records and lists payments.
type Repository interface {
	Record(ctx context.Context, invoiceID string, c Candidate) (*Payment, error)
	List(ctx context.Context, invoiceID string) ([]Payment, error)
}

var candidateMessages = viewmodel.Messages{
	"amount":               "Amount must be greater than 0",
	"paymentDate.datetime": "Payment date must be a valid date (YYYY-MM-DD)",
	"paymentDate":          "Payment date is required",
	"paymentMethod.oneof":  "Payment method is not supported",
	"paymentMethod":        "Payment method is required",
}

// FormState is what a payment page renders.
type FormState struct {
	Invoice  *invoices.Invoice     `json:"invoice,omitempty"`
	Payments []Payment             `json:"payments"`
	Errors   viewmodel.FieldErrors `json:"errors,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// FormViewModel validates payments against the latest known balance and
// reloads invoice and history after each one.
type FormViewModel struct {
	invoices InvoiceSource
	repo     Repository
	now      func() time.Time
	seq      viewmodel.Sequence

	mu       sync.Mutex
	invoice  *invoices.Invoice
	payments []Payment
	errors   viewmodel.FieldErrors
	errMsg   string
}

// Option configures a FormViewModel.
type Option func(*FormViewModel)

// WithClock replaces time.Now for the future-date check.
func WithClock(now func() time.Time) Option {
	return func(vm *FormViewModel) { vm.now = now }
}

// NewFormViewModel constructs a FormViewModel.
func NewFormViewModel(invoices InvoiceSource, repo Repository, opts ...Option) *FormViewModel {
	vm := &FormViewModel{invoices: invoices, repo: repo, now: time.Now, payments: []Payment{}}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// State returns a snapshot for rendering.
func (vm *FormViewModel) State() FormState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	payments := make([]Payment, len(vm.payments))
	copy(payments, vm.payments)
	return FormState{Invoice: vm.invoice, Payments: payments, Errors: vm.errors, Error: vm.errMsg}
}

// Load fetches the invoice and its payment history concurrently. Either
// failure fails the whole load.
func (vm *FormViewModel) Load(ctx context.Context, invoiceID string) error {
	n := vm.seq.Next()
	var (
		inv     *invoices.Invoice
		history []Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		inv, err = vm.invoices.Get(gctx, invoiceID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = vm.repo.List(gctx, invoiceID)
		return err
	})
	err := g.Wait()

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.seq.Current(n) {
		if err != nil {
			return viewmodel.NewLoadError("load payments", "Failed to load invoice data", err)
		}
		return nil
	}
	if err != nil {
		lerr := viewmodel.NewLoadError("load payments", "Failed to load invoice data", err)
		vm.errMsg = lerr.Message
		return lerr
	}
	if history == nil {
		history = []Payment{}
	}
	vm.invoice = inv
	vm.payments = history
	vm.errMsg = ""
	return nil
}

// Validate checks c against the most recently loaded balance. Paying
// exactly the balance due is allowed.
func (vm *FormViewModel) Validate(c Candidate) viewmodel.FieldErrors {
	c.PaymentDate = strings.TrimSpace(c.PaymentDate)
	fields := viewmodel.Check(c, candidateMessages)

	vm.mu.Lock()
	inv := vm.invoice
	vm.mu.Unlock()
	if _, failed := fields["amount"]; !failed && inv != nil && shared.Cents(c.Amount) > shared.Cents(inv.BalanceDue) {
		fields["amount"] = "Amount cannot exceed invoice balance of " + shared.FormatCurrency(inv.BalanceDue)
	}
	if _, failed := fields["paymentDate"]; !failed {
		if day, err := time.Parse(time.DateOnly, c.PaymentDate); err == nil {
			now := vm.now()
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			if day.After(today) {
				fields["paymentDate"] = "Payment date cannot be in the future"
			}
		}
	}
	return fields
}

// Record validates, submits the payment and then reloads invoice and
// history unconditionally. When the payment is stored but the reload
// fails, the payment is returned together with a *viewmodel.LoadError.
func (vm *FormViewModel) Record(ctx context.Context, c Candidate) (*Payment, error) {
	vm.mu.Lock()
	inv := vm.invoice
	vm.mu.Unlock()
	if inv == nil {
		return nil, &viewmodel.PreconditionError{Op: "record payment", Reason: "Invoice must be loaded first"}
	}

	c.PaymentDate = strings.TrimSpace(c.PaymentDate)
	c.ReferenceNumber = strings.TrimSpace(c.ReferenceNumber)
	fields := vm.Validate(c)
	vm.mu.Lock()
	if !fields.Valid() {
		vm.errors = fields
		vm.mu.Unlock()
		return nil, &viewmodel.ValidationError{Fields: fields}
	}
	vm.errors = nil
	vm.mu.Unlock()

	p, err := vm.repo.Record(ctx, inv.ID, c)
	if err != nil {
		serr := viewmodel.NewSubmitError("record payment", "Failed to record payment", err)
		vm.mu.Lock()
		vm.errMsg = serr.Message
		if len(serr.Fields) > 0 {
			vm.errors = serr.Fields
		}
		vm.mu.Unlock()
		return nil, serr
	}
	if err := vm.Load(ctx, inv.ID); err != nil {
		return p, err
	}
	return p, nil
}
