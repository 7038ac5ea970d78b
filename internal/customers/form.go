package customers

import (
	"context"
	"strings"
	"sync"

	"github.com/osgiliath/console/internal/viewmodel"
)

// Repository is what the form view-model needs from the backend.
type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, d Draft) (*Customer, error)
	Update(ctx context.Context, id string, d Draft) (*Customer, error)
}

var draftMessages = viewmodel.Messages{
	"name":        "Name is required",
	"email.email": "Invalid email format",
	"email":       "Email is required",
}

// FormState is what a customer form page renders.
type FormState struct {
	Customer *Customer             `json:"customer,omitempty"`
	Errors   viewmodel.FieldErrors `json:"errors,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// FormViewModel loads, validates and saves one customer.
type FormViewModel struct {
	repo  Repository
	seq   viewmodel.Sequence
	mu    sync.Mutex
	state FormState
}

// NewFormViewModel constructs a FormViewModel.
func NewFormViewModel(repo Repository) *FormViewModel {
	return &FormViewModel{repo: repo}
}

// State returns a snapshot of the form state.
func (vm *FormViewModel) State() FormState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Load fetches the customer to edit.
func (vm *FormViewModel) Load(ctx context.Context, id string) error {
	n := vm.seq.Next()
	c, err := vm.repo.Get(ctx, id)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.seq.Current(n) {
		return nil
	}
	if err != nil {
		lerr := viewmodel.NewLoadError("load customer", "Failed to load customer", err)
		vm.state.Error = lerr.Message
		return lerr
	}
	vm.state = FormState{Customer: c}
	return nil
}

// ValidateDraft checks the required fields and the email shape.
func (vm *FormViewModel) ValidateDraft(d Draft) viewmodel.FieldErrors {
	d.Email = strings.TrimSpace(d.Email)
	return viewmodel.Check(d, draftMessages)
}

// Create validates and stores a new customer.
func (vm *FormViewModel) Create(ctx context.Context, d Draft) (*Customer, error) {
	if err := vm.validate(d); err != nil {
		return nil, err
	}
	c, err := vm.repo.Create(ctx, normalise(d))
	if err != nil {
		return nil, vm.fail(viewmodel.NewSubmitError("create customer", "Failed to create customer", err))
	}
	vm.mu.Lock()
	vm.state = FormState{Customer: c}
	vm.mu.Unlock()
	return c, nil
}

// Update validates and saves changes to an existing customer.
func (vm *FormViewModel) Update(ctx context.Context, id string, d Draft) (*Customer, error) {
	if err := vm.validate(d); err != nil {
		return nil, err
	}
	c, err := vm.repo.Update(ctx, id, normalise(d))
	if err != nil {
		return nil, vm.fail(viewmodel.NewSubmitError("update customer", "Failed to update customer", err))
	}
	vm.seq.Next()
	vm.mu.Lock()
	vm.state = FormState{Customer: c}
	vm.mu.Unlock()
	return c, nil
}

func (vm *FormViewModel) validate(d Draft) error {
	fields := vm.ValidateDraft(d)
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Errors = fields
	if !fields.Valid() {
		return &viewmodel.ValidationError{Fields: fields}
	}
	vm.state.Error = ""
	return nil
}

func (vm *FormViewModel) fail(err *viewmodel.SubmitError) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Error = err.Message
	if len(err.Fields) > 0 {
		vm.state.Errors = err.Fields
	}
	return err
}

func normalise(d Draft) Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	return d
}
