package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/viewmodel"
)

// Repository is what the invoice form view-model needs from the backend.
type Repository interface {
	Get(ctx context.Context, id string) (*Invoice, error)
	Create(ctx context.Context, d Draft) (*Invoice, error)
	Update(ctx context.Context, id string, h Header) (*Invoice, error)
	Delete(ctx context.Context, id string) error
	Send(ctx context.Context, id string) (*Invoice, error)
	MarkPaid(ctx context.Context, id string) (*Invoice, error)
	Cancel(ctx context.Context, id string) (*Invoice, error)
	AddLineItem(ctx context.Context, id string, in LineItemInput) (*LineItem, error)
	DeleteLineItem(ctx context.Context, id string, itemID int64) error
	ExportPDF(ctx context.Context, id string) (*apiclient.Document, error)
}

var (
	headerMessages = viewmodel.Messages{
		"customerId":         "Customer is required",
		"issueDate.datetime": "Issue date must be a valid date (YYYY-MM-DD)",
		"issueDate":          "Issue date is required",
		"dueDate.datetime":   "Due date must be a valid date (YYYY-MM-DD)",
		"dueDate":            "Due date is required",
	}
	lineMessages = viewmodel.Messages{
		"description": "Description is required",
		"quantity":    "Quantity must be greater than 0",
		"unitPrice":   "Unit price must be greater than 0",
	}
	taxMessages = viewmodel.Messages{
		"taxRate": "Tax rate must be between 0 and 100",
	}
)

type taxInput struct {
	TaxRate *float64 `json:"taxRate" validate:"omitempty,gte=0,lte=100"`
}

// Patch changes some fields of a draft line item.
type Patch struct {
	Description *string  `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
}

// FormState is what an invoice create, edit or detail page renders.
type FormState struct {
	Invoice      *Invoice              `json:"invoice,omitempty"`
	LineItems    []DraftLineItem       `json:"lineItems"`
	PreviewTotal float64               `json:"previewTotal"`
	Actions      []Action              `json:"actions"`
	Errors       viewmodel.FieldErrors `json:"errors,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// FormViewModel owns one invoice: its header, its draft line items, and
// the status actions on it. Totals always come from the backend; the only
// local arithmetic is PreviewTotal.
type FormViewModel struct {
	repo Repository
	seq  viewmodel.Sequence

	mu      sync.Mutex
	invoice *Invoice
	lines   []DraftLineItem
	lastKey uint64
	errors  viewmodel.FieldErrors
	errMsg  string
}

// NewFormViewModel constructs an empty form (create mode).
func NewFormViewModel(repo Repository) *FormViewModel {
	return &FormViewModel{repo: repo, lines: []DraftLineItem{}}
}

// State returns a snapshot for rendering.
func (vm *FormViewModel) State() FormState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	lines := make([]DraftLineItem, len(vm.lines))
	copy(lines, vm.lines)
	st := FormState{
		Invoice:      vm.invoice,
		LineItems:    lines,
		PreviewTotal: previewTotal(vm.lines),
		Actions:      []Action{},
		Errors:       vm.errors,
		Error:        vm.errMsg,
	}
	if vm.invoice != nil {
		if actions := AvailableActions(vm.invoice.Status); actions != nil {
			st.Actions = actions
		}
	}
	return st
}

// Invoice returns the loaded aggregate, nil in create mode.
func (vm *FormViewModel) Invoice() *Invoice {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.invoice
}

// Load fetches an invoice and seeds the draft lines from its persisted
// line items.
func (vm *FormViewModel) Load(ctx context.Context, id string) error {
	_, err := vm.reload(ctx, id, false)
	return err
}

// ValidateDraft checks the header and every line item. Keys are
// customerId, issueDate, dueDate, lineItems and lineItem_<i>_<field>.
func (vm *FormViewModel) ValidateDraft(d Draft) viewmodel.FieldErrors {
	fields := viewmodel.Check(d.Header, headerMessages)
	fields.Merge(viewmodel.Check(taxInput{TaxRate: d.TaxRate}, taxMessages))
	if len(d.LineItems) == 0 {
		fields["lineItems"] = "At least one line item is required"
	}
	for i, li := range d.LineItems {
		fields.Merge(viewmodel.CheckPrefixed(inputOf(li), fmt.Sprintf("lineItem_%d_", i), lineMessages))
	}
	return fields
}

// Create validates and submits a new invoice. The caller navigates to
// the returned invoice.
func (vm *FormViewModel) Create(ctx context.Context, d Draft) (*Invoice, error) {
	d.Header = trimHeader(d.Header)
	if err := vm.check(vm.ValidateDraft(d)); err != nil {
		return nil, err
	}
	inv, err := vm.repo.Create(ctx, d)
	if err != nil {
		return nil, vm.fail(viewmodel.NewSubmitError("create invoice", "Failed to create invoice", err))
	}
	vm.seq.Next()
	vm.mu.Lock()
	vm.adopt(inv, false)
	vm.mu.Unlock()
	return inv, nil
}

// Update submits header fields of the loaded draft invoice and returns
// the re-fetched aggregate.
func (vm *FormViewModel) Update(ctx context.Context, id string, h Header) (*Invoice, error) {
	if err := vm.requireEditable("update invoice", id); err != nil {
		return nil, err
	}
	h = trimHeader(h)
	if err := vm.check(viewmodel.Check(h, headerMessages)); err != nil {
		return nil, err
	}
	if _, err := vm.repo.Update(ctx, id, h); err != nil {
		return nil, vm.fail(viewmodel.NewSubmitError("update invoice", "Failed to update invoice", err))
	}
	return vm.reload(ctx, id, true)
}

// AddDraftLineItem appends an empty unsaved line and returns its index.
func (vm *FormViewModel) AddDraftLineItem() (int, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.invoice != nil && !vm.invoice.Status.Editable() {
		return -1, notEditable("add line item")
	}
	vm.lastKey++
	vm.lines = append(vm.lines, DraftLineItem{Quantity: 1, key: vm.lastKey})
	return len(vm.lines) - 1, nil
}

// UpdateDraftLineItem patches an unsaved line. Saved lines are changed by
// removing and re-adding them.
func (vm *FormViewModel) UpdateDraftLineItem(i int, p Patch) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	const op = "update line item"
	if vm.invoice != nil && !vm.invoice.Status.Editable() {
		return notEditable(op)
	}
	if i < 0 || i >= len(vm.lines) {
		return &viewmodel.PreconditionError{Op: op, Reason: fmt.Sprintf("No line item at position %d", i+1)}
	}
	line := vm.lines[i]
	if line.Persisted() {
		return &viewmodel.PreconditionError{Op: op, Reason: "Saved line items cannot be changed, remove and add them again"}
	}
	if p.Description != nil {
		line.Description = *p.Description
	}
	if p.Quantity != nil {
		line.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		line.UnitPrice = *p.UnitPrice
	}
	vm.lines[i] = line
	return nil
}

// RemoveDraftLineItem drops a line. A saved line is deleted on the
// backend first; local state changes only once that succeeded, and the
// invoice is then re-fetched.
func (vm *FormViewModel) RemoveDraftLineItem(ctx context.Context, i int) error {
	const op = "remove line item"
	vm.mu.Lock()
	if vm.invoice != nil && !vm.invoice.Status.Editable() {
		vm.mu.Unlock()
		return notEditable(op)
	}
	if i < 0 || i >= len(vm.lines) {
		vm.mu.Unlock()
		return &viewmodel.PreconditionError{Op: op, Reason: fmt.Sprintf("No line item at position %d", i+1)}
	}
	line := vm.lines[i]
	if !line.Persisted() {
		vm.lines = append(vm.lines[:i:i], vm.lines[i+1:]...)
		vm.mu.Unlock()
		return nil
	}
	if vm.invoice == nil {
		vm.mu.Unlock()
		return &viewmodel.PreconditionError{Op: op, Reason: "Invoice must be loaded first"}
	}
	id := vm.invoice.ID
	vm.mu.Unlock()

	if err := vm.repo.DeleteLineItem(ctx, id, *line.ID); err != nil {
		return vm.fail(viewmodel.NewSubmitError(op, "Failed to delete line item", err))
	}
	vm.mu.Lock()
	for j := range vm.lines {
		if vm.lines[j].ID != nil && *vm.lines[j].ID == *line.ID {
			vm.lines = append(vm.lines[:j:j], vm.lines[j+1:]...)
			break
		}
	}
	vm.mu.Unlock()
	_, err := vm.reload(ctx, id, true)
	return err
}

// AddPersistedLineItem stores a new line on the loaded draft invoice and
// returns the re-fetched aggregate.
func (vm *FormViewModel) AddPersistedLineItem(ctx context.Context, in LineItemInput) (*Invoice, error) {
	const op = "add line item"
	id, err := vm.loadedEditable(op)
	if err != nil {
		return nil, err
	}
	in.Description = strings.TrimSpace(in.Description)
	if err := vm.check(viewmodel.Check(in, lineMessages)); err != nil {
		return nil, err
	}
	if _, err := vm.repo.AddLineItem(ctx, id, in); err != nil {
		return nil, vm.fail(viewmodel.NewSubmitError(op, "Failed to add line item", err))
	}
	return vm.reload(ctx, id, true)
}

// SavePendingLineItems stores every unsaved draft line of the loaded
// invoice in order, then re-fetches. It stops at the first failure; lines
// stored before it are persisted and the rest stay as drafts. After a
// partial failure the re-fetched invoice is returned with the error.
func (vm *FormViewModel) SavePendingLineItems(ctx context.Context) (*Invoice, error) {
	const op = "save line items"
	id, err := vm.loadedEditable(op)
	if err != nil {
		return nil, err
	}
	type pendingLine struct {
		key uint64
		in  LineItemInput
	}
	vm.mu.Lock()
	var pending []pendingLine
	fields := viewmodel.FieldErrors{}
	for i, li := range vm.lines {
		if li.Persisted() {
			continue
		}
		if li.key == 0 {
			vm.lastKey++
			vm.lines[i].key = vm.lastKey
			li.key = vm.lastKey
		}
		in := inputOf(li)
		in.Description = strings.TrimSpace(in.Description)
		fields.Merge(viewmodel.CheckPrefixed(in, fmt.Sprintf("lineItem_%d_", i), lineMessages))
		pending = append(pending, pendingLine{key: li.key, in: in})
	}
	vm.mu.Unlock()
	if err := vm.check(fields); err != nil {
		return nil, err
	}

	saved := make(map[uint64]bool, len(pending))
	for _, p := range pending {
		if _, err := vm.repo.AddLineItem(ctx, id, p.in); err != nil {
			serr := viewmodel.NewSubmitError(op, "Failed to add line item", err)
			if len(saved) == 0 {
				return nil, vm.fail(serr)
			}
			vm.dropLines(saved)
			inv, rerr := vm.reload(ctx, id, true)
			ferr := vm.fail(serr)
			if rerr != nil {
				return nil, errors.Join(ferr, rerr)
			}
			return inv, ferr
		}
		saved[p.key] = true
	}
	vm.dropLines(saved)
	return vm.reload(ctx, id, true)
}

// dropLines removes the unsaved lines whose keys are in saved.
func (vm *FormViewModel) dropLines(saved map[uint64]bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	kept := make([]DraftLineItem, 0, len(vm.lines))
	for _, li := range vm.lines {
		if li.Persisted() || !saved[li.key] {
			kept = append(kept, li)
		}
	}
	vm.lines = kept
}

// Send moves the loaded draft to SENT and returns the re-fetched invoice.
func (vm *FormViewModel) Send(ctx context.Context) (*Invoice, error) {
	return vm.act(ctx, ActionSend, "Failed to send invoice", vm.repo.Send)
}

// MarkPaid settles the loaded invoice.
func (vm *FormViewModel) MarkPaid(ctx context.Context) (*Invoice, error) {
	return vm.act(ctx, ActionMarkPaid, "Failed to mark invoice as paid", vm.repo.MarkPaid)
}

// Cancel cancels the loaded invoice.
func (vm *FormViewModel) Cancel(ctx context.Context) (*Invoice, error) {
	return vm.act(ctx, ActionCancel, "Failed to cancel invoice", vm.repo.Cancel)
}

// Delete removes the loaded draft invoice. The form is reset on success.
func (vm *FormViewModel) Delete(ctx context.Context) error {
	id, err := vm.allowed(ActionDelete)
	if err != nil {
		return err
	}
	if err := vm.repo.Delete(ctx, id); err != nil {
		return vm.fail(viewmodel.NewSubmitError("delete invoice", "Failed to delete invoice", err))
	}
	vm.seq.Next()
	vm.mu.Lock()
	vm.invoice = nil
	vm.lines = []DraftLineItem{}
	vm.errors = nil
	vm.errMsg = ""
	vm.mu.Unlock()
	return nil
}

// ExportPDF downloads the loaded invoice as a document named after its
// invoice number.
func (vm *FormViewModel) ExportPDF(ctx context.Context) (*apiclient.Document, error) {
	vm.mu.Lock()
	inv := vm.invoice
	vm.mu.Unlock()
	if inv == nil {
		return nil, &viewmodel.PreconditionError{Op: "export pdf", Reason: "Invoice must be loaded first"}
	}
	doc, err := vm.repo.ExportPDF(ctx, inv.ID)
	if err != nil {
		return nil, viewmodel.NewLoadError("export pdf", "Failed to export invoice", err)
	}
	doc.Filename = PDFFilename(inv.InvoiceNumber)
	if doc.ContentType == "" {
		doc.ContentType = "application/pdf"
	}
	return doc, nil
}

// PreviewTotal is the live sum of quantity times unit price over the draft
// lines. It is never sent to the backend.
func (vm *FormViewModel) PreviewTotal() float64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return previewTotal(vm.lines)
}

func (vm *FormViewModel) act(ctx context.Context, action Action, fallback string, call func(context.Context, string) (*Invoice, error)) (*Invoice, error) {
	id, err := vm.allowed(action)
	if err != nil {
		return nil, err
	}
	if _, err := call(ctx, id); err != nil {
		return nil, vm.fail(viewmodel.NewSubmitError(string(action), fallback, err))
	}
	return vm.reload(ctx, id, false)
}

func (vm *FormViewModel) allowed(action Action) (string, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.invoice == nil {
		return "", &viewmodel.PreconditionError{Op: string(action), Reason: "Invoice must be loaded first"}
	}
	if !vm.invoice.Status.Allows(action) {
		return "", &viewmodel.PreconditionError{
			Op:     string(action),
			Reason: fmt.Sprintf("Cannot %s an invoice in status %s", strings.ReplaceAll(string(action), "-", " "), vm.invoice.Status),
		}
	}
	return vm.invoice.ID, nil
}

// reload re-fetches the aggregate. keepUnsaved appends the local unsaved
// draft lines after the persisted ones.
func (vm *FormViewModel) reload(ctx context.Context, id string, keepUnsaved bool) (*Invoice, error) {
	n := vm.seq.Next()
	inv, err := vm.repo.Get(ctx, id)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.seq.Current(n) {
		if err != nil {
			return nil, viewmodel.NewLoadError("load invoice", "Failed to load invoice", err)
		}
		return inv, nil
	}
	if err != nil {
		lerr := viewmodel.NewLoadError("load invoice", "Failed to load invoice", err)
		vm.errMsg = lerr.Message
		return nil, lerr
	}
	vm.adopt(inv, keepUnsaved)
	return inv, nil
}

// adopt installs inv as the loaded aggregate. Callers hold vm.mu.
func (vm *FormViewModel) adopt(inv *Invoice, keepUnsaved bool) {
	lines := make([]DraftLineItem, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		lines = append(lines, draftOf(li))
	}
	if keepUnsaved {
		for _, d := range vm.lines {
			if !d.Persisted() {
				lines = append(lines, d)
			}
		}
	}
	vm.invoice = inv
	vm.lines = lines
	vm.errors = nil
	vm.errMsg = ""
}

func (vm *FormViewModel) requireEditable(op, id string) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.invoice == nil || vm.invoice.ID != id {
		return &viewmodel.PreconditionError{Op: op, Reason: "Invoice must be loaded before editing"}
	}
	if !vm.invoice.Status.Editable() {
		return notEditable(op)
	}
	return nil
}

func (vm *FormViewModel) loadedEditable(op string) (string, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.invoice == nil {
		return "", &viewmodel.PreconditionError{Op: op, Reason: "Invoice must be loaded first"}
	}
	if !vm.invoice.Status.Editable() {
		return "", notEditable(op)
	}
	return vm.invoice.ID, nil
}

func (vm *FormViewModel) check(fields viewmodel.FieldErrors) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !fields.Valid() {
		vm.errors = fields
		return &viewmodel.ValidationError{Fields: fields}
	}
	vm.errors = nil
	vm.errMsg = ""
	return nil
}

func (vm *FormViewModel) fail(err *viewmodel.SubmitError) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.errMsg = err.Message
	if len(err.Fields) > 0 {
		vm.errors = err.Fields
	}
	return err
}

func notEditable(op string) error {
	return &viewmodel.PreconditionError{Op: op, Reason: "Only draft invoices can be edited"}
}

func previewTotal(lines []DraftLineItem) float64 {
	var total float64
	for _, li := range lines {
		total += li.Quantity * li.UnitPrice
	}
	return total
}

func trimHeader(h Header) Header {
	h.CustomerID = strings.TrimSpace(h.CustomerID)
	h.IssueDate = strings.TrimSpace(h.IssueDate)
	h.DueDate = strings.TrimSpace(h.DueDate)
	return h
}
