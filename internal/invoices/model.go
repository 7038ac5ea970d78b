// Package invoices holds the invoice service, the invoice form and list
// view-models and the status actions a page can offer on an invoice.
package invoices

// Status is the lifecycle state of an invoice. Transitions are decided by
// the backend; the console only requests them.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Editable reports whether header fields and line items may change.
func (s Status) Editable() bool {
	return s == StatusDraft
}

// Action is a status transition or removal a page may offer.
type Action string

const (
	ActionSend     Action = "send"
	ActionMarkPaid Action = "mark-paid"
	ActionCancel   Action = "cancel"
	ActionDelete   Action = "delete"
)

// AvailableActions lists the actions allowed for an invoice in status s.
func AvailableActions(s Status) []Action {
	switch s {
	case StatusDraft:
		return []Action{ActionSend, ActionDelete}
	case StatusSent, StatusOverdue:
		return []Action{ActionMarkPaid, ActionCancel}
	default:
		return nil
	}
}

// Allows reports whether action a is offered in status s.
func (s Status) Allows(a Action) bool {
	for _, allowed := range AvailableActions(s) {
		if allowed == a {
			return true
		}
	}
	return false
}

// Invoice is the aggregate as computed by the backend. Money fields are
// authoritative and never recomputed locally.
type Invoice struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customerId"`
	CustomerName  string     `json:"customerName,omitempty"`
	InvoiceNumber string     `json:"invoiceNumber"`
	IssueDate     string     `json:"issueDate"`
	DueDate       string     `json:"dueDate"`
	Status        Status     `json:"status"`
	Subtotal      float64    `json:"subtotal"`
	TaxAmount     float64    `json:"taxAmount"`
	TotalAmount   float64    `json:"totalAmount"`
	BalanceDue    float64    `json:"balanceDue"`
	LineItems     []LineItem `json:"lineItems"`
	CreatedAt     string     `json:"createdAt,omitempty"`
	UpdatedAt     string     `json:"updatedAt,omitempty"`
}

// LineItem is a persisted line of an invoice.
type LineItem struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// DraftLineItem is a line being edited. ID is nil until the backend has
// stored it.
type DraftLineItem struct {
	ID          *int64  `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`

	// key identifies an unsaved line within its view-model.
	key uint64
}

// Persisted reports whether the line exists on the backend.
func (d DraftLineItem) Persisted() bool {
	return d.ID != nil
}

// LineItemInput is the body of a new line item.
type LineItemInput struct {
	Description string  `json:"description" validate:"notblank"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gt=0"`
}

// Header is the client-settable part of an existing invoice.
type Header struct {
	CustomerID string `json:"customerId" validate:"notblank"`
	IssueDate  string `json:"issueDate" validate:"required,datetime=2006-01-02"`
	DueDate    string `json:"dueDate" validate:"required,datetime=2006-01-02"`
}

// Draft is a new invoice as entered. TaxRate is optional and forwarded
// as is; the backend computes the tax.
type Draft struct {
	Header
	TaxRate   *float64        `json:"taxRate,omitempty"`
	LineItems []DraftLineItem `json:"lineItems"`
}

type createRequest struct {
	CustomerID string          `json:"customerId"`
	IssueDate  string          `json:"issueDate"`
	DueDate    string          `json:"dueDate"`
	TaxRate    *float64        `json:"taxRate,omitempty"`
	LineItems  []LineItemInput `json:"lineItems"`
}

func inputOf(d DraftLineItem) LineItemInput {
	return LineItemInput{Description: d.Description, Quantity: d.Quantity, UnitPrice: d.UnitPrice}
}

func draftOf(li LineItem) DraftLineItem {
	id := li.ID
	return DraftLineItem{ID: &id, Description: li.Description, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
}
