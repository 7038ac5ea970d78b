package invoices

import (
	"context"
	"net/url"
	"strconv"

	"github.com/osgiliath/console/internal/apiclient"
)

// ListParams is the backend query of GET /invoices. Page is zero-based.
type ListParams struct {
	Page          int    `schema:"page"`
	Size          int    `schema:"size"`
	Status        string `schema:"status,omitempty"`
	CustomerID    string `schema:"customerId,omitempty"`
	FromDate      string `schema:"fromDate,omitempty"`
	ToDate        string `schema:"toDate,omitempty"`
	SortBy        string `schema:"sortBy,omitempty"`
	SortDirection string `schema:"sortDirection,omitempty"`
}

// Service maps the invoice endpoints, including status transitions and
// nested line items.
type Service struct {
	api *apiclient.Client
}

// NewService constructs a Service.
func NewService(api *apiclient.Client) *Service {
	return &Service{api: api}
}

func invoicePath(id string, rest ...string) string {
	p := "/invoices/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// List returns one page of invoices.
func (s *Service) List(ctx context.Context, params ListParams) (apiclient.Page[Invoice], error) {
	return apiclient.List[Invoice](ctx, s.api, "/invoices", params)
}

// Get fetches one invoice with its line items.
func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	if err := s.api.Get(ctx, invoicePath(id), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create stores a new draft invoice.
func (s *Service) Create(ctx context.Context, d Draft) (*Invoice, error) {
	req := createRequest{
		CustomerID: d.CustomerID,
		IssueDate:  d.IssueDate,
		DueDate:    d.DueDate,
		TaxRate:    d.TaxRate,
		LineItems:  make([]LineItemInput, 0, len(d.LineItems)),
	}
	for _, li := range d.LineItems {
		req.LineItems = append(req.LineItems, inputOf(li))
	}
	var inv Invoice
	if err := s.api.Post(ctx, "/invoices", req, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Update sends header fields only.
func (s *Service) Update(ctx context.Context, id string, h Header) (*Invoice, error) {
	var inv Invoice
	if err := s.api.Put(ctx, invoicePath(id), h, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Delete removes a draft invoice.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, invoicePath(id))
}

// Send moves a draft to SENT.
func (s *Service) Send(ctx context.Context, id string) (*Invoice, error) {
	return s.transition(ctx, id, ActionSend)
}

// MarkPaid settles a sent or overdue invoice.
func (s *Service) MarkPaid(ctx context.Context, id string) (*Invoice, error) {
	return s.transition(ctx, id, ActionMarkPaid)
}

// Cancel cancels a sent or overdue invoice.
func (s *Service) Cancel(ctx context.Context, id string) (*Invoice, error) {
	return s.transition(ctx, id, ActionCancel)
}

func (s *Service) transition(ctx context.Context, id string, action Action) (*Invoice, error) {
	var inv Invoice
	if err := s.api.Post(ctx, invoicePath(id, string(action)), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// AddLineItem appends a line to a draft invoice.
func (s *Service) AddLineItem(ctx context.Context, id string, in LineItemInput) (*LineItem, error) {
	var li LineItem
	if err := s.api.Post(ctx, invoicePath(id, "line-items"), in, &li); err != nil {
		return nil, err
	}
	return &li, nil
}

// DeleteLineItem removes a persisted line from a draft invoice.
func (s *Service) DeleteLineItem(ctx context.Context, id string, itemID int64) error {
	return s.api.Delete(ctx, invoicePath(id, "line-items", strconv.FormatInt(itemID, 10)))
}

// ExportPDF downloads the rendered invoice.
func (s *Service) ExportPDF(ctx context.Context, id string) (*apiclient.Document, error) {
	return s.api.Download(ctx, invoicePath(id, "pdf"))
}

// PDFFilename is the name offered when saving an invoice document.
func PDFFilename(invoiceNumber string) string {
	return "invoice_" + invoiceNumber + ".pdf"
}
