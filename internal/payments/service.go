package payments

import (
	"context"
	"net/url"

	"github.com/osgiliath/console/internal/apiclient"
)

// Service maps the payment endpoints nested under an invoice.
type Service struct {
	api *apiclient.Client
}

// NewService constructs a Service.
func NewService(api *apiclient.Client) *Service {
	return &Service{api: api}
}

func paymentsPath(invoiceID string) string {
	return "/invoices/" + url.PathEscape(invoiceID) + "/payments"
}

// Record stores a payment against an invoice.
func (s *Service) Record(ctx context.Context, invoiceID string, c Candidate) (*Payment, error) {
	var p Payment
	if err := s.api.Post(ctx, paymentsPath(invoiceID), c, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the full payment history of an invoice.
func (s *Service) List(ctx context.Context, invoiceID string) ([]Payment, error) {
	page, err := apiclient.List[Payment](ctx, s.api, paymentsPath(invoiceID), nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
