package customers

import (
	"context"
	"net/url"

	"github.com/osgiliath/console/internal/apiclient"
)

// ListParams is the backend query of GET /customers. Page is zero-based.
type ListParams struct {
	Page   int    `schema:"page"`
	Size   int    `schema:"size"`
	Search string `schema:"search,omitempty"`
}

// Service maps the customer endpoints.
type Service struct {
	api *apiclient.Client
}

// NewService constructs a Service.
func NewService(api *apiclient.Client) *Service {
	return &Service{api: api}
}

// List returns one page of customers.
func (s *Service) List(ctx context.Context, params ListParams) (apiclient.Page[Customer], error) {
	return apiclient.List[Customer](ctx, s.api, "/customers", params)
}

// Get fetches one customer.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	if err := s.api.Get(ctx, "/customers/"+url.PathEscape(id), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create stores a new customer.
func (s *Service) Create(ctx context.Context, d Draft) (*Customer, error) {
	var c Customer
	if err := s.api.Post(ctx, "/customers", d, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update replaces the editable fields of a customer.
func (s *Service) Update(ctx context.Context, id string, d Draft) (*Customer, error) {
	var c Customer
	if err := s.api.Put(ctx, "/customers/"+url.PathEscape(id), d, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, "/customers/"+url.PathEscape(id))
}
