// Package analytics serves the dashboard: backend aggregates cached in
// redis plus the counts and recent invoices shown next to them.
package analytics

import (
	"context"
	"strconv"

	"github.com/osgiliath/console/internal/apiclient"
)

// Source fetches aggregates from the backend.
type Source interface {
	RevenueOverTime(ctx context.Context, months int) ([]MonthlyRevenue, error)
	StatusBreakdown(ctx context.Context) (StatusBreakdown, error)
	TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error)
}

// Client maps the backend analytics endpoints.
type Client struct {
	api *apiclient.Client
}

// NewClient constructs a Client.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

type monthsParam struct {
	Months int `schema:"months"`
}

type limitParam struct {
	Limit int `schema:"limit"`
}

// RevenueOverTime returns monthly revenue for the last months months.
func (c *Client) RevenueOverTime(ctx context.Context, months int) ([]MonthlyRevenue, error) {
	var out []MonthlyRevenue
	if err := c.api.Get(ctx, "/analytics/revenue-over-time", monthsParam{Months: months}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StatusBreakdown returns invoice counts per status.
func (c *Client) StatusBreakdown(ctx context.Context) (StatusBreakdown, error) {
	out := StatusBreakdown{}
	if err := c.api.Get(ctx, "/analytics/status-breakdown", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TopCustomers returns the limit best customers by revenue.
func (c *Client) TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error) {
	var out []TopCustomer
	if err := c.api.Get(ctx, "/analytics/top-customers", limitParam{Limit: limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Service coordinates backend aggregate calls with the cache layer.
type Service struct {
	src   Source
	cache *Cache
}

// NewService wires a Source with a Cache helper.
func NewService(src Source, cache *Cache) *Service {
	return &Service{src: src, cache: cache}
}

// RevenueOverTime returns cached monthly revenue. months <= 0 means
// DefaultMonths.
func (s *Service) RevenueOverTime(ctx context.Context, months int) ([]MonthlyRevenue, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	key, err := s.cache.BuildKey(ctx, "analytics", "revenue", strconv.Itoa(months))
	if err != nil {
		return nil, err
	}
	var out []MonthlyRevenue
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.src.RevenueOverTime(ctx, months)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []MonthlyRevenue{}
	}
	return out, nil
}

// StatusBreakdown returns cached invoice counts per status.
func (s *Service) StatusBreakdown(ctx context.Context) (StatusBreakdown, error) {
	key, err := s.cache.BuildKey(ctx, "analytics", "status")
	if err != nil {
		return nil, err
	}
	out := StatusBreakdown{}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.src.StatusBreakdown(ctx)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = StatusBreakdown{}
	}
	return out, nil
}

// TopCustomers returns the cached top customers. limit <= 0 means
// DefaultLimit.
func (s *Service) TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	key, err := s.cache.BuildKey(ctx, "analytics", "top", strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	var out []TopCustomer
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.src.TopCustomers(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []TopCustomer{}
	}
	return out, nil
}
