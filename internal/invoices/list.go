package invoices

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/shared"
	"github.com/osgiliath/console/internal/viewmodel"
)

const (
	// ListPath is the console path the list query is serialised onto.
	ListPath = "/invoices"

	DefaultSortBy        = "issueDate"
	DefaultSortDirection = "DESC"
)

// SortFields are the columns the backend can order by.
var SortFields = []string{"invoiceNumber", "customerName", "issueDate", "dueDate", "status", "totalAmount", "balanceDue"}

// Lister is what the list view-model needs from the backend.
type Lister interface {
	List(ctx context.Context, params ListParams) (apiclient.Page[Invoice], error)
	Send(ctx context.Context, id string) (*Invoice, error)
}

// Query is the composite list state: filters, sort and page. It is
// compared as a whole to decide whether anything changed.
type Query struct {
	Status        string `schema:"status,omitempty" json:"status,omitempty"`
	CustomerID    string `schema:"customerId,omitempty" json:"customerId,omitempty"`
	FromDate      string `schema:"fromDate,omitempty" json:"fromDate,omitempty"`
	ToDate        string `schema:"toDate,omitempty" json:"toDate,omitempty"`
	SortBy        string `schema:"sortBy,omitempty" json:"sortBy"`
	SortDirection string `schema:"sortDirection,omitempty" json:"sortDirection"`
	Page          int    `schema:"page,omitempty" json:"page"`
}

// DefaultQuery is the query of an invoice list opened without parameters.
func DefaultQuery() Query {
	return Query{SortBy: DefaultSortBy, SortDirection: DefaultSortDirection, Page: 1}
}

var queryDefaults = url.Values{
	"sortBy":        {DefaultSortBy},
	"sortDirection": {DefaultSortDirection},
	"page":          {"1"},
}

// ActiveFilterCount counts the filters that differ from their default.
func (q Query) ActiveFilterCount() int {
	n := 0
	for _, v := range []string{q.Status, q.CustomerID, q.FromDate, q.ToDate} {
		if v != "" {
			n++
		}
	}
	return n
}

// URL renders the query onto ListPath, omitting defaults.
func (q Query) URL() string {
	values, err := viewmodel.EncodeQuery(q, queryDefaults)
	if err != nil {
		return ListPath
	}
	return viewmodel.BuildURL(ListPath, values)
}

func (q Query) params() ListParams {
	return ListParams{
		Page:          shared.ZeroBased(q.Page),
		Size:          shared.DefaultPageSize,
		Status:        q.Status,
		CustomerID:    q.CustomerID,
		FromDate:      q.FromDate,
		ToDate:        q.ToDate,
		SortBy:        q.SortBy,
		SortDirection: q.SortDirection,
	}
}

func (q Query) normalised() Query {
	q.Status = strings.ToUpper(strings.TrimSpace(q.Status))
	if q.Status != "" && !Status(q.Status).Valid() {
		q.Status = ""
	}
	q.CustomerID = strings.TrimSpace(q.CustomerID)
	q.FromDate = strings.TrimSpace(q.FromDate)
	q.ToDate = strings.TrimSpace(q.ToDate)
	if !knownSortField(q.SortBy) {
		q.SortBy = DefaultSortBy
	}
	q.SortDirection = strings.ToUpper(q.SortDirection)
	if q.SortDirection != "ASC" && q.SortDirection != "DESC" {
		q.SortDirection = DefaultSortDirection
	}
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

func knownSortField(f string) bool {
	for _, known := range SortFields {
		if f == known {
			return true
		}
	}
	return false
}

// ListState is what an invoice list page renders.
type ListState struct {
	Query             Query             `json:"query"`
	Items             []Invoice         `json:"items"`
	Pagination        shared.Pagination `json:"pagination"`
	ActiveFilterCount int               `json:"activeFilterCount"`
	URL               string            `json:"url"`
	Error             string            `json:"error,omitempty"`
}

// ListViewModel owns the composite query of the invoice list and keeps it
// in step with the URL and the fetched page.
type ListViewModel struct {
	repo Lister
	nav  viewmodel.Navigator
	seq  viewmodel.Sequence

	mu    sync.Mutex
	query Query
	items []Invoice
	total int
	err   string
}

// NewListViewModel constructs a list on the default query. nav may be nil.
func NewListViewModel(repo Lister, nav viewmodel.Navigator) *ListViewModel {
	return &ListViewModel{repo: repo, nav: nav, query: DefaultQuery(), items: []Invoice{}}
}

// Restore initialises the query from URL values without fetching.
// Unknown or malformed values fall back to their defaults.
func (vm *ListViewModel) Restore(values url.Values) {
	q := DefaultQuery()
	_ = viewmodel.DecodeQuery(&q, values)
	vm.mu.Lock()
	vm.query = q.normalised()
	vm.mu.Unlock()
}

// Query returns the current query.
func (vm *ListViewModel) Query() Query {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.query
}

// URL renders the current query.
func (vm *ListViewModel) URL() string {
	return vm.Query().URL()
}

// ActiveFilterCount counts the non-default filters of the current query.
func (vm *ListViewModel) ActiveFilterCount() int {
	return vm.Query().ActiveFilterCount()
}

// TotalPages is ceil(total/pageSize), never below 1.
func (vm *ListViewModel) TotalPages() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return shared.NewPagination(vm.query.Page, shared.DefaultPageSize, vm.total).TotalPages
}

// State returns a snapshot for rendering.
func (vm *ListViewModel) State() ListState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	items := make([]Invoice, len(vm.items))
	copy(items, vm.items)
	return ListState{
		Query:             vm.query,
		Items:             items,
		Pagination:        shared.NewPagination(vm.query.Page, shared.DefaultPageSize, vm.total),
		ActiveFilterCount: vm.query.ActiveFilterCount(),
		URL:               vm.query.URL(),
		Error:             vm.err,
	}
}

// Refresh fetches the page for the current query.
func (vm *ListViewModel) Refresh(ctx context.Context) error {
	return vm.fetch(ctx, vm.Query())
}

// FilterByStatus filters on one status; "" clears the filter.
func (vm *ListViewModel) FilterByStatus(ctx context.Context, status Status) error {
	return vm.apply(ctx, func(q Query) Query {
		q.Status = string(status)
		q.Page = 1
		return q
	})
}

// FilterByCustomer filters on one customer; "" clears the filter.
func (vm *ListViewModel) FilterByCustomer(ctx context.Context, customerID string) error {
	return vm.apply(ctx, func(q Query) Query {
		q.CustomerID = customerID
		q.Page = 1
		return q
	})
}

// FilterByDateRange filters on issue dates; either bound may be "".
func (vm *ListViewModel) FilterByDateRange(ctx context.Context, from, to string) error {
	return vm.apply(ctx, func(q Query) Query {
		q.FromDate = from
		q.ToDate = to
		q.Page = 1
		return q
	})
}

// HandleSort toggles the direction of the active sort field, or makes a
// new field active in descending order.
func (vm *ListViewModel) HandleSort(ctx context.Context, field string) error {
	return vm.apply(ctx, func(q Query) Query {
		if q.SortBy == field {
			if q.SortDirection == "ASC" {
				q.SortDirection = "DESC"
			} else {
				q.SortDirection = "ASC"
			}
		} else {
			q.SortBy = field
			q.SortDirection = "DESC"
		}
		q.Page = 1
		return q
	})
}

// ClearFilters drops every filter and returns to page 1. Sort is kept.
func (vm *ListViewModel) ClearFilters(ctx context.Context) error {
	return vm.apply(ctx, func(q Query) Query {
		q.Status, q.CustomerID, q.FromDate, q.ToDate = "", "", "", ""
		q.Page = 1
		return q
	})
}

// NextPage moves forward only when page*pageSize < total.
func (vm *ListViewModel) NextPage(ctx context.Context) error {
	return vm.apply(ctx, func(q Query) Query {
		if q.Page*shared.DefaultPageSize < vm.total {
			q.Page++
		}
		return q
	})
}

// PrevPage moves back only when page > 1.
func (vm *ListViewModel) PrevPage(ctx context.Context) error {
	return vm.apply(ctx, func(q Query) Query {
		if q.Page > 1 {
			q.Page--
		}
		return q
	})
}

// SendInvoice sends a draft from the list and re-fetches the page.
func (vm *ListViewModel) SendInvoice(ctx context.Context, id string) error {
	if _, err := vm.repo.Send(ctx, id); err != nil {
		serr := viewmodel.NewSubmitError("send invoice", "Failed to send invoice", err)
		vm.mu.Lock()
		vm.err = serr.Message
		vm.mu.Unlock()
		return serr
	}
	return vm.Refresh(ctx)
}

// apply transitions the query. An unchanged query fires nothing; a
// changed one navigates to its URL and re-fetches.
func (vm *ListViewModel) apply(ctx context.Context, step func(Query) Query) error {
	vm.mu.Lock()
	next := step(vm.query).normalised()
	if next == vm.query {
		vm.mu.Unlock()
		return nil
	}
	vm.query = next
	vm.mu.Unlock()

	if vm.nav != nil {
		vm.nav.Navigate(next.URL())
	}
	return vm.fetch(ctx, next)
}

func (vm *ListViewModel) fetch(ctx context.Context, q Query) error {
	n := vm.seq.Next()
	page, err := vm.repo.List(ctx, q.params())

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.seq.Current(n) {
		return nil
	}
	if err != nil {
		lerr := viewmodel.NewLoadError("list invoices", "Failed to load invoices", err)
		vm.items = []Invoice{}
		vm.total = 0
		vm.err = lerr.Message
		return lerr
	}
	vm.items = page.Items
	vm.total = page.Total
	vm.err = ""
	return nil
}
