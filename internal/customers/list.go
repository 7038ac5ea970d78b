package customers

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/shared"
	"github.com/osgiliath/console/internal/viewmodel"
)

// ListPath is the console path the list query is serialised onto.
const ListPath = "/customers"

// Lister is what the list view-model needs from the backend.
type Lister interface {
	List(ctx context.Context, params ListParams) (apiclient.Page[Customer], error)
	Delete(ctx context.Context, id string) error
}

// ListQuery is the URL-synchronised state of the customer list.
type ListQuery struct {
	Search string `schema:"search,omitempty"`
	Page   int    `schema:"page,omitempty"`
}

var listDefaults = url.Values{"page": {"1"}}

// ListState is what a customer list page renders.
type ListState struct {
	Query      ListQuery         `json:"query"`
	Items      []Customer        `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
	URL        string            `json:"url"`
	Error      string            `json:"error,omitempty"`
}

// ListViewModel pages through customers with a free-text search.
type ListViewModel struct {
	repo  Lister
	nav   viewmodel.Navigator
	seq   viewmodel.Sequence
	mu    sync.Mutex
	query ListQuery
	items []Customer
	total int
	err   string
}

// NewListViewModel constructs a list view-model on page 1 with no search.
// nav may be nil.
func NewListViewModel(repo Lister, nav viewmodel.Navigator) *ListViewModel {
	return &ListViewModel{repo: repo, nav: nav, query: ListQuery{Page: 1}, items: []Customer{}}
}

// Restore initialises the query from URL values without fetching.
func (vm *ListViewModel) Restore(values url.Values) {
	var q ListQuery
	_ = viewmodel.DecodeQuery(&q, values)
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	vm.mu.Lock()
	vm.query = q
	vm.mu.Unlock()
}

// Query returns the current query.
func (vm *ListViewModel) Query() ListQuery {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.query
}

// URL renders the current query, omitting defaults.
func (vm *ListViewModel) URL() string {
	return encodeURL(vm.Query())
}

// State returns a snapshot for rendering.
func (vm *ListViewModel) State() ListState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	items := make([]Customer, len(vm.items))
	copy(items, vm.items)
	return ListState{
		Query:      vm.query,
		Items:      items,
		Pagination: shared.NewPagination(vm.query.Page, shared.DefaultPageSize, vm.total),
		URL:        encodeURL(vm.query),
		Error:      vm.err,
	}
}

// Refresh fetches the page for the current query.
func (vm *ListViewModel) Refresh(ctx context.Context) error {
	return vm.fetch(ctx, vm.Query())
}

// Search filters by name or email and returns to page 1.
func (vm *ListViewModel) Search(ctx context.Context, term string) error {
	return vm.apply(ctx, func(q ListQuery) ListQuery {
		q.Search = strings.TrimSpace(term)
		q.Page = 1
		return q
	})
}

// NextPage moves forward when another page exists.
func (vm *ListViewModel) NextPage(ctx context.Context) error {
	return vm.apply(ctx, func(q ListQuery) ListQuery {
		if q.Page*shared.DefaultPageSize < vm.total {
			q.Page++
		}
		return q
	})
}

// PrevPage moves back unless already on page 1.
func (vm *ListViewModel) PrevPage(ctx context.Context) error {
	return vm.apply(ctx, func(q ListQuery) ListQuery {
		if q.Page > 1 {
			q.Page--
		}
		return q
	})
}

// Delete removes a customer and reloads the current page.
func (vm *ListViewModel) Delete(ctx context.Context, id string) error {
	if err := vm.repo.Delete(ctx, id); err != nil {
		serr := viewmodel.NewSubmitError("delete customer", "Failed to delete customer", err)
		vm.mu.Lock()
		vm.err = serr.Message
		vm.mu.Unlock()
		return serr
	}
	return vm.Refresh(ctx)
}

// apply runs a query transition; an unchanged query fires nothing.
func (vm *ListViewModel) apply(ctx context.Context, step func(ListQuery) ListQuery) error {
	vm.mu.Lock()
	next := step(vm.query)
	if next == vm.query {
		vm.mu.Unlock()
		return nil
	}
	vm.query = next
	vm.mu.Unlock()

	if vm.nav != nil {
		vm.nav.Navigate(encodeURL(next))
	}
	return vm.fetch(ctx, next)
}

func (vm *ListViewModel) fetch(ctx context.Context, q ListQuery) error {
	n := vm.seq.Next()
	page, err := vm.repo.List(ctx, ListParams{
		Page:   shared.ZeroBased(q.Page),
		Size:   shared.DefaultPageSize,
		Search: q.Search,
	})

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.seq.Current(n) {
		return nil
	}
	if err != nil {
		lerr := viewmodel.NewLoadError("list customers", "Failed to load customers", err)
		vm.items = []Customer{}
		vm.total = 0
		vm.err = lerr.Message
		return lerr
	}
	vm.items = page.Items
	vm.total = page.Total
	vm.err = ""
	return nil
}

func encodeURL(q ListQuery) string {
	values, err := viewmodel.EncodeQuery(q, listDefaults)
	if err != nil {
		// The query only holds strings and ints.
		values = url.Values{"page": {strconv.Itoa(q.Page)}}
	}
	return viewmodel.BuildURL(ListPath, values)
}
