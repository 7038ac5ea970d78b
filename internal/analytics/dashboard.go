package analytics

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/customers"
	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/viewmodel"
)

// CustomerLister is the slice of the customer service the dashboard reads.
type CustomerLister interface {
	List(ctx context.Context, params customers.ListParams) (apiclient.Page[customers.Customer], error)
}

// InvoiceLister is the slice of the invoice service the dashboard reads.
type InvoiceLister interface {
	List(ctx context.Context, params invoices.ListParams) (apiclient.Page[invoices.Invoice], error)
}

// Aggregates is what the dashboard needs from the analytics service.
type Aggregates interface {
	RevenueOverTime(ctx context.Context, months int) ([]MonthlyRevenue, error)
	StatusBreakdown(ctx context.Context) (StatusBreakdown, error)
	TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error)
}

// Stats are the headline counters. Status counts come from the backend
// breakdown so they cover every invoice, not just one page.
type Stats struct {
	TotalCustomers  int `json:"totalCustomers"`
	TotalInvoices   int `json:"totalInvoices"`
	DraftInvoices   int `json:"draftInvoices"`
	PaidInvoices    int `json:"paidInvoices"`
	OverdueInvoices int `json:"overdueInvoices"`
}

// DashboardState is what the dashboard page renders.
type DashboardState struct {
	Stats           Stats              `json:"stats"`
	RecentInvoices  []invoices.Invoice `json:"recentInvoices"`
	Revenue         []MonthlyRevenue   `json:"revenue"`
	StatusBreakdown StatusBreakdown    `json:"statusBreakdown"`
	TopCustomers    []TopCustomer      `json:"topCustomers"`
	Error           string             `json:"error,omitempty"`
}

// DashboardViewModel loads every dashboard panel concurrently.
type DashboardViewModel struct {
	customers  CustomerLister
	invoices   InvoiceLister
	aggregates Aggregates
	seq        viewmodel.Sequence

	mu    sync.Mutex
	state DashboardState
}

// NewDashboardViewModel constructs a DashboardViewModel.
func NewDashboardViewModel(c CustomerLister, i InvoiceLister, a Aggregates) *DashboardViewModel {
	return &DashboardViewModel{customers: c, invoices: i, aggregates: a, state: emptyDashboard()}
}

func emptyDashboard() DashboardState {
	return DashboardState{
		RecentInvoices:  []invoices.Invoice{},
		Revenue:         []MonthlyRevenue{},
		StatusBreakdown: StatusBreakdown{},
		TopCustomers:    []TopCustomer{},
	}
}

// State returns a snapshot for rendering.
func (vm *DashboardViewModel) State() DashboardState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Load fetches counters, recent invoices and aggregates. Any failure
// leaves an empty dashboard with an error message.
func (vm *DashboardViewModel) Load(ctx context.Context, months, limit int) error {
	n := vm.seq.Next()
	next := emptyDashboard()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := vm.customers.List(gctx, customers.ListParams{Page: 0, Size: 1})
		if err != nil {
			return err
		}
		next.Stats.TotalCustomers = page.Total
		return nil
	})
	g.Go(func() error {
		page, err := vm.invoices.List(gctx, invoices.ListParams{
			Page:          0,
			Size:          RecentCount,
			SortBy:        invoices.DefaultSortBy,
			SortDirection: invoices.DefaultSortDirection,
		})
		if err != nil {
			return err
		}
		next.Stats.TotalInvoices = page.Total
		next.RecentInvoices = page.Items
		return nil
	})
	g.Go(func() error {
		breakdown, err := vm.aggregates.StatusBreakdown(gctx)
		if err != nil {
			return err
		}
		next.StatusBreakdown = breakdown
		return nil
	})
	g.Go(func() error {
		revenue, err := vm.aggregates.RevenueOverTime(gctx, months)
		if err != nil {
			return err
		}
		next.Revenue = revenue
		return nil
	})
	g.Go(func() error {
		top, err := vm.aggregates.TopCustomers(gctx, limit)
		if err != nil {
			return err
		}
		next.TopCustomers = top
		return nil
	})
	err := g.Wait()

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil {
		lerr := viewmodel.NewLoadError("load dashboard", "Failed to load dashboard", err)
		if vm.seq.Current(n) {
			vm.state = emptyDashboard()
			vm.state.Error = lerr.Message
		}
		return lerr
	}
	if !vm.seq.Current(n) {
		return nil
	}
	next.Stats.DraftInvoices = next.StatusBreakdown.Count(invoices.StatusDraft)
	next.Stats.PaidInvoices = next.StatusBreakdown.Count(invoices.StatusPaid)
	next.Stats.OverdueInvoices = next.StatusBreakdown.Count(invoices.StatusOverdue)
	vm.state = next
	return nil
}
