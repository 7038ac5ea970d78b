package analytics

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/viewmodel"
)

// StatusSlice is one non-empty segment of the status chart.
type StatusSlice struct {
	Status invoices.Status `json:"status"`
	Count  int             `json:"count"`
}

// ReportsState is what the reports page renders.
type ReportsState struct {
	Months        int              `json:"months"`
	Revenue       []MonthlyRevenue `json:"revenue"`
	TotalRevenue  float64          `json:"totalRevenue"`
	StatusSlices  []StatusSlice    `json:"statusSlices"`
	TotalInvoices int              `json:"totalInvoices"`
	TopCustomers  []TopCustomer    `json:"topCustomers"`
	Error         string           `json:"error,omitempty"`
}

// ReportsViewModel loads the analytics aggregates for a chosen window.
type ReportsViewModel struct {
	aggregates Aggregates
	seq        viewmodel.Sequence

	mu    sync.Mutex
	state ReportsState
}

// NewReportsViewModel constructs a ReportsViewModel.
func NewReportsViewModel(a Aggregates) *ReportsViewModel {
	return &ReportsViewModel{aggregates: a, state: emptyReports(DefaultMonths)}
}

func emptyReports(months int) ReportsState {
	return ReportsState{
		Months:       months,
		Revenue:      []MonthlyRevenue{},
		StatusSlices: []StatusSlice{},
		TopCustomers: []TopCustomer{},
	}
}

// State returns a snapshot for rendering.
func (vm *ReportsViewModel) State() ReportsState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Load fetches revenue for the last months months, the status breakdown
// and the top customers together.
func (vm *ReportsViewModel) Load(ctx context.Context, months int) error {
	if months <= 0 {
		months = DefaultMonths
	}
	n := vm.seq.Next()
	var (
		revenue   []MonthlyRevenue
		breakdown StatusBreakdown
		top       []TopCustomer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		revenue, err = vm.aggregates.RevenueOverTime(gctx, months)
		return err
	})
	g.Go(func() (err error) {
		breakdown, err = vm.aggregates.StatusBreakdown(gctx)
		return err
	})
	g.Go(func() (err error) {
		top, err = vm.aggregates.TopCustomers(gctx, DefaultLimit)
		return err
	})
	err := g.Wait()

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil {
		lerr := viewmodel.NewLoadError("load reports", "Failed to load analytics data. Please try again.", err)
		if vm.seq.Current(n) {
			vm.state = emptyReports(months)
			vm.state.Error = lerr.Message
		}
		return lerr
	}
	if !vm.seq.Current(n) {
		return nil
	}

	next := emptyReports(months)
	if revenue != nil {
		next.Revenue = revenue
	}
	if top != nil {
		next.TopCustomers = top
	}
	for _, m := range next.Revenue {
		next.TotalRevenue += m.Revenue
	}
	next.StatusSlices, next.TotalInvoices = statusSlices(breakdown)
	vm.state = next
	return nil
}

// statusSlices lists non-zero statuses in lifecycle order, then any status the
// backend reports that the console does not know, by name.
func statusSlices(b StatusBreakdown) ([]StatusSlice, int) {
	out := []StatusSlice{}
	total := 0
	seen := map[invoices.Status]bool{}
	for _, s := range invoices.Statuses {
		seen[s] = true
		if c := b.Count(s); c > 0 {
			out = append(out, StatusSlice{Status: s, Count: c})
			total += c
		}
	}
	var unknown []invoices.Status
	for s, c := range b {
		if !seen[s] && c > 0 {
			unknown = append(unknown, s)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	for _, s := range unknown {
		out = append(out, StatusSlice{Status: s, Count: b[s]})
		total += b[s]
	}
	return out, total
}
