package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/customers"
	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/viewmodel"
)

type fakeCustomers struct {
	total  int
	err    error
	params []customers.ListParams
}

func (f *fakeCustomers) List(ctx context.Context, p customers.ListParams) (apiclient.Page[customers.Customer], error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return apiclient.Page[customers.Customer]{}, f.err
	}
	return apiclient.Page[customers.Customer]{Items: []customers.Customer{{ID: "c-1"}}, Total: f.total}, nil
}

type fakeInvoices struct {
	total  int
	items  []invoices.Invoice
	params []invoices.ListParams
}

func (f *fakeInvoices) List(ctx context.Context, p invoices.ListParams) (apiclient.Page[invoices.Invoice], error) {
	f.params = append(f.params, p)
	return apiclient.Page[invoices.Invoice]{Items: f.items, Total: f.total}, nil
}

// ==== dashboard ====

func TestDashboardLoadsEveryPanel(t *testing.T) {
	cust := &fakeCustomers{total: 42}
	inv := &fakeInvoices{total: 120, items: []invoices.Invoice{{ID: "inv-9"}, {ID: "inv-8"}}}
	src := &fakeSource{
		revenue:   []MonthlyRevenue{{Month: "2024-01", Revenue: 900}},
		breakdown: StatusBreakdown{invoices.StatusDraft: 4, invoices.StatusPaid: 100, invoices.StatusOverdue: 6, invoices.StatusSent: 10},
		top:       []TopCustomer{{CustomerID: "c-1", TotalRevenue: 900, InvoiceCount: 3}},
	}
	vm := NewDashboardViewModel(cust, inv, src)

	require.NoError(t, vm.Load(context.Background(), 6, 3))
	state := vm.State()
	assert.Equal(t, Stats{TotalCustomers: 42, TotalInvoices: 120, DraftInvoices: 4, PaidInvoices: 100, OverdueInvoices: 6}, state.Stats)
	assert.Len(t, state.RecentInvoices, 2)
	assert.Len(t, state.Revenue, 1)
	assert.Len(t, state.TopCustomers, 1)
	assert.Empty(t, state.Error)

	require.Len(t, inv.params, 1)
	assert.Equal(t, invoices.ListParams{Page: 0, Size: RecentCount, SortBy: "issueDate", SortDirection: "DESC"}, inv.params[0])
	assert.Equal(t, []customers.ListParams{{Page: 0, Size: 1}}, cust.params)
	assert.Equal(t, []int{6}, src.months)
	assert.Equal(t, []int{3}, src.limit)
}

func TestDashboardFailureLeavesEmptyState(t *testing.T) {
	cust := &fakeCustomers{err: &apiclient.Error{Status: 503}}
	vm := NewDashboardViewModel(cust, &fakeInvoices{}, &fakeSource{})

	err := vm.Load(context.Background(), 0, 0)
	var lerr *viewmodel.LoadError
	require.ErrorAs(t, err, &lerr)
	state := vm.State()
	assert.Equal(t, "Failed to load dashboard", state.Error)
	assert.Zero(t, state.Stats)
	assert.NotNil(t, state.RecentInvoices)
}

// ==== reports ====

func TestReportsTotalsAndSlices(t *testing.T) {
	src := &fakeSource{
		revenue: []MonthlyRevenue{{Month: "2024-01", Revenue: 100.25}, {Month: "2024-02", Revenue: 50.5}},
		breakdown: StatusBreakdown{
			invoices.StatusPaid:      3,
			invoices.StatusDraft:     1,
			invoices.StatusCancelled: 0,
			"ARCHIVED":               2,
		},
	}
	vm := NewReportsViewModel(src)

	require.NoError(t, vm.Load(context.Background(), 6))
	state := vm.State()
	assert.Equal(t, 6, state.Months)
	assert.InDelta(t, 150.75, state.TotalRevenue, 1e-9)
	assert.Equal(t, 6, state.TotalInvoices)
	assert.Equal(t, []StatusSlice{
		{Status: invoices.StatusDraft, Count: 1},
		{Status: invoices.StatusPaid, Count: 3},
		{Status: "ARCHIVED", Count: 2},
	}, state.StatusSlices)
	assert.NotNil(t, state.TopCustomers)
	assert.Equal(t, []int{DefaultLimit}, src.limit)
}

func TestReportsFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	vm := NewReportsViewModel(src)

	err := vm.Load(context.Background(), 0)
	require.Error(t, err)
	state := vm.State()
	assert.Equal(t, "Failed to load analytics data. Please try again.", state.Error)
	assert.Equal(t, DefaultMonths, state.Months)
	assert.Empty(t, state.StatusSlices)
}
