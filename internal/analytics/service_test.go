package analytics

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osgiliath/console/internal/invoices"
)

type fakeSource struct {
	mu             sync.Mutex
	revenue        []MonthlyRevenue
	breakdown      StatusBreakdown
	top            []TopCustomer
	err            error
	months, limit  []int
	breakdownCalls int
}

func (f *fakeSource) RevenueOverTime(ctx context.Context, months int) ([]MonthlyRevenue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.months = append(f.months, months)
	return f.revenue, f.err
}

func (f *fakeSource) StatusBreakdown(ctx context.Context) (StatusBreakdown, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breakdownCalls++
	return f.breakdown, f.err
}

func (f *fakeSource) TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = append(f.limit, limit)
	return f.top, f.err
}

func TestServiceAppliesDefaults(t *testing.T) {
	src := &fakeSource{}
	cache, _ := newTestCache(t)
	svc := NewService(src, cache)
	ctx := context.Background()

	revenue, err := svc.RevenueOverTime(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, revenue)
	top, err := svc.TopCustomers(ctx, -1)
	require.NoError(t, err)
	assert.NotNil(t, top)
	breakdown, err := svc.StatusBreakdown(ctx)
	require.NoError(t, err)
	assert.NotNil(t, breakdown)

	assert.Equal(t, []int{DefaultMonths}, src.months)
	assert.Equal(t, []int{DefaultLimit}, src.limit)
}

func TestServiceCachesUntilInvalidated(t *testing.T) {
	src := &fakeSource{breakdown: StatusBreakdown{invoices.StatusPaid: 2}}
	cache, _ := newTestCache(t)
	svc := NewService(src, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := svc.StatusBreakdown(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Count(invoices.StatusPaid))
	}
	assert.Equal(t, 1, src.breakdownCalls)

	src.breakdown = StatusBreakdown{invoices.StatusPaid: 3}
	cache.Invalidate(ctx)
	got, err := svc.StatusBreakdown(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Count(invoices.StatusPaid))
	assert.Equal(t, 2, src.breakdownCalls)
}

func TestServiceKeysByWindow(t *testing.T) {
	src := &fakeSource{revenue: []MonthlyRevenue{{Month: "2024-01", Revenue: 1}}}
	cache, _ := newTestCache(t)
	svc := NewService(src, cache)
	ctx := context.Background()

	_, err := svc.RevenueOverTime(ctx, 6)
	require.NoError(t, err)
	_, err = svc.RevenueOverTime(ctx, 6)
	require.NoError(t, err)
	_, err = svc.RevenueOverTime(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 3}, src.months)
}
