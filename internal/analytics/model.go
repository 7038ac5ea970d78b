package analytics

import "github.com/osgiliath/console/internal/invoices"

// Defaults applied when a caller does not ask for a specific window.
const (
	DefaultMonths = 12
	DefaultLimit  = 10
	RecentCount   = 5
)

// MonthlyRevenue is revenue from paid invoices in one calendar month
// ("2024-01").
type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// TopCustomer ranks a customer by revenue from paid invoices.
type TopCustomer struct {
	CustomerID   string  `json:"customerId"`
	CustomerName string  `json:"customerName"`
	TotalRevenue float64 `json:"totalRevenue"`
	InvoiceCount int     `json:"invoiceCount"`
}

// StatusBreakdown counts invoices per status.
type StatusBreakdown map[invoices.Status]int

// Count returns the number of invoices in status s.
func (b StatusBreakdown) Count(s invoices.Status) int {
	if b == nil {
		return 0
	}
	return b[s]
}
