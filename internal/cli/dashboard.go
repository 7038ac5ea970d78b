package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/osgiliath/console/internal/analytics"
	"github.com/osgiliath/console/internal/customers"
	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/shared"
)

func newDashboardCommand(s *session) *cobra.Command {
	var months, limit int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show headline counts, recent invoices and top customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.requireLogin(); err != nil {
				return err
			}
			vm := analytics.NewDashboardViewModel(
				customers.NewService(s.api),
				invoices.NewService(s.api),
				analytics.NewService(analytics.NewClient(s.api), nil),
			)
			if err := vm.Load(cmd.Context(), months, limit); err != nil {
				return err
			}
			state := vm.State()
			if s.out.jsonMode() {
				return s.out.JSON(state)
			}

			st := state.Stats
			_ = s.out.Table(
				[]string{"CUSTOMERS", "INVOICES", "DRAFT", "PAID", "OVERDUE"},
				[][]string{{
					strconv.Itoa(st.TotalCustomers),
					strconv.Itoa(st.TotalInvoices),
					strconv.Itoa(st.DraftInvoices),
					strconv.Itoa(st.PaidInvoices),
					strconv.Itoa(st.OverdueInvoices),
				}},
			)

			s.out.Linef("\nRecent invoices")
			recent := make([][]string, 0, len(state.RecentInvoices))
			for _, inv := range state.RecentInvoices {
				recent = append(recent, []string{inv.InvoiceNumber, customerLabel(inv.CustomerName, inv.CustomerID), inv.IssueDate, string(inv.Status), shared.FormatCurrency(inv.TotalAmount)})
			}
			_ = s.out.Table([]string{"NUMBER", "CUSTOMER", "ISSUED", "STATUS", "TOTAL"}, recent)

			s.out.Linef("\nTop customers")
			top := make([][]string, 0, len(state.TopCustomers))
			for _, c := range state.TopCustomers {
				top = append(top, []string{c.CustomerName, strconv.Itoa(c.InvoiceCount), shared.FormatCurrency(c.TotalRevenue)})
			}
			return s.out.Table([]string{"CUSTOMER", "INVOICES", "REVENUE"}, top)
		},
	}
	cmd.Flags().IntVar(&months, "months", analytics.DefaultMonths, "months of revenue history")
	cmd.Flags().IntVar(&limit, "limit", analytics.DefaultLimit, "number of top customers")
	return cmd
}
