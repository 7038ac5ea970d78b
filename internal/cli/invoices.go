package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/shared"
)

func newInvoicesCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"invoice", "inv"},
		Short:   "Browse invoices and move them through their lifecycle",
	}
	cmd.AddCommand(
		newInvoicesListCommand(s),
		newInvoicesShowCommand(s),
		newInvoiceTransitionCommand(s, invoices.ActionSend, "Send a draft invoice to the customer"),
		newInvoiceTransitionCommand(s, invoices.ActionMarkPaid, "Mark a sent invoice as paid"),
		newInvoiceTransitionCommand(s, invoices.ActionCancel, "Cancel a sent invoice"),
		newInvoicesAddLinesCommand(s),
		newInvoicesPDFCommand(s),
	)
	return cmd
}

func newInvoicesListCommand(s *session) *cobra.Command {
	var q struct {
		status, customer, from, to, sortBy, direction string
		page                                          int
	}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices with filters and sorting",
		Example: `  invoicectl invoices list --status SENT
  invoicectl invoices list --from 2024-01-01 --to 2024-03-31 --sort totalAmount --dir ASC`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.requireLogin(); err != nil {
				return err
			}
			vm := invoices.NewListViewModel(invoices.NewService(s.api), nil)
			vm.Restore(url.Values{
				"status":        {strings.ToUpper(q.status)},
				"customerId":    {q.customer},
				"fromDate":      {q.from},
				"toDate":        {q.to},
				"sortBy":        {q.sortBy},
				"sortDirection": {strings.ToUpper(q.direction)},
				"page":          {strconv.Itoa(q.page)},
			})
			if err := vm.Refresh(cmd.Context()); err != nil {
				return err
			}
			state := vm.State()
			if s.out.jsonMode() {
				return s.out.JSON(state)
			}
			rows := make([][]string, 0, len(state.Items))
			for _, inv := range state.Items {
				rows = append(rows, []string{
					inv.ID,
					inv.InvoiceNumber,
					customerLabel(inv.CustomerName, inv.CustomerID),
					inv.IssueDate,
					inv.DueDate,
					string(inv.Status),
					shared.FormatCurrency(inv.TotalAmount),
					shared.FormatCurrency(inv.BalanceDue),
				})
			}
			if err := s.out.Table([]string{"ID", "NUMBER", "CUSTOMER", "ISSUED", "DUE", "STATUS", "TOTAL", "BALANCE"}, rows); err != nil {
				return err
			}
			p := state.Pagination
			s.out.Linef("\nPage %d of %d (%d invoices, %d filters)", p.Page, p.TotalPages, p.Total, state.ActiveFilterCount)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.status, "status", "", "DRAFT, SENT, PAID, OVERDUE or CANCELLED")
	f.StringVar(&q.customer, "customer", "", "customer id")
	f.StringVar(&q.from, "from", "", "issued on or after (YYYY-MM-DD)")
	f.StringVar(&q.to, "to", "", "issued on or before (YYYY-MM-DD)")
	f.StringVar(&q.sortBy, "sort", invoices.DefaultSortBy, "sort field: "+strings.Join(invoices.SortFields, ", "))
	f.StringVar(&q.direction, "dir", invoices.DefaultSortDirection, "ASC or DESC")
	f.IntVar(&q.page, "page", 1, "one-based page number")
	return cmd
}

// loadInvoice returns a form view-model holding invoice id.
func (s *session) loadInvoice(ctx context.Context, id string) (*invoices.FormViewModel, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	vm := invoices.NewFormViewModel(invoices.NewService(s.api))
	if err := vm.Load(ctx, id); err != nil {
		return nil, err
	}
	return vm, nil
}

func newInvoicesShowCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an invoice with its line items and available actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := s.loadInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := vm.State()
			if s.out.jsonMode() {
				return s.out.JSON(state)
			}
			s.printInvoice(state.Invoice, state.Actions)
			return nil
		},
	}
}

func (s *session) printInvoice(inv *invoices.Invoice, actions []invoices.Action) {
	s.out.Linef("Invoice %s (%s)", inv.InvoiceNumber, inv.Status)
	s.out.Linef("Customer: %s", customerLabel(inv.CustomerName, inv.CustomerID))
	s.out.Linef("Issued %s, due %s\n", inv.IssueDate, inv.DueDate)

	rows := make([][]string, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		rows = append(rows, []string{
			li.Description,
			strconv.FormatFloat(li.Quantity, 'f', -1, 64),
			shared.FormatCurrency(li.UnitPrice),
			shared.FormatCurrency(li.LineTotal),
		})
	}
	_ = s.out.Table([]string{"DESCRIPTION", "QTY", "UNIT PRICE", "TOTAL"}, rows)

	s.out.Linef("\nSubtotal %s  Tax %s  Total %s  Balance due %s",
		shared.FormatCurrency(inv.Subtotal),
		shared.FormatCurrency(inv.TaxAmount),
		shared.FormatCurrency(inv.TotalAmount),
		shared.FormatCurrency(inv.BalanceDue))
	if len(actions) > 0 {
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		s.out.Linef("Actions: %s", strings.Join(names, ", "))
	}
}

func newInvoiceTransitionCommand(s *session, action invoices.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := s.loadInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var inv *invoices.Invoice
			switch action {
			case invoices.ActionSend:
				inv, err = vm.Send(cmd.Context())
			case invoices.ActionMarkPaid:
				inv, err = vm.MarkPaid(cmd.Context())
			case invoices.ActionCancel:
				inv, err = vm.Cancel(cmd.Context())
			default:
				return fmt.Errorf("unsupported action %q", action)
			}
			if err != nil {
				return err
			}
			if s.out.jsonMode() {
				return s.out.JSON(inv)
			}
			s.out.Linef("Invoice %s is now %s", inv.InvoiceNumber, inv.Status)
			return nil
		},
	}
}

func newInvoicesAddLinesCommand(s *session) *cobra.Command {
	var specs []string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "add-lines ID",
		Short: "Add line items to a draft invoice",
		Long:  "Add line items to a draft invoice. Each --line is DESCRIPTION:QUANTITY:UNIT_PRICE; the lines are checked together and stored in order.",
		Example: `  invoicectl invoices add-lines 42 --line "Design:2:150" --line "Hosting, March:1:1,200"
  invoicectl invoices add-lines 42 --line "Design:2:150" --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patches := make([]invoices.Patch, 0, len(specs))
			for _, spec := range specs {
				p, err := parseLineSpec(spec)
				if err != nil {
					return err
				}
				patches = append(patches, p)
			}

			vm, err := s.loadInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, p := range patches {
				i, err := vm.AddDraftLineItem()
				if err != nil {
					return err
				}
				if err := vm.UpdateDraftLineItem(i, p); err != nil {
					return err
				}
			}
			if dryRun {
				s.out.Linef("Subtotal with %d new line(s) would be %s", len(patches), shared.FormatCurrency(vm.PreviewTotal()))
				return nil
			}

			inv, err := vm.SavePendingLineItems(cmd.Context())
			if inv == nil {
				return err
			}
			if s.out.jsonMode() {
				if jerr := s.out.JSON(inv); jerr != nil {
					return jerr
				}
				return err
			}
			s.printInvoice(inv, vm.State().Actions)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&specs, "line", nil, "line item as DESCRIPTION:QUANTITY:UNIT_PRICE (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the new subtotal without saving")
	_ = cmd.MarkFlagRequired("line")
	return cmd
}

// parseLineSpec reads DESCRIPTION:QUANTITY:UNIT_PRICE. The description may
// itself contain colons.
func parseLineSpec(spec string) (invoices.Patch, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 3 {
		return invoices.Patch{}, fmt.Errorf("line %q: want DESCRIPTION:QUANTITY:UNIT_PRICE", spec)
	}
	n := len(parts)
	desc := strings.Join(parts[:n-2], ":")
	qty, err := shared.ParseAmount(parts[n-2])
	if err != nil {
		return invoices.Patch{}, fmt.Errorf("line %q: quantity %q is not a number", spec, parts[n-2])
	}
	price, err := shared.ParseAmount(parts[n-1])
	if err != nil {
		return invoices.Patch{}, fmt.Errorf("line %q: unit price %q is not a number", spec, parts[n-1])
	}
	return invoices.Patch{Description: &desc, Quantity: &qty, UnitPrice: &price}, nil
}

func newInvoicesPDFCommand(s *session) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pdf ID",
		Short: "Download the invoice PDF",
		Long:  "Download the invoice PDF. Without --out the file is written to the current directory as invoice_<number>.pdf.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := s.loadInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := vm.ExportPDF(cmd.Context())
			if err != nil {
				return err
			}
			target := out
			if target == "" {
				target = doc.Filename
			}
			if out == "-" {
				_, err := s.opts.Out.Write(doc.Body)
				return err
			}
			if err := os.WriteFile(target, doc.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			abs, _ := filepath.Abs(target)
			s.out.Linef("Saved %s (%d bytes)", abs, len(doc.Body))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "destination file, - for stdout")
	return cmd
}
