package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/payments"
	"github.com/osgiliath/console/internal/shared"
)

func newPaymentsCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payments",
		Aliases: []string{"payment", "pay"},
		Short:   "Record payments and show payment history",
	}
	cmd.AddCommand(newPaymentsListCommand(s), newPaymentsRecordCommand(s))
	return cmd
}

func (s *session) paymentForm() *payments.FormViewModel {
	return payments.NewFormViewModel(
		invoices.NewService(s.api),
		payments.NewService(s.api),
		payments.WithClock(s.opts.Now),
	)
}

func newPaymentsListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list INVOICE_ID",
		Short: "Show the payment history of an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireLogin(); err != nil {
				return err
			}
			vm := s.paymentForm()
			if err := vm.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			state := vm.State()
			if s.out.jsonMode() {
				return s.out.JSON(state)
			}
			s.printPayments(state)
			return nil
		},
	}
}

func (s *session) printPayments(state payments.FormState) {
	rows := make([][]string, 0, len(state.Payments))
	for _, p := range state.Payments {
		rows = append(rows, []string{p.PaymentDate, string(p.PaymentMethod), shared.FormatCurrency(p.Amount), p.ReferenceNumber})
	}
	_ = s.out.Table([]string{"DATE", "METHOD", "AMOUNT", "REFERENCE"}, rows)
	if inv := state.Invoice; inv != nil {
		s.out.Linef("\nInvoice %s (%s), balance due %s", inv.InvoiceNumber, inv.Status, shared.FormatCurrency(inv.BalanceDue))
	}
}

func newPaymentsRecordCommand(s *session) *cobra.Command {
	var amount, date, method, reference string
	methods := make([]string, len(payments.Methods))
	for i, m := range payments.Methods {
		methods[i] = string(m)
	}
	cmd := &cobra.Command{
		Use:   "record INVOICE_ID",
		Short: "Record a payment against an invoice",
		Example: `  invoicectl payments record 42 --amount 1,250.00 --method BANK_TRANSFER --reference TX-991
  invoicectl payments record 42 --amount 80 --date 2024-03-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireLogin(); err != nil {
				return err
			}
			value, err := shared.ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("amount %q is not a number", amount)
			}
			if date == "" {
				date = s.opts.Now().Format(time.DateOnly)
			}

			vm := s.paymentForm()
			if err := vm.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			p, err := vm.Record(cmd.Context(), payments.Candidate{
				Amount:          value,
				PaymentDate:     date,
				PaymentMethod:   payments.Method(strings.ToUpper(method)),
				ReferenceNumber: reference,
			})
			if p == nil {
				return err
			}
			if s.out.jsonMode() {
				if jerr := s.out.JSON(p); jerr != nil {
					return jerr
				}
				return err
			}
			s.out.Linef("Recorded %s on %s", shared.FormatCurrency(p.Amount), p.PaymentDate)
			if err != nil {
				// Stored, but the refreshed balance could not be fetched.
				return err
			}
			if inv := vm.State().Invoice; inv != nil {
				s.out.Linef("Invoice %s is %s, balance due %s", inv.InvoiceNumber, inv.Status, shared.FormatCurrency(inv.BalanceDue))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&amount, "amount", "", "amount paid; thousands separators are accepted")
	f.StringVar(&date, "date", "", "payment date YYYY-MM-DD (default today)")
	f.StringVar(&method, "method", string(payments.MethodBankTransfer), strings.Join(methods, ", "))
	f.StringVar(&reference, "reference", "", "cheque or transfer reference")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
