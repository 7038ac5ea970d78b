package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/osgiliath/console/internal/customers"
)

func newCustomersCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "customers",
		Aliases: []string{"customer", "cust"},
		Short:   "List, create and delete customers",
	}
	cmd.AddCommand(newCustomersListCommand(s), newCustomersCreateCommand(s), newCustomersDeleteCommand(s))
	return cmd
}

func newCustomersListCommand(s *session) *cobra.Command {
	var (
		search string
		page   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers, ten per page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.requireLogin(); err != nil {
				return err
			}
			vm := customers.NewListViewModel(customers.NewService(s.api), nil)
			vm.Restore(url.Values{"search": {search}, "page": {strconv.Itoa(page)}})
			if err := vm.Refresh(cmd.Context()); err != nil {
				return err
			}
			state := vm.State()
			if s.out.jsonMode() {
				return s.out.JSON(state)
			}
			rows := make([][]string, 0, len(state.Items))
			for _, c := range state.Items {
				rows = append(rows, []string{c.ID, c.Name, c.Email, c.Phone})
			}
			if err := s.out.Table([]string{"ID", "NAME", "EMAIL", "PHONE"}, rows); err != nil {
				return err
			}
			p := state.Pagination
			s.out.Linef("\nPage %d of %d (%d customers)", p.Page, p.TotalPages, p.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name or email")
	cmd.Flags().IntVar(&page, "page", 1, "one-based page number")
	return cmd
}

func newCustomersCreateCommand(s *session) *cobra.Command {
	var d customers.Draft
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a customer",
		Example: `  invoicectl customers create --name "Acme" --email billing@acme.test`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.requireLogin(); err != nil {
				return err
			}
			created, err := customers.NewFormViewModel(customers.NewService(s.api)).Create(cmd.Context(), d)
			if err != nil {
				return err
			}
			if s.out.jsonMode() {
				return s.out.JSON(created)
			}
			s.out.Linef("Created customer %s (%s)", created.Name, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&d.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&d.Email, "email", "", "billing email")
	cmd.Flags().StringVar(&d.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&d.Address, "address", "", "postal address")
	return cmd
}

func newCustomersDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireLogin(); err != nil {
				return err
			}
			vm := customers.NewListViewModel(customers.NewService(s.api), nil)
			if err := vm.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			s.out.Linef("Deleted customer %s", args[0])
			return nil
		},
	}
}

func customerLabel(name, id string) string {
	if name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", name, id)
}
