package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/osgiliath/console/internal/auth"
)

func newLoginCommand(s *session) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token in the profile",
		Example: `  invoicectl login -u alice
  echo "$PASSWORD" | invoicectl login -u alice --backend https://billing.example.com/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(s.opts.In).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			resp, err := auth.NewService(s.api).Login(cmd.Context(), s.creds, auth.LoginRequest{
				Username: username,
				Password: password,
			})
			if err != nil {
				return err
			}
			if err := s.creds.Err(); err != nil {
				return fmt.Errorf("save profile: %w", err)
			}
			s.out.Linef("Logged in as %s", resp.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

func newLogoutCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			auth.NewService(s.api).Logout(s.creds)
			if err := s.creds.Err(); err != nil {
				return fmt.Errorf("save profile: %w", err)
			}
			s.out.Linef("Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.requireLogin(); err != nil {
				return err
			}
			user, err := auth.NewService(s.api).Me(cmd.Context(), s.creds)
			if err != nil {
				return err
			}
			if s.out.jsonMode() {
				return s.out.JSON(user)
			}
			s.out.Linef("%s <%s>", user.Username, user.Email)
			return nil
		},
	}
}
