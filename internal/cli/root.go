// Package cli implements invoicectl, a terminal client that drives the
// same view-models as the web console against the invoicing backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/osgiliath/console/internal/apiclient"
)

// BackendEnv overrides the backend URL of the profile.
const BackendEnv = "INVOICECTL_BACKEND"

// ErrNotLoggedIn is returned by commands that need a stored token.
var ErrNotLoggedIn = errors.New("not logged in: run `invoicectl login` first")

// Options wires the command tree to its environment. Zero values fall back
// to the process streams, the default config path and the wall clock.
type Options struct {
	Out        io.Writer
	Err        io.Writer
	In         io.Reader
	ConfigPath string
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// session is the per-invocation state every subcommand reads.
type session struct {
	opts    Options
	path    string
	profile *Profile
	creds   *profileCredentials
	api     *apiclient.Client
	out     printer
}

func (s *session) requireLogin() error {
	if !s.creds.Authenticated() {
		return ErrNotLoggedIn
	}
	return nil
}

// NewRootCommand builds the invoicectl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	opts = opts.withDefaults()
	s := &session{opts: opts}

	var (
		configPath string
		backend    string
		format     string
		timeout    time.Duration
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Manage customers, invoices and payments from the terminal",
		Long: `invoicectl talks to the invoicing backend with the same rules as the
web console: local validation first, then the backend call, then a reload.

The login token is stored in a profile file under the user config dir.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = opts.ConfigPath
			}
			if path == "" {
				var err error
				if path, err = DefaultConfigPath(); err != nil {
					return err
				}
			}
			profile, err := LoadProfile(path)
			if err != nil {
				return err
			}
			switch {
			case backend != "":
				profile.BackendURL = backend
			case os.Getenv(BackendEnv) != "":
				profile.BackendURL = os.Getenv(BackendEnv)
			case profile.BackendURL == "":
				profile.BackendURL = DefaultBackendURL
			}

			level := slog.LevelError
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(opts.Err, &slog.HandlerOptions{Level: level}))

			s.path = path
			s.profile = profile
			s.creds = newProfileCredentials(profile, path)
			s.api = apiclient.New(profile.BackendURL,
				apiclient.WithHTTPClient(&http.Client{Timeout: timeout}),
				apiclient.WithLogger(logger),
				apiclient.WithCredentialSource(s.creds),
			)

			switch strings.ToLower(format) {
			case "":
				s.out = printer{w: opts.Out, format: defaultFormat(opts.Out)}
			case FormatJSON, FormatTable:
				s.out = printer{w: opts.Out, format: strings.ToLower(format)}
			default:
				return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatTable, FormatJSON)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "profile file (default $XDG_CONFIG_HOME/invoicectl/config.yaml)")
	flags.StringVar(&backend, "backend", "", "backend base URL (env "+BackendEnv+")")
	flags.StringVarP(&format, "format", "o", "", "output format: table or json (default table on a terminal)")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "backend request timeout")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log backend calls to stderr")

	root.AddCommand(
		newLoginCommand(s),
		newLogoutCommand(s),
		newWhoamiCommand(s),
		newCustomersCommand(s),
		newInvoicesCommand(s),
		newPaymentsCommand(s),
		newDashboardCommand(s),
	)
	return root
}

// Run executes the command tree with args and returns the process exit
// code. Errors are printed to opts.Err.
func Run(ctx context.Context, opts Options, args []string) int {
	opts = opts.withDefaults()
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(opts.Out)
	cmd.SetErr(opts.Err)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(opts.Err, "Error:", describe(err))
		return 1
	}
	return 0
}

// Execute runs invoicectl with the process arguments.
func Execute(ctx context.Context) int {
	return Run(ctx, Options{}, os.Args[1:])
}
