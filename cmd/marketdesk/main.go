package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/marketdesk/internal/app"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "marketdesk: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts app.Options
	root := &cobra.Command{
		Use:   "marketdesk",
		Short: "Terminal admin console for the marketplace API",
		Long: `marketdesk browses and edits marketplace records (buyers, sellers,
products, reviews, roles) from the terminal. Search, filters, sort and
paging live in the address bar shown at the top of each page.

Run "marketdesk mock" in another terminal for a local backend with
fixture data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}
	addRunFlags(root, &opts)

	root.AddCommand(runCmd(), mockCmd(), versionCmd())
	return root
}

func runCmd() *cobra.Command {
	var opts app.Options
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the console (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *app.Options) {
	f := cmd.Flags()
	f.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/marketdesk/config.toml)")
	f.StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/marketdesk/prefs.toml)")
	f.StringVar(&opts.APIURL, "api-url", "", "API base URL")
	f.StringVar(&opts.APIToken, "token", "", "API bearer token")
	f.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.IntVar(&opts.PageSize, "page-size", 0, "rows per page")
	f.StringVar(&opts.Page, "page", "", "page to open first (e.g. products)")
	f.StringArrayVar(&opts.Params, "param", nil, "address-bar parameter for the first page, key=value (repeatable)")
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marketdesk %s (%s)\n", version, commit)
		},
	}
}
