package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/marketdesk/internal/mockapi"
)

type mockOptions struct {
	addr     string
	fixtures string
	token    string
	latency  time.Duration
}

func mockCmd() *cobra.Command {
	var opts mockOptions
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve the fixture backend",
		Long: `Serve an in-memory marketplace API backed by fixture data.

The backend implements search (q), field filters, sort and pagination,
so the console can be used end to end without the real API. Writes are
kept in memory until the process exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveMock(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "127.0.0.1:8088", "listen address")
	f.StringVar(&opts.fixtures, "fixtures", "", "YAML fixtures file (default: built-in data)")
	f.StringVar(&opts.token, "token", "", "require this bearer token")
	f.DurationVar(&opts.latency, "latency", 0, "delay every list response")
	return cmd
}

func serveMock(ctx context.Context, opts mockOptions) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "mockapi")

	ds := mockapi.DefaultDataset()
	if opts.fixtures != "" {
		loaded, err := mockapi.LoadFixtures(opts.fixtures)
		if err != nil {
			return err
		}
		ds = loaded
	}

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler: mockapi.NewHandler(ds, mockapi.Options{
			Token:   opts.token,
			Latency: opts.latency,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mock api listening", "url", "http://"+ln.Addr().String()+"/api/", "resources", ds.Resources())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
