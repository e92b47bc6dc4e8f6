package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/collection"
	"github.com/five82/marketdesk/internal/config"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/ui"
)

// Options configure the console. Non-empty fields override the config file.
type Options struct {
	ConfigPath  string
	PrefsPath   string // empty uses ~/.config/marketdesk/prefs.toml
	APIURL      string
	APIToken    string
	LogLevel    string
	MetricsAddr string
	PageSize    int
	// Page is the page mounted first; empty mounts the first page.
	Page string
	// Params are key=value address-bar parameters written into the first
	// page before it mounts.
	Params []string
}

// Run boots the console until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyOverrides(&cfg, opts); err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := api.NewClient(cfg.APIURL, api.Options{
		Token:             cfg.APIToken,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ws := NewWorkspace(WorkspaceOptions{
		Backend:   client,
		Logger:    logger,
		Metrics:   collection.NewMetrics(reg),
		Debounce:  cfg.SearchDebounce,
		PageSize:  cfg.PageSize,
		PrefsPath: opts.PrefsPath,
	})
	defer func() { _ = ws.Close() }()

	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	start := opts.Page
	if start == "" {
		start = ws.Pages()[0].Name
	}
	if _, err := ws.Open(start, params); err != nil {
		return err
	}
	logger.Info("console started", "api_url", cfg.APIURL, "page", start)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.RefreshInterval > 0 {
		StartPoller(gctx, ws.current, cfg.RefreshInterval, logger.With("component", "poller"))
	}
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, reg, logger)
		})
	}
	g.Go(func() error {
		defer cancel()
		return ui.Run(ui.Options{
			Context:   gctx,
			Console:   ws,
			Logger:    logger.With("component", "ui"),
			LogFile:   cfg.LogFile,
			ThemeName: ws.Theme(),
		})
	})
	return g.Wait()
}

func applyOverrides(cfg *config.Config, opts Options) error {
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(opts.APIToken); v != "" {
		cfg.APIToken = v
	}
	if v := strings.TrimSpace(opts.MetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if opts.PageSize > 0 {
		cfg.PageSize = opts.PageSize
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		level, err := config.ParseLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	return nil
}

// parseParams reads key=value pairs. The value may be empty; the key may not.
func parseParams(raw []string) (query.Patch, error) {
	var p query.Patch
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q: want key=value", kv)
		}
		p = append(p, query.Set(key, strings.TrimSpace(value)))
	}
	return p, nil
}

// openLogger returns a JSON logger writing to path. The terminal belongs to
// the TUI, so nothing is logged to stderr.
func openLogger(path string, level slog.Level) (*slog.Logger, func(), error) {
	var w io.Writer = io.Discard
	closeFn := func() {}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
