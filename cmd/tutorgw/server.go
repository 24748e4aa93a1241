package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/tutorgw/internal/admission"
	"github.com/kalambet/tutorgw/internal/api"
	"github.com/kalambet/tutorgw/internal/config"
	"github.com/kalambet/tutorgw/internal/provider"
	"github.com/kalambet/tutorgw/internal/retry"
	"github.com/kalambet/tutorgw/internal/storage"
	"github.com/kalambet/tutorgw/internal/tutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the tutoring tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

// gateway bundles what both the HTTP and MCP front ends need.
type gateway struct {
	service *tutor.Service
	general *provider.GeneralAdapter
	native  *provider.NativeAdapter
}

func buildGateway(cfg config.Config) (*gateway, error) {
	general := provider.NewGeneral(provider.GeneralConfig{
		OpenRouterAPIKey:  cfg.OpenRouter.APIKey,
		OpenRouterBaseURL: cfg.OpenRouter.BaseURL,
		OpenRouterModel:   cfg.OpenRouter.Model,
		LocalBaseURL:      cfg.Local.BaseURL,
		LocalModel:        cfg.Local.Model,
	})
	nativ := provider.NewNative(provider.NativeConfig{
		APIKey:  cfg.Native.APIKey,
		BaseURL: cfg.Native.BaseURL,
		Model:   cfg.Native.Model,
	})

	def, err := provider.ParseIdentity(cfg.Gateway.DefaultProvider)
	if err != nil {
		return nil, err
	}
	set, err := provider.NewSet(def, general, nativ)
	if err != nil {
		return nil, err
	}

	orch := retry.NewOrchestrator(cfg.ProviderTimeout())
	orch.MaxRetries = cfg.Gateway.MaxRetries
	orch.InitialDelay = cfg.InitialBackoff()

	return &gateway{
		service: tutor.NewService(set, orch),
		general: general,
		native:  nativ,
	}, nil
}

func logProviders(g *gateway) {
	if g.general.Configured() {
		slog.Info("general provider configured", "transport", g.general.Transport(), "model", g.general.Model())
	} else {
		slog.Warn("general provider not configured")
	}
	if g.native.Configured() {
		slog.Info("native provider configured", "model", g.native.Model())
	} else {
		slog.Warn("native provider not configured")
	}
}

// historyRetention is how long journal entries are kept.
const historyRetention = 30 * 24 * time.Hour

// openHistory opens the request journal when history.dir is set and attaches
// it to svc. It returns nil when journaling is disabled.
func openHistory(cfg config.Config, svc *tutor.Service) (*storage.Store, error) {
	if cfg.History.Dir == "" {
		return nil, nil
	}
	store, err := storage.Open(cfg.History.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	if n, err := store.Prune(time.Now().Add(-historyRetention)); err != nil {
		slog.Warn("history: prune failed", "error", err)
	} else if n > 0 {
		slog.Info("history: pruned old interactions", "count", n)
	}
	svc.SetJournal(store)
	slog.Info("history enabled", "dir", cfg.History.Dir)
	return store, nil
}

func runServer() error {
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	g, err := buildGateway(cfg)
	if err != nil {
		return err
	}
	logProviders(g)

	deps := api.Deps{
		Tutor:          g.service,
		Admission:      admission.NewController(cfg.RateLimitWindow(), cfg.RateLimit.MaxRequests),
		RequestTimeout: cfg.RequestTimeout(),
		Token:          cfg.Server.APIToken,
		TrustedProxies: cfg.TrustedProxies(),
	}
	store, err := openHistory(cfg, g.service)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		deps.History = store
	}
	handler := api.NewHandler(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("tutorgw listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	g, err := buildGateway(cfg)
	if err != nil {
		return err
	}
	logProviders(g)

	store, err := openHistory(cfg, g.service)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stdioSrv := server.NewStdioServer(api.NewMCPServer(g.service, version))
	slog.Info("MCP server started (stdio transport)")
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

type probeResult struct {
	label  string
	status string
	ok     bool
}

// showStatus checks the running server and both providers concurrently.
func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		notify(toneFail, "config error: %v", err)
		return nil
	}
	g, err := buildGateway(cfg)
	if err != nil {
		notify(toneFail, "config error: %v", err)
		return nil
	}

	results := make([]probeResult, 3)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		results[0] = probeServer(ctx, fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port), cfg.Server.Port)
		return nil
	})
	eg.Go(func() error {
		results[1] = probeProvider(ctx, "General provider", g.general, fmt.Sprintf("%s, %s", g.general.Transport(), g.general.Model()))
		return nil
	})
	eg.Go(func() error {
		results[2] = probeProvider(ctx, "Native provider", g.native, g.native.Model())
		return nil
	})
	_ = eg.Wait()

	for _, r := range results {
		if r.ok {
			printRow(r.label, colorize(colorGreen, r.status))
		} else {
			printRow(r.label, colorize(colorRed, r.status))
		}
	}
	printRow("Default provider", cfg.Gateway.DefaultProvider)
	printRow("Attempt timeout", fmt.Sprintf("%dms x %d attempts", cfg.Gateway.ProviderTimeoutMS, cfg.Gateway.MaxRetries+1))
	printRow("Rate limit", fmt.Sprintf("%d requests per %dms", cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowMS))
	return nil
}

func probeServer(ctx context.Context, url string, port int) probeResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	r := probeResult{label: "Server"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.status = err.Error()
		return r
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		r.status = "stopped"
		return r
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.status = fmt.Sprintf("error (HTTP %d)", resp.StatusCode)
		return r
	}
	r.status, r.ok = fmt.Sprintf("running on port %d", port), true
	return r
}

type prober interface {
	Configured() bool
	Probe(ctx context.Context) error
}

func probeProvider(ctx context.Context, label string, p prober, detail string) probeResult {
	r := probeResult{label: label}
	if !p.Configured() {
		r.status = "not configured"
		return r
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.Probe(ctx); err != nil {
		r.status = fmt.Sprintf("unreachable (%s): %v", detail, err)
		return r
	}
	r.status, r.ok = fmt.Sprintf("ok (%s)", detail), true
	return r
}
