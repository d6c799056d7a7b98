package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/pricedesk/internal/api"
	"github.com/good-yellow-bee/pricedesk/internal/api/health"
	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/logger"
	"github.com/good-yellow-bee/pricedesk/internal/metrics"
	"github.com/good-yellow-bee/pricedesk/internal/storage"
	"github.com/good-yellow-bee/pricedesk/internal/upstream"
	"github.com/good-yellow-bee/pricedesk/pkg/config"
)

var (
	configFile string
	envFile    string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pricedesk-server",
	Short: "pricedesk server - admin dashboards over the platform APIs",
	Long: `pricedesk server loads notifications, login history, price alerts and
business posts from the platform admin APIs and serves filtered views,
KPIs and chart data over a JSON API.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pricedesk-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading PRICEDESK_* variables")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := LoadEnvFile(envFile); err != nil {
		return err
	}

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	store := storage.NewSQLiteStorage(cfg.Settings.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open settings database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate settings database: %w", err)
	}
	log.WithField("path", cfg.Settings.Path).Info("settings database initialized")

	upstreamCfg, err := buildUpstreamConfig(cmd.Context(), cfg, store, log)
	if err != nil {
		return err
	}
	client := upstream.NewClient(upstreamCfg, log)

	registry := dashboard.DefaultRegistry()
	pages := make([]*dashboard.Page, 0, len(registry.All()))
	for _, def := range registry.All() {
		pages = append(pages, dashboard.NewPage(def, client, log))
	}

	requestTimeout, _ := cfg.RequestTimeout()
	srv, err := api.New(&api.Config{
		Address:          cfg.Server.HTTPAddress,
		JWTSecret:        []byte(cfg.Auth.JWTSecret),
		JWTIssuer:        cfg.Auth.Issuer,
		LoginURL:         cfg.Auth.LoginURL,
		HTTPTLSEnabled:   cfg.Server.HTTPTLS.Enabled,
		HTTPTLSCertFile:  cfg.Server.HTTPTLS.CertFile,
		HTTPTLSKeyFile:   cfg.Server.HTTPTLS.KeyFile,
		RateLimitPerIP:   cfg.Server.RateLimitPerIP,
		RateLimitPerUser: cfg.Server.RateLimitPerUser,
		RequestTimeout:   requestTimeout,
		Verbose:          cfg.Verbose,
	}, api.Deps{
		Registry: registry,
		Pages:    pages,
		Storage:  store,
		Importer: client,
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	srv.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()), true)
	for _, p := range pages {
		srv.RegisterHealthChecker(health.NewDashboardChecker(p.Definition().Name, p), false)
	}

	// Setup signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Address, cfg.Metrics.Path, log)
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	if cfg.Server.Preload {
		go preload(ctx, pages, log)
	}

	log.WithFields(logrus.Fields{
		"version":    config.Version,
		"dashboards": registry.Names(),
	}).Info("starting pricedesk-server")

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown")
		}
	}

	log.Info("server stopped")
	return nil
}

// buildUpstreamConfig merges base URL overrides from the settings database
// over the config file. Settings are read once, at startup.
func buildUpstreamConfig(ctx context.Context, cfg *Config, store storage.Storage, log logrus.FieldLogger) (upstream.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout, _ := cfg.UpstreamTimeout()

	out := upstream.Config{
		BaseURL:  cfg.Upstream.BaseURL,
		BaseURLs: make(map[string]string, len(cfg.Upstream.BaseURLs)),
		Token:    cfg.Upstream.Token,
		Timeout:  timeout,
	}
	for name, u := range cfg.Upstream.BaseURLs {
		out.BaseURLs[name] = u
	}

	base, overrides, err := store.Settings().BaseURLs(ctx)
	if err != nil {
		return out, fmt.Errorf("read base URL settings: %w", err)
	}
	if base != "" {
		out.BaseURL = base
	}
	for name, u := range overrides {
		if _, ok := dashboard.DefaultRegistry().Lookup(name); !ok {
			log.WithField("dashboard", name).Warn("ignoring base URL override for unknown dashboard")
			continue
		}
		out.BaseURLs[name] = u
	}
	return out, nil
}

// preload loads every dashboard once so the first requests are served from
// memory. Failures are kept on the pages and reported by their views.
func preload(ctx context.Context, pages []*dashboard.Page, log logrus.FieldLogger) {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pages {
		g.Go(func() error {
			if err := p.Load(gctx); err != nil && !errors.Is(err, dashboard.ErrLoadInProgress) {
				log.WithError(err).WithField("dashboard", p.Definition().Name).Warn("preload failed")
			}
			return nil
		})
	}
	g.Wait()
}
