package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/models"
	"github.com/good-yellow-bee/pricedesk/internal/upstream"
)

var (
	fetchFlags   criteriaFlags
	fetchAll     bool
	fetchBaseURL string
	fetchTimeout time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [dashboard]",
	Short: "Fetch a dashboard from the admin API",
	Long: `Load a dashboard from the live admin API and print its view.

The API token is read from PRICEDESK_UPSTREAM_TOKEN. The base URL comes from
--base-url, PRICEDESK_UPSTREAM_BASE_URL or the settings database, where
per-dashboard overrides are also kept.

Examples:
  # Failed logins today
  pricedeskctl fetch logins -f status=failed --window today

  # KPI summary of every dashboard
  pricedeskctl fetch --all`,
	Args: func(cmd *cobra.Command, args []string) error {
		if fetchAll && len(args) > 0 {
			return fmt.Errorf("--all takes no dashboard argument")
		}
		if !fetchAll && len(args) != 1 {
			return fmt.Errorf("expected a dashboard name or --all")
		}
		return nil
	},
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchFlags.register(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchAll, "all", false, "load every dashboard concurrently and print KPIs")
	addUpstreamFlags(fetchCmd, &fetchBaseURL, &fetchTimeout)
}

func addUpstreamFlags(cmd *cobra.Command, baseURL *string, timeout *time.Duration) {
	cmd.Flags().StringVar(baseURL, "base-url", "", "admin API base URL")
	cmd.Flags().DurationVar(timeout, "timeout", 30*time.Second, "upstream request timeout")
}

// newUpstreamClient builds a client from flags, environment and the base
// URL overrides stored in the settings database, read once.
func newUpstreamClient(ctx context.Context, baseURL string, timeout time.Duration) (*upstream.Client, error) {
	cfg := upstream.Config{
		BaseURL: os.Getenv("PRICEDESK_UPSTREAM_BASE_URL"),
		Token:   os.Getenv("PRICEDESK_UPSTREAM_TOKEN"),
		Timeout: timeout,
	}

	if _, err := os.Stat(dbPath); err == nil {
		store, err := openStore(dbPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		base, overrides, err := store.Settings().BaseURLs(ctx)
		if err != nil {
			return nil, fmt.Errorf("read base URL settings: %w", err)
		}
		if base != "" {
			cfg.BaseURL = base
		}
		cfg.BaseURLs = overrides
	}

	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if cfg.BaseURL == "" && len(cfg.BaseURLs) == 0 {
		return nil, fmt.Errorf("no API base URL: use --base-url, PRICEDESK_UPSTREAM_BASE_URL or 'settings set %s'", models.SettingBaseURL)
	}
	return upstream.NewClient(cfg, cliLogger()), nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	criteria, err := fetchFlags.criteria()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := newUpstreamClient(ctx, fetchBaseURL, fetchTimeout)
	if err != nil {
		return err
	}

	if fetchAll {
		return fetchOverview(ctx, client)
	}

	def, err := lookupDashboard(args[0])
	if err != nil {
		return err
	}

	page := dashboard.NewPage(def, client, cliLogger())
	PrintVerbose("Fetching %s from %s%s...", def.Name, client.BaseURL(def.Name), def.Endpoint)
	if err := page.Load(ctx); err != nil {
		return loadError(page, err)
	}

	v, err := page.View(criteria)
	if err != nil {
		return err
	}
	return fetchFlags.emit(def, v)
}

// loadError turns a failed load into the message an operator sees.
func loadError(page *dashboard.Page, err error) error {
	if upstream.IsAuth(err) {
		return errors.New("session expired: set a fresh PRICEDESK_UPSTREAM_TOKEN and log in again")
	}
	return errors.New(upstream.UserMessage(err, page.Definition().What))
}

func fetchOverview(ctx context.Context, client *upstream.Client) error {
	reg := dashboard.DefaultRegistry()
	defs := reg.All()
	pages := make([]*dashboard.Page, len(defs))
	for i, def := range defs {
		pages[i] = dashboard.NewPage(def, client, cliLogger())
	}

	// Pages are independent; each failure is reported on its own row.
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pages {
		g.Go(func() error {
			if err := p.Load(gctx); err != nil {
				PrintVerbose("%s: %v", p.Definition().Name, err)
			}
			return nil
		})
	}
	g.Wait()

	views := make([]*dashboard.View, 0, len(pages))
	authFailed := false
	for _, p := range pages {
		v, err := p.View(models.AllCriteria())
		if err != nil {
			return err
		}
		if upstream.IsAuth(p.LastError()) {
			authFailed = true
		}
		views = append(views, v)
	}

	switch GetOutput() {
	case "json":
		printJSON(views)
	default:
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DASHBOARD\tTOTAL\tKPIS\tERROR")
		for _, v := range views {
			kpis := make([]string, 0, len(v.Stats))
			for _, kpi := range v.Stats {
				if kpi.Key == "total" {
					continue
				}
				kpis = append(kpis, fmt.Sprintf("%s=%d", kpi.Key, kpi.Value))
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", v.Dashboard, v.Total, strings.Join(kpis, " "), orDash(v.Error))
		}
		w.Flush()
	}

	if authFailed {
		return errors.New("session expired: set a fresh PRICEDESK_UPSTREAM_TOKEN and log in again")
	}
	return nil
}
