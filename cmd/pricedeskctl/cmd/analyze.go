package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/models"
	"github.com/good-yellow-bee/pricedesk/internal/upstream"
	"github.com/good-yellow-bee/pricedesk/internal/watch"
)

var (
	analyzeFlags    criteriaFlags
	analyzeWatch    bool
	analyzeDebounce time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dashboard> <file>",
	Short: "Analyze a saved API response offline",
	Long: `Run the dashboard pipeline over a saved admin API response.

The file holds either the API envelope ({"success": true, "<key>": [...]})
or a bare JSON array of records.

Examples:
  # Notifications of the last 7 days mentioning "price"
  pricedeskctl analyze notifications notifications.json --window week --search price

  # Pending business posts as JSON
  pricedeskctl analyze business-posts posts.json -f status=pending -o json

  # Export matched rows to CSV
  pricedeskctl analyze price-alerts alerts.json --export csv --export-file alerts.csv

  # Re-run whenever the file is saved
  pricedeskctl analyze logins logins.json --watch`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeWatch, "watch", false, "re-run when the file changes")
	analyzeCmd.Flags().DurationVar(&analyzeDebounce, "debounce", dashboard.DefaultDebounce, "quiet period before re-running in watch mode")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	def, err := lookupDashboard(args[0])
	if err != nil {
		return err
	}
	criteria, err := analyzeFlags.criteria()
	if err != nil {
		return err
	}
	path := args[1]

	v, err := analyzeFile(def, path, criteria, time.Now())
	if err != nil {
		return err
	}
	if err := analyzeFlags.emit(def, v); err != nil {
		return err
	}

	if !analyzeWatch {
		return nil
	}
	return watchAndAnalyze(def, path, criteria)
}

// analyzeFile runs the pipeline over the collection saved at path.
func analyzeFile(def *dashboard.Definition, path string, criteria models.FilterCriteria, now time.Time) (*dashboard.View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	raws, err := upstream.ParseCollection(data, def.CollectionKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", path, upstream.UserMessage(err, def.What))
	}
	return dashboard.Analyze(def, raws, criteria, now)
}

func watchAndAnalyze(def *dashboard.Definition, path string, criteria models.FilterCriteria) error {
	w, err := watch.New(path, &watch.Options{Debounce: analyzeDebounce, PollInterval: time.Second})
	if err != nil {
		return err
	}
	defer w.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := w.Start(ctx); err != nil {
		return err
	}
	PrintVerbose("Watching %s (Ctrl-C to stop)...", w.Path())

	for ev := range w.Events() {
		if ev.Err != nil {
			PrintError(ev.Err.Error(), false)
			continue
		}
		v, err := analyzeFile(def, path, criteria, time.Now())
		if err != nil {
			// The file may be mid-write; the next change retries.
			PrintError(err.Error(), false)
			continue
		}
		fmt.Printf("\n--- %s ---\n", ev.Time.Format("15:04:05"))
		if err := analyzeFlags.emit(def, v); err != nil {
			PrintError(err.Error(), false)
		}
	}
	return nil
}
