// Package cmd contains the CLI commands for pricedesk.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pricedesk/internal/logger"
	"github.com/good-yellow-bee/pricedesk/internal/storage"
)

var (
	// Used for flags
	verbose bool
	output  string
	dbPath  string
	envFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pricedeskctl",
	Short: "pricedesk - admin dashboards for the price tracking platform",
	Long: `pricedeskctl runs the pricedesk dashboard pipeline from the command line.

Dashboards:
  - notifications   (admin notifications)
  - logins          (login history)
  - price-alerts    (user price alert subscriptions)
  - business-posts  (business posts awaiting moderation)

Examples:
  # Analyze a saved API response offline
  pricedeskctl analyze notifications notifications.json --window week

  # Re-run the analysis every time the file changes
  pricedeskctl analyze price-alerts alerts.json --watch

  # Fetch a dashboard from the live API
  pricedeskctl fetch business-posts --filter status=pending

  # Point one dashboard at a different API host
  pricedeskctl settings set api.base_url.logins https://auth.example.com`,
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile == "" {
			return nil
		}
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, plain)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "settings database path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading PRICEDESK_* variables")
}

func defaultDBPath() string {
	if p := os.Getenv("PRICEDESK_SETTINGS_PATH"); p != "" {
		return p
	}
	return "data/pricedesk.db"
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// cliLogger returns a stderr logger; quiet unless verbose.
func cliLogger() logrus.FieldLogger {
	cfg := logger.DefaultConfig()
	cfg.Output = "stderr"
	cfg.Level = "warn"
	if verbose {
		cfg.Level = "debug"
	}
	log, err := logger.New(cfg)
	if err != nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return log
}

// openStore opens and migrates the settings database.
func openStore(path string) (*storage.SQLiteStorage, error) {
	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}
