package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage locally stored settings",
	Long: `Manage the key-value settings stored in the local database.

Keys:
  api.base_url               default admin API base URL
  api.base_url.<dashboard>   base URL override for one dashboard

The server reads settings once, at startup.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		settings, err := store.Settings().List(context.Background())
		if err != nil {
			return fmt.Errorf("list settings: %w", err)
		}

		if GetOutput() == "json" {
			printJSON(settings)
			return nil
		}
		if len(settings) == 0 {
			fmt.Println("No settings.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE\tUPDATED")
		for _, s := range settings {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Key, s.Value, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		s, err := store.Settings().Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get setting: %w", err)
		}
		if s == nil {
			return fmt.Errorf("setting %q not found", args[0])
		}
		fmt.Println(s.Value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := validateSetting(key, value); err != nil {
			return err
		}

		store, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Settings().Set(context.Background(), key, value); err != nil {
			return fmt.Errorf("set setting: %w", err)
		}
		PrintVerbose("Stored %s in %s", key, dbPath)
		fmt.Printf("%s = %s\n", key, value)
		return nil
	},
}

var settingsDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Settings().Delete(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete setting: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd, settingsDeleteCmd)
	rootCmd.AddCommand(settingsCmd)
}

var settingValidator = validator.New()

// validateSetting accepts the known base URL keys with absolute URL values.
func validateSetting(key, value string) error {
	if key != models.SettingBaseURL {
		name, ok := models.DashboardFromKey(key)
		if !ok {
			return fmt.Errorf("unknown setting %q (expected one of: %s)", key, strings.Join(knownSettingKeys(), ", "))
		}
		if _, err := lookupDashboard(name); err != nil {
			return err
		}
	}
	if err := settingValidator.Var(value, "required,url"); err != nil {
		return fmt.Errorf("%s must be an absolute URL", key)
	}
	return nil
}

// knownSettingKeys lists every key validateSetting accepts.
func knownSettingKeys() []string {
	keys := []string{models.SettingBaseURL}
	for _, name := range dashboard.DefaultRegistry().Names() {
		keys = append(keys, models.BaseURLKey(name))
	}
	return keys
}
