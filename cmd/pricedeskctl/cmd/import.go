package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/good-yellow-bee/pricedesk/internal/importer"
	"github.com/good-yellow-bee/pricedesk/internal/models"
	"github.com/good-yellow-bee/pricedesk/internal/upstream"
)

var (
	importYes     bool
	importDryRun  bool
	importBaseURL string
	importTimeout time.Duration
)

var importCmd = &cobra.Command{
	Use:   "import <kind> <file>",
	Short: "Validate and bulk-import records",
	Long: `Validate an import file and submit its valid items to the admin API.

Kinds: ` + strings.Join(importer.Kinds(), ", ") + `

The file is a JSON array of items, or an object holding the array under
"items" or under the kind name. Items that fail validation are listed and
skipped; the rest are submitted after confirmation.

Examples:
  # Check a file without sending anything
  pricedeskctl import price-alerts alerts.json --dry-run

  # Import without prompting
  pricedeskctl import notifications broadcast.json --yes`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "submit without asking for confirmation")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate only")
	addUpstreamFlags(importCmd, &importBaseURL, &importTimeout)
}

func runImport(cmd *cobra.Command, args []string) error {
	kind, path := args[0], args[1]
	if _, ok := importer.LookupKind(kind); !ok {
		return fmt.Errorf("unknown import kind %q (expected one of: %s)", kind, strings.Join(importer.Kinds(), ", "))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	rep, err := importer.Parse(kind, data)
	if err != nil {
		return err
	}

	printImportReport(rep)
	if importDryRun {
		return nil
	}
	if len(rep.Valid) == 0 {
		return importer.ErrNothingToImport
	}

	if !importYes {
		ok, err := confirm(os.Stdin, fmt.Sprintf("Import %d valid %s (%d skipped)? [y/N] ", len(rep.Valid), kind, rep.Invalid))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	ctx := context.Background()
	client, err := newUpstreamClient(ctx, importBaseURL, importTimeout)
	if err != nil {
		return err
	}

	res, err := importer.Submit(ctx, client, rep)
	if err != nil {
		if upstream.IsAuth(err) {
			return errors.New("session expired: set a fresh PRICEDESK_UPSTREAM_TOKEN and log in again")
		}
		return errors.New(upstream.UserMessage(err, kind))
	}

	recordImport(ctx, kind, len(rep.Valid))
	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("Imported %d %s", len(rep.Valid), kind)
	}
	fmt.Println(msg)
	return nil
}

func printImportReport(rep *importer.Report) {
	if GetOutput() == "json" {
		printJSON(struct {
			*importer.Report
			Valid int `json:"valid"`
		}{rep, len(rep.Valid)})
		return
	}
	fmt.Printf("%s: %d items, %d valid, %d invalid\n", rep.Kind, rep.Total, len(rep.Valid), rep.Invalid)
	for _, issue := range rep.Issues {
		fmt.Printf("  - %s\n", issue)
	}
}

// confirm asks a yes/no question. Non-interactive input must use --yes.
func confirm(in *os.File, prompt string) (bool, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return false, errors.New("refusing to import from non-interactive input without --yes")
	}
	fmt.Print(prompt)
	return readYes(in)
}

func readYes(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// recordImport writes the import to the local audit trail when a settings
// database exists.
func recordImport(ctx context.Context, kind string, n int) {
	if _, err := os.Stat(dbPath); err != nil {
		return
	}
	store, err := openStore(dbPath)
	if err != nil {
		PrintVerbose("audit: %v", err)
		return
	}
	defer store.Close()

	k, _ := importer.LookupKind(kind)
	entry := models.NewAuditEntry(&models.User{ID: "cli", Email: os.Getenv("USER")}, k.Dashboard, "import", "", fmt.Sprintf("%d items", n))
	if err := store.Audit().Create(ctx, entry); err != nil {
		PrintVerbose("audit: %v", err)
	}
}
