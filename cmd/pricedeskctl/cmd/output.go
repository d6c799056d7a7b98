package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/export"
	"github.com/good-yellow-bee/pricedesk/internal/filter"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// criteriaFlags are the filter flags shared by analyze and fetch.
type criteriaFlags struct {
	search  string
	window  string
	from    string
	to      string
	expr    string
	filters []string
	limit   int

	exportFormat string
	exportFile   string
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "case-insensitive search term")
	cmd.Flags().StringVarP(&f.window, "window", "w", "", "time window (all, today, week, month)")
	cmd.Flags().StringVar(&f.from, "from", "", "only records on or after date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "only records on or before date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.expr, "expr", "", `filter expression, e.g. 'status == "pending" && fields.views > 100'`)
	cmd.Flags().StringArrayVarP(&f.filters, "filter", "f", nil, "categorical filter field=value (repeatable)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 20, "rows to print (0 = all)")
	cmd.Flags().StringVar(&f.exportFormat, "export", "", "write matched rows instead of the view (csv, json)")
	cmd.Flags().StringVar(&f.exportFile, "export-file", "", "file for --export (default: stdout)")
}

// emit prints the view, or exports its rows when --export is set.
func (f *criteriaFlags) emit(def *dashboard.Definition, v *dashboard.View) error {
	if f.exportFormat == "" {
		printView(def, v, f.limit)
		return nil
	}
	format, ok := export.ParseFormat(f.exportFormat)
	if !ok {
		return fmt.Errorf("invalid --export %q (expected csv or json)", f.exportFormat)
	}

	out := os.Stdout
	if f.exportFile != "" {
		file, err := os.Create(f.exportFile)
		if err != nil {
			return fmt.Errorf("create %s: %w", f.exportFile, err)
		}
		defer file.Close()
		out = file
	}

	if err := export.NewExporter(format, out).ExportRows(v.Rows, def.Filter.SearchFields); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if f.exportFile != "" {
		PrintVerbose("Exported %d rows to %s", len(v.Rows), f.exportFile)
	}
	return nil
}

// criteria builds the filter criteria the same way the HTTP API does from
// its query string.
func (f *criteriaFlags) criteria() (models.FilterCriteria, error) {
	q := url.Values{}
	for _, kv := range f.filters {
		field, value, ok := strings.Cut(kv, "=")
		if !ok || field == "" {
			return models.FilterCriteria{}, fmt.Errorf("invalid --filter %q (expected field=value)", kv)
		}
		q.Set(field, value)
	}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("search", f.search)
	set("window", f.window)
	set("from", f.from)
	set("to", f.to)
	set("expr", f.expr)
	return filter.ParseCriteria(q)
}

func printView(def *dashboard.Definition, v *dashboard.View, limit int) {
	switch GetOutput() {
	case "json":
		printJSON(v)
	case "plain":
		printViewPlain(v)
	default:
		printViewTable(def, v, limit)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		PrintError(fmt.Sprintf("failed to marshal JSON: %v", err), false)
		return
	}
	fmt.Println(string(data))
}

func printViewPlain(v *dashboard.View) {
	parts := make([]string, 0, len(v.Stats))
	for _, kpi := range v.Stats {
		parts = append(parts, fmt.Sprintf("%s: %d", kpi.Label, kpi.Value))
	}
	fmt.Printf("%s | Matched: %d/%d | %s\n", v.Title, v.Matched, v.Total, strings.Join(parts, " | "))
	if v.Error != "" {
		fmt.Printf("Error: %s\n", v.Error)
	}
}

func printViewTable(def *dashboard.Definition, v *dashboard.View, limit int) {
	fmt.Println()
	fmt.Println(v.Title)
	fmt.Println(strings.Repeat("=", utf8.RuneCountInString(v.Title)))
	if v.Error != "" {
		fmt.Printf("Error: %s\n", v.Error)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, kpi := range v.Stats {
		fmt.Fprintf(w, "%s:\t%d\n", kpi.Label, kpi.Value)
	}
	w.Flush()

	for _, c := range v.Charts {
		fmt.Printf("\n%s\n", c.Title)
		cw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for i, label := range c.Result.Labels {
			fmt.Fprintf(cw, "  %s\t%s\n", label, formatValue(c.Result.Values[i]))
		}
		cw.Flush()
	}

	fmt.Printf("\nRecords (%d of %d matched)\n", v.Matched, v.Total)
	summaryField := ""
	if len(def.Filter.SearchFields) > 0 {
		summaryField = def.Filter.SearchFields[0]
	}

	rw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(rw, "ID\tTIME\tCATEGORY\tSTATUS\t%s\n", strings.ToUpper(summaryField))
	for i, rec := range v.Rows {
		if limit > 0 && i >= limit {
			fmt.Fprintf(rw, "...\t%d more\t\t\t\n", len(v.Rows)-limit)
			break
		}
		ts := "-"
		if rec.HasTime() {
			ts = rec.Time().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(rw, "%s\t%s\t%s\t%s\t%s\n",
			orDash(rec.ID), ts, orDash(rec.Category), orDash(rec.Status), truncate(rec.Text(summaryField), 40))
	}
	rw.Flush()
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// lookupDashboard resolves a dashboard name or lists the valid ones.
func lookupDashboard(name string) (*dashboard.Definition, error) {
	reg := dashboard.DefaultRegistry()
	def, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown dashboard %q (expected one of: %s)", name, strings.Join(reg.Names(), ", "))
	}
	return def, nil
}
