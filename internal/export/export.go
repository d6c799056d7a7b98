package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// Format defines the output format for exports.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

// ParseFormat parses a string to Format.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "json":
		return JSON, true
	case "csv":
		return CSV, true
	default:
		return "", false
	}
}

// Exporter writes dashboard rows in one format.
type Exporter struct {
	format Format
	writer io.Writer
}

// NewExporter creates an exporter for the given format.
func NewExporter(format Format, w io.Writer) *Exporter {
	return &Exporter{
		format: format,
		writer: w,
	}
}

// ExportRows writes the records. CSV output has the fixed record columns
// followed by one column per entry in fields; an empty fields list exports
// every canonical field present in the rows.
func (e *Exporter) ExportRows(rows []models.Record, fields []string) error {
	switch e.format {
	case CSV:
		if len(fields) == 0 {
			fields = FieldNames(rows)
		}
		return e.exportRowsCSV(rows, fields)
	default:
		return e.exportRowsJSON(rows)
	}
}

func (e *Exporter) exportRowsJSON(rows []models.Record) error {
	if rows == nil {
		rows = []models.Record{}
	}
	encoder := json.NewEncoder(e.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

func (e *Exporter) exportRowsCSV(rows []models.Record, fields []string) error {
	w := csv.NewWriter(e.writer)

	header := append([]string{"id", "timestamp", "category", "status"}, fields...)
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i := range rows {
		rec := &rows[i]
		record[0] = rec.ID
		record[1] = ""
		if rec.HasTime() {
			record[1] = rec.Time().UTC().Format(time.RFC3339)
		}
		record[2] = rec.Category
		record[3] = rec.Status
		for j, f := range fields {
			record[4+j] = rec.Text(f)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// FieldNames returns the sorted union of canonical field names in rows.
func FieldNames(rows []models.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range rows {
		for k := range rec.Fields {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
