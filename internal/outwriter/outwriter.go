// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct {
	stdout io.Writer
}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{stdout: os.Stdout}
}

// NewOutWriterTo creates an output writer that prints to w instead of stdout.
func NewOutWriterTo(w io.Writer) *OutWriter {
	return &OutWriter{stdout: w}
}

// view is one rendering of a result: the JSON payload plus its tabular form.
type view struct {
	payload    any
	header     []string
	rows       [][]string // plain cells, used for CSV
	tableRows  [][]string // colored cells for the table; nil means rows
	footer     string
	successMsg string
}

// render dispatches on the configured output format.
func (ow *OutWriter) render(v view, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(ow.stdout, cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, v.payload)
		}, "Wrote JSON "+v.successMsg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		header := make([]string, len(v.header))
		for i, h := range v.header {
			header[i] = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		if err := writeWithFile(ow.stdout, cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, header, v.rows)
		}, "Wrote CSV "+v.successMsg); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := ow.printTable(v); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// printTable prints the view with the tablewriter API.
func (ow *OutWriter) printTable(v view) error {
	table := tablewriter.NewWriter(ow.stdout)
	table.Header(v.header)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := v.tableRows
	if data == nil {
		data = v.rows
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if v.footer != "" {
		fmt.Fprintln(ow.stdout, v.footer)
	}
	return nil
}

// formatBucketTime renders an instant in the configured location.
func formatBucketTime(t time.Time, cfg *contract.Config, layout string) string {
	if cfg.Location != nil {
		t = t.In(cfg.Location)
	}
	return t.Format(layout)
}
