package outwriter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// WriteSweepReports prints the tallies of one or more sweeps.
func (ow *OutWriter) WriteSweepReports(reports []schema.SweepReport, cfg *contract.Config, duration time.Duration) error {
	header := []string{"Resolution", "Scanned", "Processed", "Skipped", "Duplicate", "Failed"}
	rows := make([][]string, len(reports))
	colored := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			string(r.Resolution),
			strconv.Itoa(r.Scanned),
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Duplicate),
			strconv.Itoa(r.Failed),
		}
		colored[i] = []string{
			string(r.Resolution),
			strconv.Itoa(r.Scanned),
			colorCount(schema.ProcessedStatus, r.Processed),
			colorCount(schema.SkippedStatus, r.Skipped),
			colorCount(schema.DuplicateStatus, r.Duplicate),
			colorCount(schema.FailedStatus, r.Failed),
		}
	}
	return ow.render(view{
		payload:    reports,
		header:     header,
		rows:       rows,
		tableRows:  colored,
		footer:     fmt.Sprintf("Sweep completed in %v with %d workers", duration.Round(time.Millisecond), cfg.Workers),
		successMsg: "sweep report",
	}, cfg)
}

// WriteIngest prints the outcome of ingested batches.
func (ow *OutWriter) WriteIngest(results []schema.IngestResult, cfg *contract.Config, duration time.Duration) error {
	header := []string{"Batch", "Readings", "Alerts", "Processed", "Skipped", "Duplicate", "Failed", "Status"}
	rows := make([][]string, len(results))
	colored := make([][]string, len(results))
	for i, r := range results {
		status := schema.ProcessedStatus
		if r.Failed {
			status = schema.FailedStatus
		}
		rows[i] = []string{
			r.Batch,
			strconv.Itoa(r.Readings),
			strconv.Itoa(r.Alerts),
			strconv.Itoa(r.Minutes.Processed),
			strconv.Itoa(r.Minutes.Skipped),
			strconv.Itoa(r.Minutes.Duplicate),
			strconv.Itoa(r.Minutes.Failed),
			string(status),
		}
		colored[i] = append(append([]string(nil), rows[i][:7]...), contract.GetColorLabel(status))
	}
	return ow.render(view{
		payload:    results,
		header:     header,
		rows:       rows,
		tableRows:  colored,
		footer:     fmt.Sprintf("Ingested %d batches in %v", len(results), duration.Round(time.Millisecond)),
		successMsg: "ingest summary",
	}, cfg)
}

// WriteStatus prints row counts per table and the newest reading per kind.
func (ow *OutWriter) WriteStatus(status schema.StoreStatus, cfg *contract.Config) error {
	tables := make([]string, 0, len(status.TableSizes))
	for name := range status.TableSizes {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	rows := make([][]string, 0, len(tables))
	for _, name := range tables {
		latest := ""
		if kind, ok := strings.CutPrefix(name, "s_"); ok {
			if ts, ok := status.LatestReading[schema.SensorKind(kind)]; ok && !ts.IsZero() {
				latest = formatBucketTime(ts, cfg, secondLayout)
			}
		}
		rows = append(rows, []string{name, strconv.FormatInt(status.TableSizes[name], 10), latest})
	}
	return ow.render(view{
		payload:    status,
		header:     []string{"Table", "Rows", "Latest Reading"},
		rows:       rows,
		footer:     fmt.Sprintf("Backend: %s, connected: %t, total rows: %d", status.Backend, status.Connected, status.TotalRows()),
		successMsg: "store status",
	}, cfg)
}

func colorCount(status schema.OutcomeStatus, n int) string {
	if n == 0 {
		return "0"
	}
	return contract.GetColorLabel(status) + " " + strconv.Itoa(n)
}
