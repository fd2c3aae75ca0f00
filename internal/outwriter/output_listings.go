package outwriter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

const (
	secondLayout = "2006-01-02 15:04:05"
	minuteLayout = "2006-01-02 15:04"
	hourLayout   = "2006-01-02 15:00"
)

// WriteReadings prints raw readings.
func (ow *OutWriter) WriteReadings(kind schema.SensorKind, readings []schema.RawReading, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	rows := make([][]string, len(readings))
	for i, r := range readings {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			formatBucketTime(r.Timestamp, cfg, secondLayout),
			fmtFloat(r.Value),
		}
	}
	return ow.render(view{
		payload:    readings,
		header:     []string{"Row", "Timestamp", "Value"},
		rows:       rows,
		footer:     fmt.Sprintf("Showing %d %s readings", len(readings), kind),
		successMsg: "readings",
	}, cfg)
}

// WriteMinutes prints minute aggregates.
func (ow *OutWriter) WriteMinutes(kind schema.SensorKind, minutes []schema.MinuteAggregate, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)
	rows := make([][]string, len(minutes))
	for i, m := range minutes {
		rows[i] = []string{
			formatBucketTime(m.BucketStart, cfg, minuteLayout),
			fmtFloat(m.Avg),
			fmtFloat(m.Min),
			fmtFloat(m.Max),
			fmtFloat(m.StdDev),
			fmtFloat(m.Range),
			fmt.Sprintf(intFmt, m.ReadingCount),
		}
	}
	return ow.render(view{
		payload:    minutes,
		header:     []string{"Minute", "Avg", "Min", "Max", "Std Dev", "Range", "Readings"},
		rows:       rows,
		footer:     fmt.Sprintf("Showing %d %s minutes", len(minutes), kind),
		successMsg: "minutes",
	}, cfg)
}

// WriteHours prints hour aggregates.
func (ow *OutWriter) WriteHours(kind schema.SensorKind, hours []schema.HourAggregate, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)
	rows := make([][]string, len(hours))
	for i, h := range hours {
		rows[i] = []string{
			formatBucketTime(h.BucketStart, cfg, hourLayout),
			fmtFloat(h.Avg),
			fmtFloat(h.Min),
			fmtFloat(h.Max),
			fmtFloat(h.StdDev),
			fmtFloat(h.Range),
			fmtOptional(fmtFloat, h.Trend),
			fmt.Sprintf(intFmt, h.MinuteCount),
		}
	}
	return ow.render(view{
		payload:    hours,
		header:     []string{"Hour", "Avg", "Min", "Max", "Std Dev", "Range", "Trend", "Minutes"},
		rows:       rows,
		footer:     fmt.Sprintf("Showing %d %s hours", len(hours), kind),
		successMsg: "hours",
	}, cfg)
}

// WriteDays prints day aggregates.
func (ow *OutWriter) WriteDays(kind schema.SensorKind, days []schema.DayAggregate, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)
	rows := make([][]string, len(days))
	for i, d := range days {
		rows[i] = []string{
			d.Date,
			fmtFloat(d.Avg),
			fmtFloat(d.Min),
			fmtFloat(d.Max),
			fmtFloat(d.StdDev),
			fmtFloat(d.Range),
			fmtOptional(fmtFloat, d.Trend),
			fmt.Sprintf(intFmt, d.HourCount),
			fmt.Sprintf("%s @ %s", fmtFloat(d.PeakValue), d.PeakHour),
			fmt.Sprintf("%s @ %s", fmtFloat(d.ValleyValue), d.ValleyHour),
		}
	}
	return ow.render(view{
		payload:    days,
		header:     []string{"Date", "Avg", "Min", "Max", "Std Dev", "Range", "Trend", "Hours", "Peak", "Valley"},
		rows:       rows,
		footer:     fmt.Sprintf("Showing %d %s days", len(days), kind),
		successMsg: "days",
	}, cfg)
}

// WriteStats prints the raw reading summary of one kind.
func (ow *OutWriter) WriteStats(stats schema.ReadingStats, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	window := "all time"
	if !stats.Start.IsZero() || !stats.End.IsZero() {
		window = fmt.Sprintf("%s to %s", rangeBound(stats.Start, cfg), rangeBound(stats.End, cfg))
	}
	rows := [][]string{{
		string(stats.Kind),
		strconv.FormatInt(stats.Count, 10),
		fmtOptional(fmtFloat, stats.Avg),
		fmtOptional(fmtFloat, stats.Min),
		fmtOptional(fmtFloat, stats.Max),
		fmtOptional(fmtFloat, stats.StdDev),
	}}
	return ow.render(view{
		payload:    stats,
		header:     []string{"Kind", "Count", "Avg", "Min", "Max", "Std Dev"},
		rows:       rows,
		footer:     "Window: " + window,
		successMsg: "stats",
	}, cfg)
}

// WriteComparison prints a minute aggregate next to the raw readings it came from.
func (ow *OutWriter) WriteComparison(cmp schema.MinuteComparison, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)
	summary := func(label string, m *schema.MinuteAggregate) []string {
		if m == nil {
			return []string{label, "-", "-", "-", "-", "-", "-"}
		}
		return []string{
			label,
			fmtFloat(m.Avg),
			fmtFloat(m.Min),
			fmtFloat(m.Max),
			fmtFloat(m.StdDev),
			fmtFloat(m.Range),
			fmt.Sprintf(intFmt, m.ReadingCount),
		}
	}
	rows := [][]string{summary("stored", cmp.Aggregate), summary("recomputed", cmp.Computed)}
	for _, r := range cmp.Readings {
		rows = append(rows, []string{
			formatBucketTime(r.Timestamp, cfg, secondLayout), fmtFloat(r.Value), "", "", "", "", "",
		})
	}
	return ow.render(view{
		payload: cmp,
		header:  []string{"Source", "Avg", "Min", "Max", "Std Dev", "Range", "Readings"},
		rows:    rows,
		footer: fmt.Sprintf("%s minute %s with %d raw readings",
			cmp.Kind, formatBucketTime(cmp.Minute, cfg, minuteLayout), len(cmp.Readings)),
		successMsg: "comparison",
	}, cfg)
}

func rangeBound(t time.Time, cfg *contract.Config) string {
	if t.IsZero() {
		return "open"
	}
	return formatBucketTime(t, cfg, secondLayout)
}
