package agg

import (
	"fmt"
	"time"

	"github.com/huangsam/sensorium/schema"
)

// Completeness requirements per resolution.
const (
	ReadingsPerMinute = 12 // one reading every 5 seconds

	MinMinutesPerHour  = 50
	MinHourCoverageMin = 45 // minutes between first and last minute row, inclusive

	MinHoursPerDay    = 20
	MinDayCoverageHrs = 18 // hours between first and last hour row, inclusive

	MinutesPerHour = 60
	HoursPerDay    = 24
)

// Quality thresholds for the approval label.
const (
	ExcellentMinuteCount = 55
	ExcellentHourCount   = 22
)

// GateResult is the verdict of a completeness gate.
type GateResult struct {
	Eligible bool
	Reason   schema.SkipReason // empty when Eligible
	Detail   string            // e.g. "48 < 50"
	Found    int
	Required int
	Coverage int // span in sub-units, inclusive; 0 when nothing was found
}

func insufficient(reason schema.SkipReason, have, need, found, coverage int) GateResult {
	return GateResult{
		Reason:   reason,
		Detail:   fmt.Sprintf("%d < %d", have, need),
		Found:    found,
		Required: need,
		Coverage: coverage,
	}
}

// CheckMinute admits a minute only when it holds exactly the expected number of readings.
func CheckMinute(count int) GateResult {
	if count != ReadingsPerMinute {
		op := "<"
		if count > ReadingsPerMinute {
			op = ">"
		}
		return GateResult{
			Reason:   schema.InsufficientData,
			Detail:   fmt.Sprintf("%d %s %d", count, op, ReadingsPerMinute),
			Found:    count,
			Required: ReadingsPerMinute,
		}
	}
	return GateResult{Eligible: true, Found: count, Required: ReadingsPerMinute}
}

// CheckHour admits an hour when enough minute rows exist and they span enough of it.
// starts are the bucket starts of the minute rows found for the hour.
func CheckHour(starts []time.Time) GateResult {
	coverage := span(starts, time.Minute)
	if len(starts) < MinMinutesPerHour {
		return insufficient(schema.InsufficientData, len(starts), MinMinutesPerHour, len(starts), coverage)
	}
	if coverage < MinHourCoverageMin {
		return insufficient(schema.InsufficientCoverage, coverage, MinHourCoverageMin, len(starts), coverage)
	}
	return GateResult{Eligible: true, Found: len(starts), Required: MinMinutesPerHour, Coverage: coverage}
}

// CheckDay admits a day when enough hour rows exist and they span enough of it.
func CheckDay(starts []time.Time) GateResult {
	coverage := span(starts, time.Hour)
	if len(starts) < MinHoursPerDay {
		return insufficient(schema.InsufficientData, len(starts), MinHoursPerDay, len(starts), coverage)
	}
	if coverage < MinDayCoverageHrs {
		return insufficient(schema.InsufficientCoverage, coverage, MinDayCoverageHrs, len(starts), coverage)
	}
	return GateResult{Eligible: true, Found: len(starts), Required: MinHoursPerDay, Coverage: coverage}
}

// span is (latest - earliest) / unit + 1, the inclusive number of units covered.
func span(starts []time.Time, unit time.Duration) int {
	if len(starts) == 0 {
		return 0
	}
	first, last := starts[0], starts[0]
	for _, t := range starts[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	return int(last.Sub(first)/unit) + 1
}

// QualityLabel grades an approved bucket by how many sub-units it holds.
func QualityLabel(res schema.Resolution, count int) string {
	switch res {
	case schema.HourResolution:
		if count >= ExcellentMinuteCount {
			return "EXCELLENT"
		}
	case schema.DayResolution:
		if count >= ExcellentHourCount {
			return "EXCELLENT"
		}
	}
	return "GOOD"
}

// CoveragePercent is the share of the expected sub-units present, rounded to one decimal.
func CoveragePercent(res schema.Resolution, count int) float64 {
	switch res {
	case schema.HourResolution:
		return Round(float64(count)/MinutesPerHour*100, 1)
	case schema.DayResolution:
		return Round(float64(count)/HoursPerDay*100, 1)
	}
	return Round(float64(count)/ReadingsPerMinute*100, 1)
}
