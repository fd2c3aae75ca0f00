package contract

import (
	"fmt"

	"github.com/huangsam/sensorium/schema"
)

// DefaultThresholds returns a fresh copy of the built-in alert table.
// Minute limits double as the defaults of the minute variation query.
func DefaultThresholds() schema.ThresholdTable {
	return schema.ThresholdTable{
		schema.MinuteResolution: {
			schema.Temperature: {MaxRange: 3.0, MaxStdDev: 1.5},
			schema.Humidity:    {MaxRange: 10.0, MaxStdDev: 5.0},
			schema.Noise:       {MaxRange: 15.0, MaxStdDev: 8.0},
			schema.Pressure:    {MaxRange: 5.0, MaxStdDev: 2.0},
			schema.ECO2:        {MaxRange: 100.0, MaxStdDev: 50.0},
			schema.TVOC:        {MaxRange: 50.0, MaxStdDev: 25.0},
		},
		schema.HourResolution: {
			schema.Temperature: {MaxRange: 5.0, MaxStdDev: 2.0},
			schema.Humidity:    {MaxRange: 15.0, MaxStdDev: 7.0},
			schema.Noise:       {MaxRange: 20.0, MaxStdDev: 10.0},
			schema.Pressure:    {MaxRange: 8.0, MaxStdDev: 3.0},
			schema.ECO2:        {MaxRange: 150.0, MaxStdDev: 75.0},
			schema.TVOC:        {MaxRange: 75.0, MaxStdDev: 35.0},
		},
		schema.DayResolution: {
			schema.Temperature: {MaxRange: 8.0, MaxStdDev: 3.0, MaxPeakValleyDiff: 6.0},
			schema.Humidity:    {MaxRange: 25.0, MaxStdDev: 10.0, MaxPeakValleyDiff: 20.0},
			schema.Noise:       {MaxRange: 30.0, MaxStdDev: 15.0, MaxPeakValleyDiff: 25.0},
			schema.Pressure:    {MaxRange: 12.0, MaxStdDev: 5.0, MaxPeakValleyDiff: 10.0},
			schema.ECO2:        {MaxRange: 200.0, MaxStdDev: 100.0, MaxPeakValleyDiff: 150.0},
			schema.TVOC:        {MaxRange: 100.0, MaxStdDev: 50.0, MaxPeakValleyDiff: 75.0},
		},
	}
}

// DefaultBands returns the comfort band of every raw reading kind.
func DefaultBands() map[schema.SensorKind]schema.Band {
	return map[schema.SensorKind]schema.Band{
		schema.Temperature: {Low: 18, High: 24, Unit: "°C", Level: schema.AlertWarn},
		schema.Humidity:    {Low: 30, High: 60, Unit: "%", Level: schema.AlertWarn},
		schema.Noise:       schema.Above(45, "dB"),
		schema.ECO2:        schema.Above(1000, "ppm"),
		schema.TVOC:        schema.Above(220, "ppb"),
		schema.Pressure:    {Low: 963, High: 1063, Unit: "hPa", Level: schema.AlertInfo},
	}
}

// ApplyThresholdOverrides merges raw overrides into table and validates the result.
func ApplyThresholdOverrides(table schema.ThresholdTable, raw ThresholdsRawInput) (schema.ThresholdTable, error) {
	sections := []struct {
		res       schema.Resolution
		overrides map[string]LimitRawInput
	}{
		{schema.MinuteResolution, raw.Minute},
		{schema.HourResolution, raw.Hour},
		{schema.DayResolution, raw.Day},
	}

	for _, section := range sections {
		for name, override := range section.overrides {
			kind, err := schema.ParseSensorKind(name)
			if err != nil {
				return nil, fmt.Errorf("invalid thresholds.%s entry: %w", section.res, err)
			}
			if table[section.res] == nil {
				table[section.res] = make(map[schema.SensorKind]schema.Limit)
			}
			limit := table[section.res][kind]
			if override.MaxRange != nil {
				limit.MaxRange = *override.MaxRange
			}
			if override.MaxStdDev != nil {
				limit.MaxStdDev = *override.MaxStdDev
			}
			if override.MaxPeakValleyDiff != nil {
				if section.res != schema.DayResolution {
					return nil, fmt.Errorf("max_peak_valley_diff only applies to day thresholds (found under %s.%s)", section.res, kind)
				}
				limit.MaxPeakValleyDiff = *override.MaxPeakValleyDiff
			}
			table[section.res][kind] = limit
		}
	}

	for res, byKind := range table {
		for kind, limit := range byKind {
			if limit.MaxRange < 0 || limit.MaxStdDev < 0 || limit.MaxPeakValleyDiff < 0 {
				return nil, fmt.Errorf("threshold for %s %s cannot be negative (received %+v)", res, kind, limit)
			}
		}
	}
	return table, nil
}
