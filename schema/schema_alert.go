package schema

import "math"

// AlertLevel is the log level an advisory is emitted at.
type AlertLevel string

// All alert levels.
const (
	AlertInfo AlertLevel = "info"
	AlertWarn AlertLevel = "warn"
)

// Limit holds the advisory ceilings for one kind at one resolution.
// A zero ceiling disables that check.
type Limit struct {
	MaxRange          float64 `json:"max_range" mapstructure:"max_range"`
	MaxStdDev         float64 `json:"max_std_dev" mapstructure:"max_std_dev"`
	MaxPeakValleyDiff float64 `json:"max_peak_valley_diff,omitempty" mapstructure:"max_peak_valley_diff"`
}

// ThresholdTable is the alert configuration keyed by resolution and kind.
type ThresholdTable map[Resolution]map[SensorKind]Limit

// Lookup returns the limit for (res, kind) and whether one is configured.
func (t ThresholdTable) Lookup(res Resolution, kind SensorKind) (Limit, bool) {
	byKind, ok := t[res]
	if !ok {
		return Limit{}, false
	}
	l, ok := byKind[kind]
	return l, ok
}

// Band is the acceptable interval for a single raw reading.
// Unbounded sides are infinite.
type Band struct {
	Low   float64
	High  float64
	Unit  string
	Level AlertLevel
}

// Contains reports whether v lies inside the band, bounds included.
func (b Band) Contains(v float64) bool {
	return v >= b.Low && v <= b.High
}

// Above builds a band that only bounds the upper side.
func Above(high float64, unit string) Band {
	return Band{Low: math.Inf(-1), High: high, Unit: unit, Level: AlertWarn}
}

// Alert is one advisory produced by the alert evaluator.
type Alert struct {
	Bucket    Bucket     `json:"bucket"`
	Metric    string     `json:"metric"`
	Value     float64    `json:"value"`
	Threshold float64    `json:"threshold"`
	Level     AlertLevel `json:"level"`
}
