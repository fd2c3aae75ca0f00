package schema

import "time"

// ListQuery selects rows of one kind and resolution for the read-only query surface.
// Start is inclusive and End is exclusive; zero values leave that side open.
type ListQuery struct {
	Kind   SensorKind
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
	Order  SortOrder
}

// ReadingStats is the summary of raw readings over a range.
type ReadingStats struct {
	Kind   SensorKind `json:"kind"`
	Count  int64      `json:"count"`
	Avg    *float64   `json:"avg_value"`
	Min    *float64   `json:"min_value"`
	Max    *float64   `json:"max_value"`
	StdDev *float64   `json:"std_dev"`
	Start  time.Time  `json:"start,omitzero"`
	End    time.Time  `json:"end,omitzero"`
}

// VariationQuery selects minute rows whose range or std-dev exceeds a floor.
// A nil floor falls back to the kind's minute alert limit; zero matches any variation.
type VariationQuery struct {
	ListQuery
	MinRange  *float64
	MinStdDev *float64
}

// MinuteComparison pairs a minute aggregate with the raw readings it was computed from.
type MinuteComparison struct {
	Kind      SensorKind       `json:"kind"`
	Minute    time.Time        `json:"minute_timestamp"`
	Aggregate *MinuteAggregate `json:"aggregate"`
	Readings  []RawReading     `json:"raw_readings"`
	Computed  *MinuteAggregate `json:"computed,omitempty"` // recomputed from Readings when at least one exists
}
