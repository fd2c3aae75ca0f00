package schema

import (
	"fmt"
	"strings"
)

// Custom string types for type safety.
type (
	// SensorKind identifies one of the fixed environmental sensor channels.
	SensorKind string

	// Resolution is the time granularity of an aggregate.
	Resolution string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for sensor storage.
	DatabaseBackend string

	// SortOrder is the ordering applied to query listings.
	SortOrder string
)

// All sensor kinds supported.
const (
	Temperature SensorKind = "temperature"
	Humidity    SensorKind = "humidity"
	Noise       SensorKind = "noise"
	Pressure    SensorKind = "pressure"
	ECO2        SensorKind = "eco2"
	TVOC        SensorKind = "tvoc"
)

// All aggregate resolutions supported.
const (
	RawResolution    Resolution = "raw"
	MinuteResolution Resolution = "minute"
	HourResolution   Resolution = "hour"
	DayResolution    Resolution = "day"
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
)

// All listing orders supported.
const (
	Descending SortOrder = "desc" // default
	Ascending  SortOrder = "asc"
)

// AllSensorKinds lists every sensor kind in a stable order.
var AllSensorKinds = []SensorKind{Temperature, Humidity, Noise, Pressure, ECO2, TVOC}

// AggregateResolutions lists the resolutions that produce aggregate rows.
var AggregateResolutions = []Resolution{MinuteResolution, HourResolution, DayResolution}

// ValidSensorKinds lists all valid sensor kinds.
var ValidSensorKinds = map[SensorKind]struct{}{
	Temperature: {},
	Humidity:    {},
	Noise:       {},
	Pressure:    {},
	ECO2:        {},
	TVOC:        {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}

// ParseSensorKind normalizes s and checks it against the known kinds.
// "pression" is accepted as an alias for pressure since devices in the field still send it.
func ParseSensorKind(s string) (SensorKind, error) {
	k := SensorKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "pression" {
		k = Pressure
	}
	if _, ok := ValidSensorKinds[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSensorKind, s)
	}
	return k, nil
}

// ParseResolution normalizes s into an aggregate resolution.
func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(strings.ToLower(strings.TrimSpace(s))); r {
	case RawResolution, MinuteResolution, HourResolution, DayResolution:
		return r, nil
	}
	return "", fmt.Errorf("invalid resolution %q. must be raw, minute, hour, day", s)
}

// Next returns the resolution that a completed bucket of r cascades into.
func (r Resolution) Next() (Resolution, bool) {
	switch r {
	case MinuteResolution:
		return HourResolution, true
	case HourResolution:
		return DayResolution, true
	}
	return "", false
}
