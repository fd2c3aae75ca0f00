package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BatchTimeLayout is the timestamp layout devices use when posting batches.
const BatchTimeLayout = "2006-01-02 15:04:05"

// RawReading is a single immutable sensor sample.
type RawReading struct {
	Kind      SensorKind `json:"kind"`
	Value     float64    `json:"value"`
	Timestamp time.Time  `json:"timestamp"`
}

// BatchReading is one row of a device batch carrying a value for every sensor kind.
type BatchReading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Noise       float64   `json:"noise"`
	Pressure    float64   `json:"pressure"`
	ECO2        float64   `json:"eco2"`
	TVOC        float64   `json:"tvoc"`
	Timestamp   time.Time `json:"timestamp"`
}

// batchReadingWire mirrors the device payload, which spells pressure as "pression"
// and sends local wall-clock timestamps without a zone.
type batchReadingWire struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Noise       *float64 `json:"noise"`
	Pressure    *float64 `json:"pressure"`
	Pression    *float64 `json:"pression"`
	ECO2        *float64 `json:"eco2"`
	TVOC        *float64 `json:"tvoc"`
	Timestamp   string   `json:"timestamp"`
}

// UnmarshalJSON accepts both the device payload and the canonical form.
// Zone-less device timestamps are read as UTC; use DecodeBatch to pick another location.
func (r *BatchReading) UnmarshalJSON(data []byte) error {
	var w batchReadingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	reading, err := w.toReading(time.UTC)
	if err != nil {
		return err
	}
	*r = reading
	return nil
}

func (w batchReadingWire) toReading(loc *time.Location) (BatchReading, error) {
	var r BatchReading
	if w.Pressure == nil {
		w.Pressure = w.Pression
	}

	missing := make([]string, 0)
	fields := []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"temperature", w.Temperature, &r.Temperature},
		{"humidity", w.Humidity, &r.Humidity},
		{"noise", w.Noise, &r.Noise},
		{"pression", w.Pressure, &r.Pressure},
		{"eco2", w.ECO2, &r.ECO2},
		{"tvoc", w.TVOC, &r.TVOC},
	}
	for _, f := range fields {
		if f.src == nil {
			missing = append(missing, f.name)
			continue
		}
		*f.dst = *f.src
	}
	if len(missing) > 0 {
		return r, fmt.Errorf("%w: missing fields %s", ErrInvalidBatch, strings.Join(missing, ", "))
	}

	ts, err := ParseBatchTime(w.Timestamp, loc)
	if err != nil {
		return r, err
	}
	r.Timestamp = ts
	return r, nil
}

// DecodeBatch parses a batch document, reading zone-less timestamps in loc.
// Both {"data": [...]} and a bare array of readings are accepted.
func DecodeBatch(data []byte, loc *time.Location) (Batch, error) {
	var doc struct {
		ID   string             `json:"id"`
		Data []batchReadingWire `json:"data"`
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &doc.Data); err != nil {
			return Batch{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
		}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}

	batch := Batch{ID: doc.ID, Readings: make([]BatchReading, 0, len(doc.Data))}
	for i, w := range doc.Data {
		r, err := w.toReading(loc)
		if err != nil {
			return Batch{}, fmt.Errorf("reading %d: %w", i, err)
		}
		batch.Readings = append(batch.Readings, r)
	}
	return batch, batch.Validate()
}

// ParseBatchTime parses a batch timestamp in either the device layout or RFC 3339.
// Device timestamps carry no zone and are interpreted in loc.
func ParseBatchTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", ErrInvalidBatch)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(BatchTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidBatch, s)
	}
	return t, nil
}

// Value returns the reading for a single sensor kind.
func (r BatchReading) Value(kind SensorKind) float64 {
	switch kind {
	case Temperature:
		return r.Temperature
	case Humidity:
		return r.Humidity
	case Noise:
		return r.Noise
	case Pressure:
		return r.Pressure
	case ECO2:
		return r.ECO2
	case TVOC:
		return r.TVOC
	}
	return 0
}

// Batch is an ordered list of device readings submitted together.
type Batch struct {
	ID       string         `json:"id,omitempty"`
	Readings []BatchReading `json:"data"`
}

// Validate checks the batch is non-empty and ordered by timestamp.
func (b Batch) Validate() error {
	if len(b.Readings) == 0 {
		return fmt.Errorf("%w: no readings", ErrInvalidBatch)
	}
	for i := 1; i < len(b.Readings); i++ {
		if b.Readings[i].Timestamp.Before(b.Readings[i-1].Timestamp) {
			return fmt.Errorf("%w: reading %d is out of order", ErrInvalidBatch, i)
		}
	}
	return nil
}

// Split fans the batch out into per-kind raw readings, all in UTC.
func (b Batch) Split() map[SensorKind][]RawReading {
	out := make(map[SensorKind][]RawReading, len(AllSensorKinds))
	for _, kind := range AllSensorKinds {
		readings := make([]RawReading, 0, len(b.Readings))
		for _, r := range b.Readings {
			readings = append(readings, RawReading{
				Kind:      kind,
				Value:     r.Value(kind),
				Timestamp: r.Timestamp.UTC(),
			})
		}
		out[kind] = readings
	}
	return out
}
