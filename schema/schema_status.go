package schema

import "time"

// StoreStatus represents the status of the sensor store.
type StoreStatus struct {
	Backend       string                   `json:"backend"`
	Connected     bool                     `json:"connected"`
	TableSizes    map[string]int64         `json:"table_sizes"`
	LatestReading map[SensorKind]time.Time `json:"latest_reading"`
}

// TotalRows sums the row counts over every table.
func (s StoreStatus) TotalRows() int64 {
	var total int64
	for _, n := range s.TableSizes {
		total += n
	}
	return total
}
