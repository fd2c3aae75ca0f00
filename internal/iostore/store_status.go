package iostore

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/sensorium/schema"
)

// GetStatus returns row counts per table and the newest reading per kind.
func (s *SensorStoreImpl) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:       string(s.backend),
		Connected:     s.db != nil,
		TableSizes:    make(map[string]int64),
		LatestReading: make(map[schema.SensorKind]time.Time),
	}
	if s.db == nil {
		return status, nil
	}

	for _, table := range AllTables() {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, s.backend))
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	for _, kind := range schema.AllSensorKinds {
		latest, ok, err := s.LatestReading(ctx, kind)
		if err != nil {
			return status, err
		}
		if ok {
			status.LatestReading[kind] = latest.Timestamp
		}
	}

	return status, nil
}
