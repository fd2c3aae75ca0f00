package iostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/internal/parquet"
	"github.com/huangsam/sensorium/schema"
)

// pageAll drains a paged listing in ascending order.
func pageAll[T any](ctx context.Context, kind schema.SensorKind, fetch func(context.Context, schema.ListQuery) ([]T, error)) ([]T, error) {
	var all []T
	q := schema.ListQuery{Kind: kind, Limit: contract.MaxResultLimit, Order: schema.Ascending}
	for {
		page, err := fetch(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < q.Limit {
			return all, nil
		}
		q.Offset += len(page)
	}
}

// ExecuteStoreExport writes every minute, hour and day aggregate to Parquet files.
func ExecuteStoreExport(ctx context.Context, store contract.SensorStore, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalRows() == 0 {
		return errors.New("no sensor data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)

	var minutes []schema.MinuteAggregate
	var hours []schema.HourAggregate
	var days []schema.DayAggregate
	for _, kind := range schema.AllSensorKinds {
		m, err := pageAll(ctx, kind, store.QueryMinutes)
		if err != nil {
			return fmt.Errorf("failed to retrieve %s minutes: %w", kind, err)
		}
		h, err := pageAll(ctx, kind, store.QueryHours)
		if err != nil {
			return fmt.Errorf("failed to retrieve %s hours: %w", kind, err)
		}
		d, err := pageAll(ctx, kind, store.QueryDays)
		if err != nil {
			return fmt.Errorf("failed to retrieve %s days: %w", kind, err)
		}
		minutes, hours, days = append(minutes, m...), append(hours, h...), append(days, d...)
	}

	minutesFile := outputFile + ".minutes.parquet"
	if err := parquet.WriteMinutesParquet(parquet.ConvertMinutes(minutes), minutesFile); err != nil {
		return fmt.Errorf("failed to write minutes: %w", err)
	}
	fmt.Printf("Exported %d minute aggregates to: %s\n", len(minutes), minutesFile)

	hoursFile := outputFile + ".hours.parquet"
	if err := parquet.WriteHoursParquet(parquet.ConvertHours(hours), hoursFile); err != nil {
		return fmt.Errorf("failed to write hours: %w", err)
	}
	fmt.Printf("Exported %d hour aggregates to: %s\n", len(hours), hoursFile)

	daysFile := outputFile + ".days.parquet"
	if err := parquet.WriteDaysParquet(parquet.ConvertDays(days), daysFile); err != nil {
		return fmt.Errorf("failed to write days: %w", err)
	}
	fmt.Printf("Exported %d day aggregates to: %s\n", len(days), daysFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Apache Spark")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")

	return nil
}
