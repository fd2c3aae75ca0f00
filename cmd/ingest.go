package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/outwriter"
	"github.com/huangsam/sensorium/internal/spool"
	"github.com/huangsam/sensorium/schema"
	"github.com/spf13/cobra"
)

// ingestCmd stages batch files and aggregates their minutes.
var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Ingest sensor batches and aggregate their minutes",
	Long: `Read one or more JSON batches of sensor readings and feed them to the pipeline.

Each batch is staged in the spool temp area, its readings are appended to the six
raw tables and every minute it touches is aggregated. Completed minutes cascade into
hours and days. The batch moves to the processed area on success, or to the errors
area when it is malformed or one of its minutes failed after every retry.

Batch format:
  {"data": [{"temperature": 21.5, "humidity": 44, "noise": 38, "pressure": 1013,
             "eco2": 612, "tvoc": 120, "timestamp": "2024-03-10 08:00:05"}]}

Use '-' to read a batch from stdin.

Examples:
  # Ingest two batches
  sensorium ingest batch-001.json batch-002.json

  # Ingest from a pipe and keep a JSON summary
  cat batch.json | sensorium ingest - --output json --output-file ingest.json`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		started := time.Now()
		sp, err := spool.NewOS(cfg.SpoolDir)
		if err != nil {
			return err
		}
		eng, err := startEngine(rootCtx)
		if err != nil {
			return err
		}
		ingester := core.NewIngester(eng.pipeline, eng.pool, sp)

		results := make([]schema.IngestResult, 0, len(args))
		failed := 0
		for _, path := range args {
			data, err := readBatch(path)
			if err != nil {
				logger.Error("failed to read batch", slog.String("path", path), slog.Any("error", err))
				failed++
				continue
			}
			result, err := ingester.Ingest(rootCtx, "", data)
			if err != nil {
				failed++
				if result.Batch == "" {
					logger.Error("failed to ingest batch", slog.String("path", path), slog.Any("error", err))
					continue
				}
			}
			results = append(results, result)
		}

		if err := eng.close(); err != nil {
			logger.Warn("engine shutdown", slog.Any("error", err))
		}
		if err := outwriter.NewOutWriter().WriteIngest(results, cfg, time.Since(started)); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d batches failed, see %s", failed, len(args), cfg.SpoolDir)
		}
		return nil
	},
}

func readBatch(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
