package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/outwriter"
	"github.com/huangsam/sensorium/schema"
	"github.com/spf13/cobra"
)

// sweepCmd groups the recovery sweeps.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Recover hour and day aggregates whose cascade was missed",
	Long: `Walk every completed bucket in a trailing window and aggregate the eligible ones.

A bucket is dispatched only when it has no row yet and its inputs pass the gate:
an hour needs at least 50 minutes, a day at least 20 hours. Buckets that already
have a row count as duplicate and ineligible ones as skipped.

The window is the last hour-lookback hours (default 24) for hours and the last
day-lookback days (default 7) for days. Use --since to start from a fixed time.

Subcommands:
  hours   - Sweep completed hours
  days    - Sweep completed days
  recover - Sweep hours, then days

Examples:
  # Recover everything from the last day and week
  sensorium sweep recover

  # Backfill hours since a given date
  sensorium sweep hours --since 2024-03-01`,
}

// sweepHoursCmd sweeps completed hours.
var sweepHoursCmd = &cobra.Command{
	Use:     "hours",
	Short:   "Aggregate every eligible completed hour in the window",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runSweep(func(ctx context.Context, s *core.Sweeper) ([]schema.SweepReport, error) {
			r, err := s.SweepHours(ctx)
			return []schema.SweepReport{r}, err
		})
	},
}

// sweepDaysCmd sweeps completed days.
var sweepDaysCmd = &cobra.Command{
	Use:     "days",
	Short:   "Aggregate every eligible completed day in the window",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runSweep(func(ctx context.Context, s *core.Sweeper) ([]schema.SweepReport, error) {
			r, err := s.SweepDays(ctx)
			return []schema.SweepReport{r}, err
		})
	},
}

// sweepRecoverCmd sweeps hours, then days.
var sweepRecoverCmd = &cobra.Command{
	Use:     "recover",
	Short:   "Sweep hours, then days, so days see the hours just recovered",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runSweep(func(ctx context.Context, s *core.Sweeper) ([]schema.SweepReport, error) {
			return s.Recover(ctx)
		})
	},
}

// runSweep starts the engine, runs fn, drains the cascades it caused and prints the reports.
func runSweep(fn func(context.Context, *core.Sweeper) ([]schema.SweepReport, error)) error {
	started := time.Now()
	eng, err := startEngine(rootCtx)
	if err != nil {
		return err
	}
	reports, sweepErr := fn(rootCtx, eng.sweeper())
	closeErr := eng.close()
	if err := errors.Join(sweepErr, closeErr); err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteSweepReports(reports, cfg, time.Since(started))
}
