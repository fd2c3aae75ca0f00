package cmd

import (
	"errors"
	"time"

	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/internal/iostore"
	"github.com/huangsam/sensorium/internal/outwriter"
	"github.com/huangsam/sensorium/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// queryCmd groups the read-only listings.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read raw readings and aggregates without changing anything",
	Long: `List stored readings and aggregates of one sensor kind.

Kinds: temperature, humidity, noise, pressure (alias pression), eco2, tvoc.

Listings accept --start (inclusive), --end (exclusive), --limit (1-1000, default 100),
--offset and --order (asc or desc, default desc). Times are RFC3339,
'YYYY-MM-DD[ HH:MM:SS]' read in --timezone, or relative like '2 hours ago'.

Examples:
  # Last 100 minute aggregates of noise
  sensorium query minutes noise

  # Hours of today's temperature as CSV
  sensorium query hours temperature --start "$(date +%F)" --order asc --output csv

  # Minutes where eCO2 moved by at least 150 ppm
  sensorium query variations eco2 --min-range 150`,
}

// queryService builds the read-only service over the configured store.
func queryService() *core.QueryService {
	return core.NewQueryService(core.NewPipelineFromConfig(cfg, iostore.Manager.GetSensorStore(), logger))
}

// listQuery builds the listing from the positional kind and the validated flags.
func listQuery(arg string) (schema.ListQuery, error) {
	kind, err := schema.ParseSensorKind(arg)
	if err != nil {
		return schema.ListQuery{}, err
	}
	return schema.ListQuery{
		Kind:   kind,
		Start:  cfg.Start,
		End:    cfg.End,
		Limit:  cfg.Limit,
		Offset: cfg.Offset,
		Order:  cfg.Order,
	}, nil
}

// optionalFloat reads key only when a flag, env var or config file actually set it.
func optionalFloat(key string) *float64 {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetFloat64(key)
	return &v
}

// listCommand builds a listing subcommand for one resolution.
func listCommand(use, short string, run func(q schema.ListQuery, ow *outwriter.OutWriter) error) *cobra.Command {
	return &cobra.Command{
		Use:     use + " KIND",
		Short:   short,
		Args:    cobra.ExactArgs(1),
		PreRunE: sharedSetupWrapper,
		RunE: func(_ *cobra.Command, args []string) error {
			q, err := listQuery(args[0])
			if err != nil {
				return err
			}
			return run(q, outwriter.NewOutWriter())
		},
	}
}

var queryRawCmd = listCommand("raw", "List raw readings", func(q schema.ListQuery, ow *outwriter.OutWriter) error {
	rows, err := queryService().Readings(rootCtx, q)
	if err != nil {
		return err
	}
	return ow.WriteReadings(q.Kind, rows, cfg)
})

var queryMinutesCmd = listCommand("minutes", "List minute aggregates", func(q schema.ListQuery, ow *outwriter.OutWriter) error {
	rows, err := queryService().Minutes(rootCtx, q)
	if err != nil {
		return err
	}
	return ow.WriteMinutes(q.Kind, rows, cfg)
})

var queryHoursCmd = listCommand("hours", "List hour aggregates with their trend", func(q schema.ListQuery, ow *outwriter.OutWriter) error {
	rows, err := queryService().Hours(rootCtx, q)
	if err != nil {
		return err
	}
	return ow.WriteHours(q.Kind, rows, cfg)
})

var queryDaysCmd = listCommand("days", "List day aggregates with peak and valley hours", func(q schema.ListQuery, ow *outwriter.OutWriter) error {
	rows, err := queryService().Days(rootCtx, q)
	if err != nil {
		return err
	}
	return ow.WriteDays(q.Kind, rows, cfg)
})

var queryVariationsCmd = listCommand("variations", "List minutes whose range or std dev exceeds a floor", func(q schema.ListQuery, ow *outwriter.OutWriter) error {
	rows, err := queryService().Variations(rootCtx, schema.VariationQuery{
		ListQuery: q,
		MinRange:  optionalFloat("min-range"),
		MinStdDev: optionalFloat("min-std-dev"),
	})
	if err != nil {
		return err
	}
	return ow.WriteMinutes(q.Kind, rows, cfg)
})

// queryLatestCmd prints the newest raw reading.
var queryLatestCmd = &cobra.Command{
	Use:     "latest KIND",
	Short:   "Show the newest raw reading",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		kind, err := schema.ParseSensorKind(args[0])
		if err != nil {
			return err
		}
		r, err := queryService().Latest(rootCtx, kind)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteReadings(kind, []schema.RawReading{r}, cfg)
	},
}

// queryStatsCmd summarizes raw readings over --start and --end.
var queryStatsCmd = &cobra.Command{
	Use:     "stats KIND",
	Short:   "Summarize raw readings over a range",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		kind, err := schema.ParseSensorKind(args[0])
		if err != nil {
			return err
		}
		stats, err := queryService().Stats(rootCtx, kind, cfg.Start, cfg.End)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteStats(stats, cfg)
	},
}

// queryCompareCmd shows a minute aggregate next to its raw readings.
var queryCompareCmd = &cobra.Command{
	Use:     "compare KIND",
	Short:   "Show a minute aggregate next to the raw readings it was computed from",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		kind, err := schema.ParseSensorKind(args[0])
		if err != nil {
			return err
		}
		at, err := contract.ParseTimeArg(viper.GetString("at"), time.Now(), cfg.Location)
		if err != nil {
			return err
		}
		if at.IsZero() {
			return errors.New("--at is required for compare")
		}
		cmp, err := queryService().Compare(rootCtx, kind, at)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteComparison(cmp, cfg)
	},
}
