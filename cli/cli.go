package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/suiterun/suiterun/registry"
	"github.com/urfave/cli/v2"
)

const AppName = "suiterun"

type App struct {
	logger   zerolog.Logger
	registry *registry.Registry
	cli      *cli.App
}

// New builds the CLI around a populated unit registry. The registry is
// read-only from here on.
func New(reg *registry.Registry) *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger:   logger,
		registry: reg,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Discover and execute test units with coverage aggregation and artifact lifecycle management",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "debug",
					Usage: "Enable debug logging",
				},
				&cli.StringFlag{
					Name:  "config",
					Usage: "Path to a suiterun config file (default: .suiterun.yaml when present)",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("debug") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Execute units and report outcomes",
		ArgsUsage: "[PATTERN...]",
		Action:    app.run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Execution mode: standalone, discovery or automated",
				Value: "discovery",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of parallel workers (default: available cores)",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Only run units carrying this tag (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Verbose output; pins artifacts so the end-of-run sweep keeps them",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Make structural violations and the coverage gate fatal",
			},
			&cli.DurationFlag{
				Name:  "budget",
				Usage: "Wall-clock budget for the whole run (automated mode)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-unit timeout (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Unit parameter override as key=value (repeatable)",
			},
		},
		Description: `Execute units and report outcomes.

Modes:
  standalone  One or more explicitly named units on a single worker,
              verbose and plotting enabled. For interactive inspection.
  discovery   All units matching the filter, quiet, parallel workers.
  automated   Discovery plus a wall-clock budget; exceeding the budget
              fails the run.

Exit codes:
  0  run passed
  1  unit failures (failed / errored / timed out)
  2  coverage gate or structural violations (with --strict)
  3  run budget exceeded`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "units",
		Usage:  "List registered units",
		Action: app.units,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Only list units carrying this tag (repeatable)",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous runs",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:  "failed",
				Usage: "Only show failed runs",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "view",
		Usage:     "View a recorded run report",
		ArgsUsage: "[ID|INDEX]",
		Action:    app.view,
		Description: `View a recorded run report.

Arguments:
  0           View last run (default)
  -1          View 2nd last run
  -2          View 3rd last run
  <hex-id>    View the run matching the hex ID prefix`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "sweep",
		Usage:  "Remove ephemeral artifacts from the store",
		Action: app.sweep,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pinned",
				Usage: "Also remove pinned artifacts",
			},
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
