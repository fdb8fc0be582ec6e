package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/edibox/cmd/app/commands"
	"github.com/allisson/edibox/internal/app"
	"github.com/allisson/edibox/internal/config"
)

func getMaintenanceCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "purge-discarded",
			Usage: "Permanently delete transactions discarded more than the specified days ago",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Purge transactions discarded more than this many days ago",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many transactions would be purged without deleting",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				lifecycle, err := container.LifecycleUseCase()
				if err != nil {
					return err
				}

				return commands.RunPurgeDiscarded(
					ctx,
					lifecycle,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "recover-stuck",
			Usage: "Mark transactions stuck in processing as failed",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:    "older-than",
					Aliases: []string{"o"},
					Usage:   "Age after which a processing transaction is stuck (defaults to PROCESSING_STUCK_AFTER_MINUTES)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				lifecycle, err := container.LifecycleUseCase()
				if err != nil {
					return err
				}

				olderThan := cmd.Duration("older-than")
				if olderThan == 0 {
					olderThan = cfg.ProcessingStuckAfter
				}

				return commands.RunRecoverStuck(
					ctx,
					lifecycle,
					container.Logger(),
					commands.DefaultIO().Writer,
					olderThan,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "clean-history",
			Usage: "Delete history entries older than specified days",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Delete history entries older than this many days",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many entries would be deleted without deleting",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				lifecycle, err := container.LifecycleUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanHistory(
					ctx,
					lifecycle,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "verify-history",
			Usage: "Verify the signatures of history entries",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "start-date",
					Aliases: []string{"s"},
					Usage:   "Start date in YYYY-MM-DD or YYYY-MM-DD HH:MM:SS format",
				},
				&cli.StringFlag{
					Name:    "end-date",
					Aliases: []string{"e"},
					Usage:   "End date in YYYY-MM-DD or YYYY-MM-DD HH:MM:SS format",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				lifecycle, err := container.LifecycleUseCase()
				if err != nil {
					return err
				}

				return commands.RunVerifyHistory(
					ctx,
					lifecycle,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("start-date"),
					cmd.String("end-date"),
					cmd.String("format"),
				)
			},
		},
	}
}
