package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/edibox/cmd/app/commands"
	"github.com/allisson/edibox/internal/app"
	"github.com/allisson/edibox/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "watch-intake",
			Usage: "Ingest files dropped into the intake directory",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "dir",
					Aliases: []string{"d"},
					Usage:   "Directory to watch (defaults to INTAKE_WATCH_DIR)",
				},
				&cli.BoolFlag{
					Name:  "once",
					Value: false,
					Usage: "Ingest the files currently present and exit",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if dir := cmd.String("dir"); dir != "" {
					cfg.IntakeWatchDir = dir
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				watcher, err := container.IntakeWatcher()
				if err != nil {
					return err
				}

				var intakeWatcher commands.IntakeWatcher
				if watcher != nil {
					intakeWatcher = watcher
				}

				return commands.RunWatchIntake(
					ctx,
					intakeWatcher,
					container.Logger(),
					commands.DefaultIO().Writer,
					cfg.IntakeWatchDir,
					cmd.Bool("once"),
					cmd.String("format"),
				)
			},
		},
	}
}
