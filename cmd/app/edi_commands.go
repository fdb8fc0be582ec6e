package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/edibox/cmd/app/commands"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getEDICommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "detect",
			Usage:     "Detect the format of a document",
			ArgsUsage: "[file]",
			Flags:     []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				stdio := commands.DefaultIO()
				return commands.RunDetect(stdio.Reader, stdio.Writer, cmd.Args().First(), cmd.String("format"))
			},
		},
		{
			Name:      "parse",
			Usage:     "Extract metadata from an X12 or EDIFACT interchange",
			ArgsUsage: "[file]",
			Flags:     []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				stdio := commands.DefaultIO()
				return commands.RunParse(stdio.Reader, stdio.Writer, cmd.Args().First(), cmd.String("format"))
			},
		},
		{
			Name:      "validate",
			Usage:     "Check the structure of a document",
			ArgsUsage: "[file]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "expect",
					Aliases: []string{"e"},
					Usage:   "Required format (X12, EDIFACT, XML, JSON, CSV)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				stdio := commands.DefaultIO()
				return commands.RunValidate(
					stdio.Reader,
					stdio.Writer,
					cmd.Args().First(),
					cmd.String("expect"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:      "generate",
			Usage:     "Render a JSON metadata document as an interchange",
			ArgsUsage: "[metadata.json]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "dialect",
					Aliases: []string{"d"},
					Value:   "X12",
					Usage:   "Target dialect: 'X12' or 'EDIFACT'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				stdio := commands.DefaultIO()
				return commands.RunGenerate(stdio.Reader, stdio.Writer, cmd.Args().First(), cmd.String("dialect"))
			},
		},
	}
}
