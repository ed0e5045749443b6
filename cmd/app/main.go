// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/mailroom/cmd/app/commands"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "mailroom",
		Usage:   "Reliable mail delivery queue",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP API server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "worker",
				Usage: "Start the queue dispatch scheduler",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunWorker(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "enqueue",
				Usage: "Enqueue a message for delivery",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "to",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Recipient email address",
					},
					&cli.StringFlag{
						Name:     "subject",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "Message subject",
					},
					&cli.StringFlag{
						Name:     "body",
						Aliases:  []string{"b"},
						Required: true,
						Usage:    "Message body",
					},
					&cli.BoolFlag{
						Name:  "html",
						Value: false,
						Usage: "Send body as HTML instead of plain text",
					},
					&cli.IntFlag{
						Name:    "priority",
						Aliases: []string{"p"},
						Value:   0,
						Usage:   "Priority: 1=high, 2=normal, 3=low (0 uses the configured default)",
					},
					&cli.StringFlag{
						Name:  "scheduled-for",
						Usage: "Defer dispatch until this time (RFC 3339)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunEnqueue(
						ctx,
						commands.EnqueueOptions{
							To:           cmd.String("to"),
							Subject:      cmd.String("subject"),
							Body:         cmd.String("body"),
							IsHTML:       cmd.Bool("html"),
							Priority:     cmd.Int("priority"),
							ScheduledFor: cmd.String("scheduled-for"),
							Format:       cmd.String("format"),
						},
					)
				},
			},
			{
				Name:  "process-queue",
				Usage: "Run one dispatch cycle and exit",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "batch-size",
						Aliases: []string{"n"},
						Value:   0,
						Usage:   "Maximum messages to process (0 uses the configured default)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunProcessQueue(ctx, cmd.Int("batch-size"), cmd.String("format"))
				},
			},
			{
				Name:  "queue-stats",
				Usage: "Show queue statistics",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunQueueStats(ctx, cmd.String("format"))
				},
			},
			{
				Name:  "test-transport",
				Usage: "Probe SMTP connectivity without sending a message",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunTestTransport(ctx)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
