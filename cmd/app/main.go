// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/vaultfs/cmd/app/commands"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "VaultFS encrypted file storage backend",
		Version: version,
		Commands: []*cli.Command{
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
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-master-key",
				Usage: "Generate a new master key for the key hierarchy",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kms-key-uri",
						Aliases: []string{"k"},
						Value:   "",
						Usage:   "Optional KMS keeper URI to wrap the key (e.g., base64key://..., gcpkms://...)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateMasterKey(ctx, cmd.String("kms-key-uri"), os.Stdout)
				},
			},
			{
				Name:  "rotate-kek",
				Usage: "Rotate the Key Encryption Key",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateKek(ctx)
				},
			},
			{
				Name:  "cleanup-uploads",
				Usage: "Reclaim abandoned pending uploads past their TTL",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanupUploads(ctx)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
