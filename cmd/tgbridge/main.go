// Package main is the entry point for the tgbridge CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/tgbridge/internal/config"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/pkg/app"

	// Compiled modules.
	_ "github.com/flemzord/tgbridge/internal/bridge"
	_ "github.com/flemzord/tgbridge/internal/cron"
	_ "github.com/flemzord/tgbridge/internal/gateway"
	_ "github.com/flemzord/tgbridge/internal/session"
	_ "github.com/flemzord/tgbridge/internal/telemetry"
	_ "github.com/flemzord/tgbridge/modules/engine/tdjson"
	_ "github.com/flemzord/tgbridge/modules/plugin/joinrequests"
	_ "github.com/flemzord/tgbridge/modules/store/sqlite"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tgbridge:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tgbridge",
		Short:         "A TDLib JSON bridge with rate limiting and request correlation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tgbridge %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func startCmd() *cobra.Command {
	var params app.RunParams
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start tgbridge with all configured modules",
		RunE: func(_ *cobra.Command, _ []string) error {
			params.Version = version
			params.Commit = commit
			params.Date = date
			return app.Run(params)
		},
	}
	cmd.Flags().StringVarP(&params.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&params.DataDir, "data-dir", "", "Directory for TDLib databases and the store")
	cmd.Flags().StringVar(&params.LogLevel, "log-level", "", "Minimum log level (debug, info, warn, error)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			// Provisioning opens databases; keep them out of the real data dir.
			scratch, err := os.MkdirTemp("", "tgbridge-check-")
			if err != nil {
				return err
			}
			defer func() { _ = os.RemoveAll(scratch) }()

			logger := slog.New(slog.NewTextHandler(c.ErrOrStderr(), &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			appCtx := core.NewAppContext(logger, scratch)
			appCtx = appCtx.WithModuleConfigs(cfg.Modules)

			application := core.NewApp(appCtx)
			ids := config.Resolve(cfg)
			if err := application.LoadModules(ids); err != nil {
				return err
			}
			defer application.Stop()

			out := c.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}
