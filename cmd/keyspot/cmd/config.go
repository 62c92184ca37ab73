package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corey/keyspot/internal/adapters/socket"
	"github.com/corey/keyspot/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the resolved keyword source, paths, and daemon status. No daemon required.",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := appConfig()
	paths := app.NewPaths(cfg.Home)
	sockPath := socketPath()

	client := socket.NewClient(sockPath)
	daemonRunning := client.Ping()
	daemonStatus := fmt.Sprintf("%s✗ not running%s", colorYellow, colorReset)
	if daemonRunning {
		daemonStatus = fmt.Sprintf("%s✓ running%s", colorGreen, colorReset)
	}

	source := cfg.Source
	if source == "" {
		source = app.SourceEmbedded
		if cfg.KeywordFile != "" {
			source = app.SourceFile
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s⚡ keyspot config%s\n", colorBold, colorReset)
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(out, "  Config:     %s\n", f)
	}
	fmt.Fprintf(out, "  Home:       %s\n", cfg.Home)
	fmt.Fprintf(out, "  Source:     %s\n", source)
	switch source {
	case app.SourceFile:
		fmt.Fprintf(out, "  File:       %s\n", cfg.KeywordFile)
	case app.SourceBbolt:
		fmt.Fprintf(out, "  Set:        %s\n", cfg.KeywordSet)
	case app.SourcePostgres:
		fmt.Fprintf(out, "  Table:      %s.%s\n", cfg.PostgresTable, cfg.PostgresColumn)
	}
	fmt.Fprintf(out, "  Engine:     %s\n", cfg.Engine)
	fmt.Fprintf(out, "  Fold case:  %t\n", cfg.FoldCase)
	fmt.Fprintf(out, "  DB:         %s\n", dbPath())
	fmt.Fprintf(out, "  Socket:     %s\n", sockPath)
	fmt.Fprintf(out, "  Daemon:     %s\n", daemonStatus)

	if daemonRunning {
		if port := paths.ReadPort(); port != 0 {
			fmt.Fprintf(out, "  HTTP:       http://127.0.0.1:%d\n", port)
		}
		if pid := paths.ReadPID(); pid != 0 {
			fmt.Fprintf(out, "  PID:        %d\n", pid)
		}
	}
	return nil
}
