package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/keyspot/internal/adapters/socket"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon status",
	RunE:  runHealth,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the daemon's active keyword set and counters",
	RunE:  runStats,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Make the daemon re-read its keyword source",
	RunE:  runReload,
}

// daemonClient returns a client for the running daemon, or nil after
// telling the user no daemon answers.
func daemonClient(cmd *cobra.Command) *socket.Client {
	client := socket.NewClient(socketPath())
	if !client.Ping() {
		fmt.Fprintln(cmd.OutOrStdout(), "⚡ keyspot daemon is not running")
		return nil
	}
	return client
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := daemonClient(cmd)
	if client == nil {
		return nil
	}
	health, err := client.Health()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatHealth(health))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	client := daemonClient(cmd)
	if client == nil {
		return nil
	}
	stats, err := client.Stats()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatStats(stats))
	return nil
}

func runReload(cmd *cobra.Command, args []string) error {
	client := daemonClient(cmd)
	if client == nil {
		return nil
	}
	res, err := client.Reload()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatReload(res))
	return nil
}
