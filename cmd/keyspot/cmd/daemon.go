package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corey/keyspot/internal/adapters/socket"
	"github.com/corey/keyspot/internal/app"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the keyspot daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonStartCmd.Flags().Int("http-port", 0, "HTTP port (0 computes one from the home path, -1 disables HTTP)")
	daemonStartCmd.Flags().Bool("watch", true, "reload when the keyword file changes")
	cobra.CheckErr(viper.BindPFlag("daemon.http_port", daemonStartCmd.Flags().Lookup("http-port")))
	cobra.CheckErr(viper.BindPFlag("daemon.watch", daemonStartCmd.Flags().Lookup("watch")))

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	sockPath := socketPath()

	client := socket.NewClient(sockPath)
	if client.Ping() {
		fmt.Fprintln(cmd.OutOrStdout(), "⚡ daemon already running")
		return nil
	}

	a, err := app.New(context.Background(), appConfig())
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("%s", diagnoseDBLock(sockPath))
		}
		return fmt.Errorf("init: %w", err)
	}

	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}
	if err := a.Paths.WritePID(); err != nil {
		logrus.WithError(err).Warn("write pid file")
	}

	out := cmd.OutOrStdout()
	st := a.Stats()
	fmt.Fprintf(out, "⚡ keyspot daemon started at %s\n", sockPath)
	fmt.Fprintf(out, "  %d patterns from %s\n", st.Patterns, st.Source)
	if a.WebServer != nil && a.WebServer.Port() != 0 {
		fmt.Fprintf(out, "  %s\n", a.WebServer.URL())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-a.Server.ShutdownCh():
	}

	fmt.Fprintln(out, "\n⚡ shutting down...")
	err = a.Stop()
	a.Paths.CleanEphemeral()
	return err
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	client := socket.NewClient(socketPath())

	if !client.Ping() {
		fmt.Fprintln(cmd.OutOrStdout(), "⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "⚡ daemon stopped")
	return nil
}
