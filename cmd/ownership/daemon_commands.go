package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ownership/internal/daemonctl"
	"ownership/internal/daemonrun"
	"ownership/internal/ipc"
	"ownership/internal/notifications"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the ownership daemon in the foreground",
		Long: "Holds the single-instance lock, loads every stored record into memory,\n" +
			"serves check/register requests on the IPC socket and, when watch.enabled\n" +
			"is set, registers files dropped into the inbox directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			socket := ""
			if ctx.socketFlag != nil {
				socket = *ctx.socketFlag
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel, SocketPath: socket})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	return cmd
}

func newReloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the daemon's in-memory index from the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				n, err := client.Reload()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reloaded %d record%s\n", n, plural(n))
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing notification response")
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
			if err == nil {
				return nil
			}
			if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return err
			}

			// No daemon: publish from this process.
			cfg, cfgErr := ctx.ensureConfig()
			if cfgErr != nil {
				return cfgErr
			}
			if cfg.Notifications.NtfyTopic == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "ntfy topic not configured")
				return nil
			}
			if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "test notification sent")
			return nil
		},
	}
}
