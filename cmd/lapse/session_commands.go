package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lapse/internal/config"
	"lapse/internal/ipc"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var workspaceFlag string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording the current workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace, err := resolveWorkspace(workspaceFlag)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start(workspace)
				if err != nil {
					return err
				}
				if !resp.Started {
					return fmt.Errorf("start recording: %s", resp.Message)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Recording started (session %s)\n", resp.SessionID)
				fmt.Fprintf(out, "Workspace: %s\n", workspace)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&workspaceFlag, "workspace", "w", "", "Directory to record (defaults to the current directory)")
	return cmd
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause or resume the active recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TogglePause()
				if err != nil {
					return err
				}
				if resp.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), capitalize(resp.Message))
					return nil
				}
				if resp.Paused {
					fmt.Fprintln(cmd.OutOrStdout(), "Recording paused")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Recording resumed")
				}
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				// The pause signal is a toggle; only flip it when the
				// session is actually paused.
				if status.Session.State != "paused" {
					fmt.Fprintln(out, "No paused recording to resume")
					return nil
				}
				resp, err := client.TogglePause()
				if err != nil {
					return err
				}
				if resp.Paused {
					fmt.Fprintln(out, capitalize(resp.Message))
					return nil
				}
				fmt.Fprintln(out, "Recording resumed")
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active recording and build the video",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if !resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), capitalize(resp.Message))
					return nil
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Recording stopping; the video will be assembled once capture ends.")
				fmt.Fprintln(out, "Run `lapse status` to watch finalization progress.")
				return nil
			})
		},
	}
}

func resolveWorkspace(flag string) (string, error) {
	workspace := strings.TrimSpace(flag)
	if workspace == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		return cwd, nil
	}
	expanded, err := config.ExpandPath(workspace)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}
	return abs, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
