package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lapse/internal/ipc"
	"lapse/internal/session"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				for _, line := range renderStatus(resp, colorize) {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
}

func renderStatus(resp *ipc.StatusResponse, colorize bool) []string {
	var lines []string
	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	runningKind := statusError
	runningDetail := "not running"
	if resp.Running {
		runningKind = statusOK
		runningDetail = fmt.Sprintf("pid %d", resp.PID)
	}
	lines = append(lines, renderStatusLine("Daemon", runningKind, runningDetail, colorize))
	lines = append(lines, renderStatusLine("Socket", statusInfo, resp.SocketPath, colorize))
	lines = append(lines, renderStatusLine("History DB", statusInfo, resp.HistoryDBPath, colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Session", colorize)...)
	lines = append(lines, renderSessionLines(resp.Session, colorize)...)

	if len(resp.Dependencies) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
		for _, dep := range resp.Dependencies {
			kind := statusOK
			detail := dep.Command
			if !dep.Available {
				kind = statusError
				if dep.Optional {
					kind = statusWarn
				}
				detail = dep.Detail
				if detail == "" {
					detail = fmt.Sprintf("%s not found", dep.Command)
				}
			}
			lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		}
	}
	return lines
}

func renderSessionLines(s ipc.SessionStatus, colorize bool) []string {
	var lines []string
	switch session.State(s.State) {
	case session.StateIdle:
		lines = append(lines, renderStatusLine("State", statusInfo, "idle", colorize))
		if s.LastArtifact != "" {
			detail := s.LastArtifact
			if s.LastCodec != "" {
				detail = fmt.Sprintf("%s (%s)", detail, s.LastCodec)
			}
			lines = append(lines, renderStatusLine("Last video", statusOK, detail, colorize))
		}
		if s.LastError != "" {
			lines = append(lines, renderStatusLine("Last error", statusError, s.LastError, colorize))
		}
	case session.StateRecording, session.StatePaused:
		kind := statusOK
		if session.State(s.State) == session.StatePaused {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine("State", kind, s.State, colorize))
		lines = append(lines, renderStatusLine("Workspace", statusInfo, s.Workspace, colorize))
		lines = append(lines, renderStatusLine("Started", statusInfo, formatStarted(s.StartedAt), colorize))
		lines = append(lines, renderStatusLine("Frames", statusInfo, fmt.Sprintf("%d", s.FrameCount), colorize))
	default:
		lines = append(lines, renderStatusLine("State", statusInfo, s.State, colorize))
		if s.Workspace != "" {
			lines = append(lines, renderStatusLine("Workspace", statusInfo, s.Workspace, colorize))
		}
		if s.Progress > 0 {
			lines = append(lines, renderStatusLine("Progress", statusInfo, fmt.Sprintf("%d%%", s.Progress), colorize))
		}
	}
	return lines
}

func formatStarted(startedAt time.Time) string {
	if startedAt.IsZero() {
		return "unknown"
	}
	elapsed := time.Since(startedAt).Round(time.Second)
	return fmt.Sprintf("%s (%s ago)", startedAt.Local().Format("15:04:05"), formatDuration(elapsed))
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return d.String()
	}
	d = d.Round(time.Second)
	return strings.TrimSuffix(d.String(), "0s")
}
