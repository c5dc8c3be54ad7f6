package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"lapse/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past recording sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No recorded sessions yet.")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(resp.Entries))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to show (0 for all)")
	return cmd
}

// renderHistoryTable draws the session list. The numeric Frames and
// Duration columns are right-aligned, everything else stays left.
func renderHistoryTable(entries []ipc.HistoryEntry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Started", "Workspace", "Outcome", "Frames", "Duration", "Video"})
	for _, entry := range entries {
		row := historyRow(entry)
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		tw.AppendRow(tr)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func historyRow(entry ipc.HistoryEntry) []string {
	outcome := entry.Outcome
	if outcome == "" {
		outcome = "in progress"
	}

	duration := ""
	if entry.FinishedAt != nil {
		duration = formatDuration(entry.FinishedAt.Sub(entry.StartedAt))
	}

	video := ""
	if entry.ArtifactPath != "" {
		video = filepath.Base(entry.ArtifactPath)
		if entry.Codec != "" {
			video = fmt.Sprintf("%s (%s)", video, entry.Codec)
		}
	} else if entry.ErrorMessage != "" {
		video = truncate(entry.ErrorMessage, 48)
	}

	return []string{
		entry.StartedAt.Local().Format(time.DateTime),
		filepath.Base(entry.Workspace),
		outcome,
		fmt.Sprintf("%d", entry.FrameCount),
		duration,
		video,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
