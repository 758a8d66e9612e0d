package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"snatch/internal/ipc"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List downloads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List(listStatuses)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No downloads")
					return nil
				}
				titleLimit := 0
				if isTerminal(cmd.OutOrStdout()) {
					titleLimit = 48
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Speed", "ETA", "Added"},
					buildListRows(resp.Jobs, titleLimit),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by download status (repeatable)")
	return cmd
}

func buildListRows(jobs []ipc.Job, titleLimit int) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		title := job.Title
		if titleLimit > 0 {
			title = truncate(title, titleLimit)
		}
		rows = append(rows, []string{
			shortID(job.ID),
			title,
			job.Status,
			fmt.Sprintf("%.1f%%", job.Progress),
			job.Speed,
			job.ETA,
			formatTimestamp(job.Timestamp),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func formatTimestamp(value string) string {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04")
}
