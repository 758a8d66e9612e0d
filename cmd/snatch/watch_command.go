package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"snatch/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream download events as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				cmdCtx := cmd.Context()
				var cursor int64
				for {
					resp, err := client.Events(cursor, 25*time.Second)
					if err != nil {
						return fmt.Errorf("poll events: %w", err)
					}
					for _, event := range resp.Events {
						fmt.Fprintln(cmd.OutOrStdout(), renderEvent(event))
					}
					cursor = resp.Cursor
					select {
					case <-cmdCtx.Done():
						return nil
					default:
					}
				}
			})
		},
	}
}

func renderEvent(event ipc.Event) string {
	if event.Type == "deleted" || event.Job == nil {
		return fmt.Sprintf("%s  %s %s", time.Now().Format("15:04:05"), shortID(event.JobID), event.Type)
	}
	job := event.Job
	switch job.Status {
	case "downloading":
		return fmt.Sprintf("%s  %s %-11s %5.1f%%  %s  ETA %s  %s",
			time.Now().Format("15:04:05"), shortID(job.ID), job.Status, job.Progress, job.Speed, job.ETA, truncate(job.Title, 40))
	case "failed":
		return fmt.Sprintf("%s  %s %-11s %s (%s)",
			time.Now().Format("15:04:05"), shortID(job.ID), job.Status, truncate(job.Title, 40), job.Error)
	default:
		return fmt.Sprintf("%s  %s %-11s %s",
			time.Now().Format("15:04:05"), shortID(job.ID), job.Status, truncate(job.Title, 40))
	}
}
