package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snatch/internal/ipc"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for a single download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Describe(resolveJobID(client, args[0]))
				if err != nil {
					return err
				}
				job := resp.Job
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "ID:         %s\n", job.ID)
				fmt.Fprintf(stdout, "Title:      %s\n", job.Title)
				fmt.Fprintf(stdout, "URL:        %s\n", job.URL)
				fmt.Fprintf(stdout, "Format:     %s\n", job.Format)
				fmt.Fprintf(stdout, "Status:     %s\n", job.Status)
				fmt.Fprintf(stdout, "Progress:   %.1f%%\n", job.Progress)
				fmt.Fprintf(stdout, "Speed:      %s\n", job.Speed)
				fmt.Fprintf(stdout, "ETA:        %s\n", job.ETA)
				fmt.Fprintf(stdout, "Size:       %s\n", job.Size)
				fmt.Fprintf(stdout, "Downloaded: %s\n", job.Downloaded)
				fmt.Fprintf(stdout, "Added:      %s\n", formatTimestamp(job.Timestamp))
				if job.FilePath != "" {
					fmt.Fprintf(stdout, "File:       %s\n", job.FilePath)
				}
				if job.Error != "" {
					fmt.Fprintf(stdout, "Error:      %s\n", job.Error)
				}
				return nil
			})
		},
	}
}

// resolveJobID expands an unambiguous id prefix to the full job id so users
// can paste the short ids printed by `snatch list`.
func resolveJobID(client *ipc.Client, arg string) string {
	resp, err := client.List(nil)
	if err != nil {
		return arg
	}
	match := ""
	for _, job := range resp.Jobs {
		if job.ID == arg {
			return arg
		}
		if len(arg) >= 4 && len(job.ID) > len(arg) && job.ID[:len(arg)] == arg {
			if match != "" {
				return arg
			}
			match = job.ID
		}
	}
	if match != "" {
		return match
	}
	return arg
}
