package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"snatch/internal/ipc"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info <url>",
		Short: "Inspect a video URL and list downloadable formats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Info(args[0])
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing info response")
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Title: %s\n", resp.Info.Title)
				if resp.Info.Duration > 0 {
					fmt.Fprintf(stdout, "Duration: %s\n", formatDuration(resp.Info.Duration))
				}

				if len(resp.Info.Formats) > 0 {
					fmt.Fprintln(stdout, "\nVideo formats:")
					rows := make([][]string, 0, len(resp.Info.Formats))
					for _, format := range resp.Info.Formats {
						rows = append(rows, []string{format.ID, format.Resolution, format.Ext, yesNo(format.HasAudio), format.Size})
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"ID", "Resolution", "Ext", "Audio", "Size"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
					))
				}

				if len(resp.Info.AudioFormats) > 0 {
					fmt.Fprintln(stdout, "\nAudio formats:")
					rows := make([][]string, 0, len(resp.Info.AudioFormats))
					for _, format := range resp.Info.AudioFormats {
						rows = append(rows, []string{format.ID, format.Resolution, format.Ext, format.Size})
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"ID", "Bitrate", "Ext", "Size"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
