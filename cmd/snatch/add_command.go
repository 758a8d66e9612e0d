package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"snatch/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var formatID string
	var title string
	var audioOnly bool

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a new download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !audioOnly && strings.TrimSpace(formatID) == "" {
				return errors.New("a format id is required unless --audio is set (see `snatch info`)")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add(args[0], formatID, title, audioOnly)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Queued %s\n", resp.Job.Title)
				fmt.Fprintf(stdout, "ID: %s\n", resp.Job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&formatID, "format", "f", "", "Format id reported by `snatch info`")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Override the saved file title")
	cmd.Flags().BoolVarP(&audioOnly, "audio", "a", false, "Extract audio only")
	return cmd
}
