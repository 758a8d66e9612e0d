package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snatch/internal/ipc"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a queued or active download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(resolveJobID(client, args[0]))
				if err != nil {
					return err
				}
				if !resp.Cancelled {
					fmt.Fprintln(cmd.OutOrStdout(), "No such download")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Download cancelled")
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue a failed or cancelled download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry(resolveJobID(client, args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued as %s\n", resp.Job.ID)
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a download from history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Remove(resolveJobID(client, args[0]))
				if err != nil {
					return err
				}
				if !resp.Removed {
					fmt.Fprintln(cmd.OutOrStdout(), "No such download")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Download removed")
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed downloads from history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearCompleted()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d downloads\n", resp.Removed)
				return nil
			})
		},
	}
}
