package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"snatch/internal/ipc"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change runtime settings",
	}

	settingsCmd.AddCommand(newSettingsGetCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))

	return settingsCmd
}

func newSettingsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the active runtime settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetSettings()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Download path:  %s\n", resp.Settings.DownloadPath)
				fmt.Fprintf(stdout, "Max concurrent: %d\n", resp.Settings.MaxConcurrent)
				fmt.Fprintf(stdout, "Audio format:   %s\n", resp.Settings.AudioFormat)
				return nil
			})
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var downloadPath string
	var maxConcurrent int
	var audioFormat string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change runtime settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetSettings()
				if err != nil {
					return err
				}
				updated := resp.Settings
				if cmd.Flags().Changed("download-path") {
					updated.DownloadPath = strings.TrimSpace(downloadPath)
				}
				if cmd.Flags().Changed("max-concurrent") {
					updated.MaxConcurrent = maxConcurrent
				}
				if cmd.Flags().Changed("audio-format") {
					updated.AudioFormat = strings.TrimSpace(audioFormat)
				}

				saved, err := client.SaveSettings(updated)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, "Settings saved")
				fmt.Fprintf(stdout, "Download path:  %s\n", saved.Settings.DownloadPath)
				fmt.Fprintf(stdout, "Max concurrent: %d\n", saved.Settings.MaxConcurrent)
				fmt.Fprintf(stdout, "Audio format:   %s\n", saved.Settings.AudioFormat)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&downloadPath, "download-path", "", "Directory where finished files are written")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Maximum simultaneous downloads")
	cmd.Flags().StringVar(&audioFormat, "audio-format", "", "Audio extraction format (mp3, m4a, opus, ...)")
	return cmd
}
