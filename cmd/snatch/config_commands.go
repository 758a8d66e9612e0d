package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"snatch/internal/config"
	"snatch/internal/deps"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and bootstrap the configuration",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample config",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveInitTarget(targetPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sample config written to %s\n", target)
			fmt.Fprintln(out, "Set downloads.dir to where finished files should land, then start the daemon with `snatch start`.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the config (default: ~/.config/snatch/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing config file")
	return cmd
}

func resolveInitTarget(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return target, nil
	}
	target, err := config.ExpandPath(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and the external tools it points at",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config file:  %s\n", resolved)
			} else {
				fmt.Fprintf(out, "Config file:  %s (missing, using defaults)\n", resolved)
			}
			fmt.Fprintf(out, "Download dir: %s\n", cfg.Downloads.Dir)
			fmt.Fprintf(out, "State dir:    %s\n", cfg.Paths.StateDir)
			fmt.Fprintf(out, "Database:     %s\n", cfg.DatabasePath())
			fmt.Fprintf(out, "Socket:       %s\n", cfg.SocketPath())

			missing := reportBinaries(out, cfg)

			if missing == 0 {
				fmt.Fprintln(out, "Configuration OK")
			} else {
				fmt.Fprintf(out, "Configuration OK, but %d required tool(s) missing\n", missing)
			}
			return nil
		},
	}
}

// reportBinaries prints one line per external tool and returns how many
// required ones are absent. Validation still succeeds without them so the
// config can be checked on a machine that is not the download host.
func reportBinaries(out io.Writer, cfg *config.Config) int {
	missing := 0
	for _, status := range deps.CheckBinaries(deps.Defaults(cfg.YtDlpBinary())) {
		if status.Available {
			fmt.Fprintf(out, "%-13s found (%s)\n", status.Name+":", status.Command)
			continue
		}
		if !status.Optional {
			missing++
		}
		fmt.Fprintf(out, "%-13s %s\n", status.Name+":", status.Detail)
	}
	return missing
}
