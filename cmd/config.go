package cmd

import (
	"fmt"
	"os"

	"github.com/grovetools/inbox/cli"
	"github.com/grovetools/inbox/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the inboxd configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSchemaCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration and where it came from",
		Long: `Shows the files merged into the final configuration:
1. Global config (~/.config/inboxd/inbox.yml)
2. Project config (nearest inbox.yml or inbox.toml above the working directory)
Environment overrides (INBOXD_*) are applied to the final result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)

			var layers *config.Layers
			if opts.ConfigFile != "" {
				cfg, err := config.LoadFrom(opts.ConfigFile)
				if err != nil {
					return err
				}
				layers = &config.Layers{
					Final:     cfg,
					FilePaths: map[config.Source]string{config.SourceFile: opts.ConfigFile},
				}
			} else {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get current directory: %w", err)
				}
				layers, err = config.LoadLayered(cwd)
				if err != nil {
					return err
				}
			}

			if opts.JSONOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"sources": layers.FilePaths,
					"config":  layers.Final,
				})
			}

			out := cmd.OutOrStdout()
			for _, src := range []config.Source{config.SourceGlobal, config.SourceProject, config.SourceFile} {
				if path, ok := layers.FilePaths[src]; ok {
					fmt.Fprintf(out, "# %s: %s\n", src, path)
				}
			}
			data, err := yaml.Marshal(layers.Final)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of inbox.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
