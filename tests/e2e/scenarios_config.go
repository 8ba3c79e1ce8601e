package main

import (
	"fmt"
	"path/filepath"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// ConfigLayeringScenario verifies that a project inbox.toml overrides the
// global inbox.yml key by key.
func ConfigLayeringScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "inboxd-config-layering",
		Description: "Verifies that global and project configs are merged correctly.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			{
				Name: "Setup layered configuration and verify merge logic",
				Func: func(ctx *harness.Context) error {
					projectDir := ctx.NewDir("project")
					nested := filepath.Join(projectDir, "sub", "dir")
					if err := fs.CreateDir(nested); err != nil {
						return err
					}

					if err := writeGlobalConfig(ctx, `instance: https://global.example
poll_interval: 2m
logging:
  level: warn
`); err != nil {
						return err
					}
					if err := fs.WriteString(filepath.Join(projectDir, "inbox.toml"), `instance = "https://project.example"
`); err != nil {
						return err
					}

					bin, err := findInboxdBinary()
					if err != nil {
						return err
					}
					cmd := ctx.Command(bin, "config", "show").Dir(nested)
					result := cmd.Run()
					ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
					if result.Error != nil {
						return fmt.Errorf("`inboxd config show` failed: %w", result.Error)
					}

					output := result.Stdout
					if err := assert.Contains(output, "instance: https://project.example", "project instance should win"); err != nil {
						return err
					}
					if err := assert.Contains(output, "poll_interval: 2m0s", "global poll interval should be kept"); err != nil {
						return err
					}
					if err := assert.Contains(output, "# project: "+filepath.Join(projectDir, "inbox.toml"), "project source should be listed"); err != nil {
						return err
					}
					return assert.Contains(output, "level: warn", "logging section should be carried through")
				},
			},
		},
	}
}

// ConfigMissingInstanceScenario verifies the error shown when no instance is configured.
func ConfigMissingInstanceScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "inboxd-config-missing-instance",
		Description: "Verifies that commands needing an instance fail with a validation error.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Run 'inboxd counts' without configuration", func(ctx *harness.Context) error {
				dir := ctx.NewDir("empty")
				bin, err := findInboxdBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(bin, "counts").Dir(dir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(1, result.ExitCode, "counts should fail without an instance"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "Invalid configuration for 'instance'", "error should name the field")
			}),
		},
	}
}

// ConfigSchemaScenario verifies that the config schema can be printed.
func ConfigSchemaScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "inboxd-config-schema",
		Tags: []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Run 'inboxd config schema'", func(ctx *harness.Context) error {
				bin, err := findInboxdBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(bin, "config", "schema")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "schema should print"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, `"poll_interval"`, "schema should describe poll_interval")
			}),
		},
	}
}
