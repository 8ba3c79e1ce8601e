package main

import (
	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/command"
	"github.com/grovetools/tend/pkg/harness"
)

// VersionScenario tests the 'version' command.
func VersionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "inboxd-version",
		Tags: []string{"basic"},
		Steps: []harness.Step{
			harness.NewStep("Run 'inboxd version'", func(ctx *harness.Context) error {
				bin, err := findInboxdBinary()
				if err != nil {
					return err
				}

				cmd := command.New(bin, "version")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "inboxd version should exit successfully"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Version:", "output should contain Version"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Commit:", "output should contain Commit")
			}),
		},
	}
}
