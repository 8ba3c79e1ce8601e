package main

import (
	"path/filepath"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// StatusStoppedScenario verifies status and stop when no daemon runs.
func StatusStoppedScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "inboxd-status-stopped",
		Description: "Verifies that status exits non-zero and stop is a no-op without a daemon.",
		Tags:        []string{"daemon"},
		Steps: []harness.Step{
			harness.NewStep("Run 'inboxd status'", func(ctx *harness.Context) error {
				bin, err := findInboxdBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(bin, "status")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(1, result.ExitCode, "status should exit 1 when stopped"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "not running", "status should say the daemon is not running")
			}),
			harness.NewStep("Run 'inboxd stop'", func(ctx *harness.Context) error {
				bin, err := findInboxdBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(bin, "stop")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "stop should succeed"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Daemon is not running", "stop should report nothing to stop")
			}),
		},
	}
}

// AnonymousCountsScenario verifies that an anonymous session makes no
// requests: the configured instance is unreachable on purpose.
func AnonymousCountsScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "inboxd-counts-anonymous",
		Description: "Verifies that counts without a login neither fetches nor fails.",
		Tags:        []string{"counts"},
		Steps: []harness.Step{
			harness.NewStep("Run 'inboxd counts' logged out", func(ctx *harness.Context) error {
				dir := ctx.NewDir("anon")
				if err := fs.WriteString(filepath.Join(dir, "inbox.yml"), "instance: http://127.0.0.1:1\n"); err != nil {
					return err
				}
				bin, err := findInboxdBinary()
				if err != nil {
					return err
				}

				cmd := ctx.Command(bin, "counts").Dir(dir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "counts should succeed"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Not logged in", "counts should report the anonymous session")
			}),
		},
	}
}
