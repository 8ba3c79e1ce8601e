// Package cmd holds the inboxd command tree.
package cmd

import (
	"io"
	"os"

	"github.com/grovetools/inbox/cli"
	"github.com/grovetools/inbox/pkg/profiling"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the inboxd command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("inboxd", "Unread counts for a Lemmy account")
	root.Long = `inboxd keeps the unread inbox, report and registration application
counts of a Lemmy account up to date.

Run 'inboxd start' to poll in the background, then read the counts with
'inboxd counts' or watch them live with 'inboxd watch'. Without a running
daemon, 'inboxd counts' fetches once in-process.`

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(root)

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cli.ConfigureColor(cli.GetOptions(cmd).JSONOutput)
		return profiler.PreRun(cmd, args)
	}
	root.PersistentPostRun = profiler.PostRun

	root.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newCountsCmd(),
		newRefreshCmd(),
		newWatchCmd(),
		newVisibilityCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newConfigCmd(),
		newLogsCmd(),
		newPathsCmd(),
		cli.NewVersionCommand("inboxd"),
	)

	cli.ApplyStyledHelpRecursive(root)
	return root
}

// Execute runs the root command and reports any error on stderr. It
// returns the process exit code.
func Execute() int {
	return execute(NewRootCmd(), os.Args[1:], os.Stderr)
}

func execute(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	verbose := false
	if cmd != nil {
		verbose = cli.GetOptions(cmd).Verbose
	}
	_ = cli.NewErrorHandler(stderr, verbose).Handle(err)
	return 1
}
