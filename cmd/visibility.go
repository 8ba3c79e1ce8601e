package cmd

import (
	"fmt"

	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/pkg/daemon"
	"github.com/grovetools/inbox/pkg/paths"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/spf13/cobra"
)

func newVisibilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "visibility <visible|hidden>",
		Short:     "Pause or resume background polling",
		Long:      "Tell the daemon whether anyone is looking at the counts. Polling pauses while hidden.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(visibility.Visible), string(visibility.Hidden)},
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := visibility.Parse(args[0])
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInvalidInput, err.Error())
			}

			client := daemon.Connect(paths.SocketPath())
			if client == nil {
				return errors.DaemonNotRunning(paths.SocketPath())
			}
			defer client.Close()

			if err := client.SetVisibility(cmd.Context(), state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Visibility set to %s\n", state)
			return nil
		},
	}
}
