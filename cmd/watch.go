package cmd

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/logging"
	"github.com/grovetools/inbox/pkg/daemon"
	"github.com/grovetools/inbox/pkg/paths"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/grovetools/inbox/tui"
	"github.com/grovetools/inbox/tui/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var manageVisibility bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the unread counts live",
		Long: `Open a live view of the daemon's unread counts. Requires a running daemon.

With --visible, polling is resumed while the view is open and paused
again when it closes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := daemon.Connect(paths.SocketPath())
			if client == nil {
				return errors.DaemonNotRunning(paths.SocketPath())
			}
			defer client.Close()

			ctx := cmd.Context()
			if manageVisibility {
				if err := client.SetVisibility(ctx, visibility.Visible); err != nil {
					return err
				}
				defer func() { _ = client.SetVisibility(ctx, visibility.Hidden) }()
			}

			// Log lines on stderr would tear the view.
			logging.SetGlobalOutput(io.Discard)
			defer logging.SetGlobalOutput(os.Stderr)

			tui.InitializeTUI()
			p := tea.NewProgram(watch.New(ctx, client),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&manageVisibility, "visible", false, "Resume polling while watching and pause it on exit")
	return cmd
}
