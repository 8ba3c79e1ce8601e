package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/grovetools/inbox/cli"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/daemon"
	"github.com/grovetools/inbox/pkg/profiling"
	"github.com/grovetools/inbox/tui/watch"
	"github.com/spf13/cobra"
)

func newCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show the unread counts",
		Long: `Show the unread inbox, report and registration application counts.

With the daemon running this prints its latest totals. Without it, inboxd
fetches once from the instance.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c daemon.Client) (*api.Counts, error) {
				if c.IsRunning() {
					return c.Counts(cmd.Context())
				}
				return c.Refresh(cmd.Context())
			})
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the unread counts now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c daemon.Client) (*api.Counts, error) {
				return c.Refresh(cmd.Context())
			})
		},
	}
}

func withClient(cmd *cobra.Command, read func(daemon.Client) (*api.Counts, error)) error {
	client, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	span := profiling.Start("counts")
	counts, err := read(client)
	span.Stop()
	if err != nil {
		return err
	}

	if cli.GetOptions(cmd).JSONOutput {
		return printJSON(cmd.OutOrStdout(), counts)
	}
	fmt.Fprint(cmd.OutOrStdout(), watch.RenderCounts(*counts))
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
