package cmd

import (
	"path/filepath"

	"github.com/grovetools/inbox/pkg/paths"
	"github.com/spf13/cobra"
)

// pathsOutput lists the files and directories inboxd uses.
type pathsOutput struct {
	ConfigDir string `json:"config_dir"`
	StateDir  string `json:"state_dir"`
	LogDir    string `json:"log_dir"`
	TokenFile string `json:"token_file"`
	Socket    string `json:"socket"`
	PidFile   string `json:"pid_file"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by inboxd",
		Long: `Print the paths used by inboxd as JSON.

The paths follow the XDG Base Directory Specification, or live under
$INBOXD_HOME when it is set. token_file is the default and may be
overridden in inbox.yml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), pathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				LogDir:    filepath.Join(paths.StateDir(), "logs"),
				TokenFile: paths.TokenFile(),
				Socket:    paths.SocketPath(),
				PidFile:   paths.PidFilePath(),
			})
		},
	}
}
