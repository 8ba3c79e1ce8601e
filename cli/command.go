package cli

import (
	"github.com/grovetools/inbox/config"
	"github.com/grovetools/inbox/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the options shared by every inboxd command.
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a command with the standard inboxd flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to inbox.yml or inbox.toml")

	SetStyledHelp(cmd)

	return cmd
}

// GetOptions extracts common options from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// LoadConfig loads the configuration named by --config, or the layered
// default, and installs its logging section.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(GetOptions(cmd).ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := logging.Configure(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetLogger returns the component logger, raised to debug by --verbose.
func GetLogger(cmd *cobra.Command, component string) *logrus.Entry {
	entry := logging.NewLogger(component)
	if GetOptions(cmd).Verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	return entry
}
