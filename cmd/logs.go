package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/inbox/cli"
	"github.com/grovetools/inbox/config"
	"github.com/grovetools/inbox/logging"
	"github.com/grovetools/inbox/pkg/logging/logutil"
	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// tailedLine is one line read from a component's log file.
type tailedLine struct {
	Component string
	Line      string
}

var (
	componentTagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	levelStyles       = map[string]lipgloss.Style{
		"error": lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		"warn":  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"debug": lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

func newLogsCmd() *cobra.Command {
	var (
		follow     bool
		lines      int
		components []string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon's log files",
		Long: `Print the newest log file of each component from the state directory,
or the file named by logging.file.path.

Examples:
  # Follow the daemon and poller logs
  inboxd logs -f -C inboxd,inbox

  # Last 20 lines of every component
  inboxd logs -n 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.GetLogger(cmd, "logs")

			files, err := logutil.FindLogFiles(logFileConfig(cmd), components)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				logger.Info("No log files found")
				return nil
			}

			lineChan := make(chan tailedLine, 100)
			var wg sync.WaitGroup
			for component, path := range files {
				logger.WithFields(logrus.Fields{"component": component, "path": path}).Debug("Tailing log file")
				wg.Add(1)
				go func(component, path string) {
					defer wg.Done()
					if err := tailLog(component, path, follow, lines, lineChan); err != nil {
						logger.WithError(err).WithField("path", path).Warn("Failed to tail log file")
					}
				}(component, path)
			}
			go func() {
				wg.Wait()
				close(lineChan)
			}()

			jsonOutput := cli.GetOptions(cmd).JSONOutput
			prefix := len(files) > 1
			for tl := range lineChan {
				if jsonOutput {
					fmt.Fprintln(cmd.OutOrStdout(), tl.Line)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatLogLine(tl, prefix))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show from the end of each file (-1 for all)")
	cmd.Flags().StringSliceVarP(&components, "component", "C", nil, "Only show these components (comma-separated)")
	return cmd
}

// logFileConfig returns the logging section of the configuration, or the
// zero value when no configuration can be loaded.
func logFileConfig(cmd *cobra.Command) logging.Config {
	var logCfg logging.Config
	if cfg, err := config.Load(cli.GetOptions(cmd).ConfigFile); err == nil {
		_ = cfg.UnmarshalExtension("logging", &logCfg)
	}
	return logCfg
}

// tailLog sends the last n lines of path and, when follow is set, every
// line appended after that.
func tailLog(component, path string, follow bool, n int, out chan<- tailedLine) error {
	offset, err := logutil.LastLinesOffset(path, n)
	if err != nil {
		return err
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()

	for line := range t.Lines {
		if line.Err != nil {
			return line.Err
		}
		out <- tailedLine{Component: component, Line: line.Text}
	}
	return t.Err()
}

// formatLogLine renders a JSON log line as "time level message fields";
// other lines pass through unchanged.
func formatLogLine(tl tailedLine, prefix bool) string {
	text := tl.Line
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(tl.Line), &entry); err == nil {
		level, _ := entry["level"].(string)
		msg, _ := entry["msg"].(string)
		ts, _ := entry["time"].(string)

		keys := make([]string, 0, len(entry))
		for k := range entry {
			switch k {
			case "level", "msg", "time", "component":
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		if ts != "" {
			b.WriteString(ts + " ")
		}
		lvl := strings.ToUpper(level)
		if style, ok := levelStyles[level]; ok {
			lvl = style.Render(lvl)
		}
		b.WriteString(lvl + " " + msg)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry[k])
		}
		text = b.String()
	}
	if prefix {
		return componentTagStyle.Render("["+tl.Component+"]") + " " + text
	}
	return text
}
