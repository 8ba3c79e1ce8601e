package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ConfigureColor drops styling when NO_COLOR is set, when stdout is not a
// terminal, or when output is JSON.
func ConfigureColor(jsonOutput bool) {
	if jsonOutput || termenv.EnvNoColor() || !isatty.IsTerminal(os.Stdout.Fd()) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
