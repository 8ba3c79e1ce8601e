// Package tui holds the terminal views of inboxd.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// InitializeTUI picks the color profile for a full-screen view.
// CLICOLOR_FORCE=1 or COLORTERM=truecolor force true color, which keeps
// output stable when the view runs under a test harness; NO_COLOR wins
// over both.
func InitializeTUI() {
	switch {
	case termenv.EnvNoColor():
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
