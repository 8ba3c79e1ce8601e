// Package badge decides which unread badges a consumer shows and how the
// counts are printed.
package badge

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Format renders n in compact SI notation with at most three significant
// digits: 999 -> "999", 1234 -> "1.23K", 15300 -> "15.3K", 2000000 -> "2M".
func Format(n int) string {
	if n < 0 {
		return "-" + Format(-n)
	}
	if n < 1000 {
		return strconv.Itoa(n)
	}

	value, prefix := humanize.ComputeSI(float64(n))
	// ComputeSI goes through logarithms and can land one prefix low at exact
	// powers of 1000; rounding to three digits can also carry (999999 -> 1000K).
	rounded := round3(value)
	for rounded >= 1000 && prefix != "T" {
		rounded = round3(rounded / 1000)
		prefix = nextPrefix(prefix)
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64) + strings.ToUpper(prefix)
}

func round3(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 3, 64), 64)
	return r
}

func nextPrefix(prefix string) string {
	switch prefix {
	case "":
		return "k"
	case "k":
		return "M"
	case "M":
		return "G"
	}
	return "T"
}

// Kind names one of the unread badges.
type Kind string

const (
	Inbox        Kind = "inbox"
	Reports      Kind = "reports"
	Applications Kind = "applications"
)

// Badge is one badge a consumer should render.
type Badge struct {
	Kind  Kind   `json:"kind"`
	Count int    `json:"count"`
	Text  string `json:"text,omitempty"` // empty when Count is zero
}

// Viewer is what a consumer knows about the current user.
type Viewer struct {
	LoggedIn  bool `json:"logged_in"`
	Moderator bool `json:"moderator"`
	Admin     bool `json:"admin"`
}

// Counts are the derived unread totals.
type Counts struct {
	Inbox        int `json:"inbox"`
	Reports      int `json:"reports"`
	Applications int `json:"applications"`
}

// For returns the badges v is entitled to see, in display order. The inbox
// badge needs a login, reports need moderator rights, applications need admin.
func For(v Viewer, c Counts) []Badge {
	if !v.LoggedIn {
		return nil
	}
	badges := []Badge{newBadge(Inbox, c.Inbox)}
	if v.Moderator || v.Admin {
		badges = append(badges, newBadge(Reports, c.Reports))
	}
	if v.Admin {
		badges = append(badges, newBadge(Applications, c.Applications))
	}
	return badges
}

func newBadge(kind Kind, count int) Badge {
	b := Badge{Kind: kind, Count: count}
	if count > 0 {
		b.Text = Format(count)
	}
	return b
}
