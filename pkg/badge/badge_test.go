package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1K"},
		{1234, "1.23K"},
		{15300, "15.3K"},
		{999999, "1M"},
		{2000000, "2M"},
		{-5, "-5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%d)", tt.in)
	}
}

func TestFor(t *testing.T) {
	counts := Counts{Inbox: 3, Reports: 0, Applications: 1200}

	assert.Nil(t, For(Viewer{}, counts))

	user := For(Viewer{LoggedIn: true}, counts)
	assert.Equal(t, []Badge{{Kind: Inbox, Count: 3, Text: "3"}}, user)

	mod := For(Viewer{LoggedIn: true, Moderator: true}, counts)
	assert.Equal(t, []Badge{
		{Kind: Inbox, Count: 3, Text: "3"},
		{Kind: Reports, Count: 0},
	}, mod)

	admin := For(Viewer{LoggedIn: true, Moderator: true, Admin: true}, counts)
	assert.Len(t, admin, 3)
	assert.Equal(t, "1.2K", admin[2].Text)
}
