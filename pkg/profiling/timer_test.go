package profiling

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderDisabled(t *testing.T) {
	r := &Recorder{}
	r.Start("ignored").Stop()

	var buf bytes.Buffer
	r.Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestRecorderNesting(t *testing.T) {
	r := &Recorder{}
	r.Enable()

	outer := r.Start("refresh")
	r.Start("load-config").Stop()
	r.Start("fetch").Stop()
	outer.Stop()
	r.Start("render").Stop()

	var buf bytes.Buffer
	r.Summarize(&buf)
	out := buf.String()

	assert.Contains(t, out, "\n  - refresh (")
	assert.Contains(t, out, "\n    - load-config (")
	assert.Contains(t, out, "\n    - fetch (")
	assert.Contains(t, out, "\n  - render (")
	assert.Less(t, strings.Index(out, "load-config"), strings.Index(out, "fetch"))
}
