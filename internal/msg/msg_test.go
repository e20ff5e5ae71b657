package msg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevVerbosity, prevColor := Out, Verbosity, color.NoColor
	Out, color.NoColor = &buf, true
	t.Cleanup(func() {
		Out, Verbosity, color.NoColor = prevOut, prevVerbosity, prevColor
	})
	return &buf
}

func TestVerboseIsGated(t *testing.T) {
	buf := capture(t)

	Verbose("hidden %d", 1)
	assert.Empty(t, buf.String())

	Verbosity = true
	Verbose("shown %d", 2)
	assert.Equal(t, "debug: shown 2\n", buf.String())
}

func TestStepAndCommand(t *testing.T) {
	buf := capture(t)

	Step("Built", "%s", "ebin/a.beam")
	Command("erlc", []string{"-o", "ebin", "src/a.erl"})
	assert.Equal(t, "       Built ebin/a.beam\nerlc -o ebin src/a.erl\n", buf.String())
}

func TestStepAlignsColoredLabels(t *testing.T) {
	buf := capture(t)
	color.NoColor = false

	Step("Built", "a")
	Step("Cleaning", "b")
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "       Built\x1b")
	assert.Contains(t, lines[1], "    Cleaning\x1b")
	assert.Equal(t, len(lines[0]), len(lines[1]))
}

func TestIndentWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &IndentWriter{Indent: "  ", W: &buf}

	n, err := w.Write([]byte("a\nb"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	_, _ = w.Write([]byte("c\n"))
	assert.Equal(t, "  a\n  bc\n", buf.String())
}
