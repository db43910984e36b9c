package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetLevel(LevelInfo)

	SetLevel(LevelInfo)
	Debug("hidden", "k", "v")
	assert.Empty(t, buf.String())

	Info("shown", "event", 3, 42, "dropped", "trailing")
	out := buf.String()
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "event=3")
	assert.NotContains(t, out, "dropped")

	buf.Reset()
	SetLevel(LevelError)
	Info("hidden again")
	Error("failed", errors.New("boom"), "scope", "event")
	out = buf.String()
	assert.NotContains(t, out, "hidden again")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "scope=event")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
