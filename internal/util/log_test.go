package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LogLevelInfo)

	l.Debug("hidden %d", 1)
	l.Info("mined %d records", 42)
	l.Warn("cache miss")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] mined 42 records")
	assert.Contains(t, out, "[WARN] cache miss")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LogLevelInfo, ParseLevel("Info"))
	assert.Equal(t, LogLevelWarn, ParseLevel(""))
	assert.Equal(t, LogLevelWarn, ParseLevel("verbose"))
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Error("nothing") })
}
