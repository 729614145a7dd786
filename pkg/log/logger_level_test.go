package log

import (
	"bytes"
	stdlog "log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":    LevelDebug,
		"DEBUG":    LevelDebug,
		" info ":   LevelInfo,
		"Warn":     LevelWarn,
		"ERROR":    LevelError,
		"fatal":    LevelFatal,
		"trace":    LevelInfo,
		"warning":  LevelInfo,
		"":         LevelInfo,
		"\tdebug ": LevelDebug,
	}

	for input, want := range cases {
		assert.Equal(t, want, ParseLevel(input), "input %q", input)
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelWarn)
	logger.logger = stdlog.New(&buf, "", 0)

	logger.Debug("quiet %d", 1)
	logger.Info("quiet %d", 2)
	logger.Warn("loud %d", 3)
	logger.Error("loud %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "loud 3")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "loud 4")
}

func TestLoggerSetLevelTakesEffect(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelError)
	logger.logger = stdlog.New(&buf, "", 0)

	logger.Info("first")
	require.Empty(t, buf.String())

	logger.SetLevel(LevelDebug)
	logger.Info("second")
	assert.Contains(t, buf.String(), "second")
}
