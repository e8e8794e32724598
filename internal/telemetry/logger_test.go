package telemetry

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetToStdout restores the package logger to its init() state so tests
// don't leak file handles or a non-default level/format into later tests.
func resetToStdout(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		currentLevel.Store(int32(LevelInfo))
		currentFormat.Store("text")
		reconfigure("text", os.Stdout)
	})
}

func TestInitWritesToFileInRequestedFormat(t *testing.T) {
	resetToStdout(t)

	path := filepath.Join(t.TempDir(), "jaeger.log")
	require.NoError(t, Init(Config{Level: "DEBUG", Format: "json", Output: path}))

	Info("fleet ready", "positioners", 5)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"msg":"fleet ready"`)
	assert.Contains(t, line, `"positioners":5`)
}

func TestSetLevelFiltersBelowThreshold(t *testing.T) {
	resetToStdout(t)

	path := filepath.Join(t.TempDir(), "jaeger.log")
	require.NoError(t, Init(Config{Level: "WARN", Format: "text", Output: path}))

	Info("should be filtered out")
	Warn("should appear")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := countNonEmptyLines(string(data))
	assert.Equal(t, 1, lines)
	assert.Contains(t, string(data), "should appear")
}

func TestSetLevelIgnoresUnrecognisedName(t *testing.T) {
	resetToStdout(t)
	SetLevel("WARN")
	require.Equal(t, LevelWarn, Level(currentLevel.Load()))

	SetLevel("NOT_A_LEVEL")
	assert.Equal(t, LevelWarn, Level(currentLevel.Load()))
}

func TestWithBindsFields(t *testing.T) {
	resetToStdout(t)

	path := filepath.Join(t.TempDir(), "jaeger.log")
	require.NoError(t, Init(Config{Level: "INFO", Format: "json", Output: path}))

	With("positioner_id", 7).Info("moved")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"positioner_id":7`)
}

func TestLevelStringNames(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func countNonEmptyLines(s string) int {
	n := 0
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n
}
