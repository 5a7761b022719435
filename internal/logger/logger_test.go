package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubConfig struct {
	levels      map[string]string
	development bool
}

func (c *stubConfig) GetComponentLevel(component string) string {
	if level, ok := c.levels[component]; ok {
		return level
	}
	return "info"
}

func (c *stubConfig) IsDevelopment() bool {
	return c.development
}

func TestNewLogger(t *testing.T) {
	for level := range ValidLogLevels {
		l, err := NewLogger(level, false)
		require.NoError(t, err)
		require.NotNil(t, l)
	}

	_, err := NewLogger("verbose", false)
	require.Error(t, err)
}

func TestNewComponentLogger(t *testing.T) {
	cfg := &stubConfig{levels: map[string]string{"scheduler": "debug"}}

	require.NotNil(t, NewComponentLogger("scheduler", cfg))
	require.NotNil(t, NewComponentLogger("sync-engine", cfg))

	// Nil config and bad levels both fall back to the default logger.
	require.NotNil(t, NewComponentLogger("scheduler", nil))
	require.NotNil(t, NewComponentLogger("scheduler", &stubConfig{levels: map[string]string{"scheduler": "bogus"}}))
}

func TestWithComponent(t *testing.T) {
	base := NewNopLogger()
	child := base.WithComponent("log-sink")

	require.NotNil(t, child)
	require.NotSame(t, base, child)
}
