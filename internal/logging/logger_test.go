package logging

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "info")
	require.NoError(t, err)
	l.WithField("component", "users").Debug("hidden")
	l.WithField("component", "users").Info("loaded")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, "users", entry["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("nonsense"))
}

func TestDiscardIsSafeToClose(t *testing.T) {
	l := Discard()
	l.Error("dropped")
	assert.Equal(t, "", l.Path())
	assert.NoError(t, l.Close())
}
