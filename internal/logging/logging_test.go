package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("walk complete", map[string]interface{}{
		"files": 3,
		"root":  "/srv/data",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "walk complete", entry["msg"])
	assert.Equal(t, float64(3), entry["files"])
	assert.Equal(t, "/srv/data", entry["root"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("hidden", nil)
	logger.Info("hidden too", nil)
	logger.Warn("shown", nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	child := logger.With(map[string]interface{}{"tool": "search_files"})
	child.Info("called", nil)

	assert.Contains(t, buf.String(), "tool=search_files")
}

func TestDeterministicFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	logger.Info("m", map[string]interface{}{"b": 1, "a": 2, "c": 3})

	line := buf.String()
	ai := strings.Index(line, "a=")
	bi := strings.Index(line, "b=")
	ci := strings.Index(line, "c=")
	assert.True(t, ai < bi && bi < ci, "fields must be sorted: %s", line)
}
