package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsAreAppendedToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "errors.log")

	log, err := New("prod", path)
	require.NoError(t, err)

	log.Info("delivered", "user_id", 1)
	log.Error("send failed", "user_id", 2, "error", "timeout")
	log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "send failed", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.EqualValues(t, 2, entry["user_id"])
	assert.NotEmpty(t, entry["ts"])
}

func TestNopLogger(t *testing.T) {
	log := NewNop().With("component", "test")
	log.Error("ignored")
	log.Sync()
}
