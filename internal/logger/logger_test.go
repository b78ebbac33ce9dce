package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONWithFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "bot.log")
	require.NoError(t, initTo(Config{Level: "warn", Format: "json", File: file, MaxSizeMB: 1, Service: "quantdesk"}, &buf))

	log.Info().Msg("hidden")
	log.Warn().Str("cycle", "daily").Msg("visible")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "daily", entry["cycle"])
	assert.Equal(t, "quantdesk", entry["service"])

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestInit_BadLevel(t *testing.T) {
	assert.Error(t, initTo(Config{Level: "loud"}, &bytes.Buffer{}))
}
