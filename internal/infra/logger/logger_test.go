package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNew_FileOutputIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: "file", Level: "warn"}, &buf)

	log.Info().Msg("engine: dropped")
	log.Warn().Msgf("engine: save failed: id=%s", "t1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry[zerolog.LevelFieldName])
	assert.Equal(t, "engine: save failed: id=t1", entry[zerolog.MessageFieldName])
}

func TestNew_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: "stdout", Level: "info"}, &buf)

	log.Debug().Msg("hidden")
	log.Info().Msg("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "playqueue.log")
	closer, err := Init(Config{Output: "file", Level: "info", File: path})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = closer.Close()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestShortCaller(t *testing.T) {
	file := filepath.Join("root", "module", "engine", "mutate.go")
	assert.Equal(t, filepath.Join("engine", "mutate.go")+":42", shortCaller(0, file, 42))
	assert.Equal(t, "main.go:7", shortCaller(0, "main.go", 7))
}
