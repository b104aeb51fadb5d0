package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapter_WritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, zerolog.DebugLevel)

	log.Info("Tracker", "frame processed", map[string]interface{}{"raw_count": 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Tracker", entry["component"])
	assert.Equal(t, "frame processed", entry["message"])
	assert.EqualValues(t, 3, entry["raw_count"])
}

func TestZerologAdapter_ErrorCarriesCause(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, zerolog.DebugLevel)

	log.Error("Recorder", errors.New("disk full"), nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "disk full", entry["error"])
}

func TestZerologAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, zerolog.WarnLevel)

	log.Debug("Tracker", "noise", nil)
	log.Info("Tracker", "noise", nil)
	assert.Zero(t, buf.Len())

	log.Warning("Tracker", "kept", nil)
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
