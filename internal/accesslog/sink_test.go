package accesslog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlatRecord() FlatRecord {
	return FlatRecord{
		"request.method":  String("GET"),
		"response.status": Int(503),
		"duration":        Float(0.25),
	}
}

func TestSlogSinkEmitsFlatRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Log(context.Background(), slog.LevelError, testFlatRecord())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, Message, entry["msg"])
	assert.Equal(t, "GET", entry["request.method"])
	assert.Equal(t, float64(503), entry["response.status"])
	assert.Equal(t, 0.25, entry["duration"])
	assert.Equal(t, "error", entry["level"], "explicit level field uses pipeline naming")
}

func TestSlogSinkDebugOverrideLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Log(context.Background(), slog.LevelDebug, testFlatRecord())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
}

func TestZerologSinkEmitsFlatRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sink := NewZerologSink(logger)

	sink.Log(context.Background(), slog.LevelWarn, testFlatRecord())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, Message, entry["message"])
	assert.Equal(t, "GET", entry["request.method"])
	assert.Equal(t, float64(503), entry["response.status"])
	assert.Equal(t, "warn", entry["level"], "zerolog's own level field is used")
}
