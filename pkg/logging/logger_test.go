package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: "debug", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger.Debug().Str("order_id", "o-1").Msg("resting")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "o-1", entry["order_id"])
	assert.Equal(t, "resting", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: "loud", Output: &buf})

	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestFromContext_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: "info", Output: &buf})

	ctx := WithSession(WithRequestID(context.Background(), "req-9"), "main")
	logger := FromContext(ctx)
	logger.Info().Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, "main", entry["session"])
}

func TestFromContext_PrefersContextLogger(t *testing.T) {
	var global, scoped bytes.Buffer
	Setup(Config{Level: "info", Output: &global})

	l := zerolog.New(&scoped)
	ctx := l.WithContext(context.Background())
	logger := FromContext(ctx)
	logger.Info().Msg("scoped")

	assert.Empty(t, global.String())
	assert.Contains(t, scoped.String(), "scoped")
}
