package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("test", nil)
	require.NoError(t, err)

	assert.Equal(t, "-", cfg.Matcher.Input)
	assert.Equal(t, "1", cfg.Matcher.TickSize)
	assert.Equal(t, DriverNone, cfg.Kafka.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Otel.Enabled)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricetime.yaml")
	content := `
matcher:
  input: orders.txt
  tick_size: "0.01"
  depth: 3
log:
  level: debug
  format: json
kafka:
  driver: sarama
  broker_addr: broker:9092
  topic: fills
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("PRICETIME_KAFKA_TOPIC", "fills-env")
	t.Setenv("PRICETIME_MATCHER_DEPTH", "7")

	cfg, err := Load("test", []string{"-config", path, "-log_level", "warn"})
	require.NoError(t, err)

	assert.Equal(t, "orders.txt", cfg.Matcher.Input)
	assert.Equal(t, "0.01", cfg.Matcher.TickSize)
	assert.Equal(t, 7, cfg.Matcher.Depth)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DriverSarama, cfg.Kafka.Driver)
	assert.Equal(t, "broker:9092", cfg.Kafka.BrokerAddr)
	assert.Equal(t, "fills-env", cfg.Kafka.Topic)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("test", []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	_, err = Load("test", []string{"-kafka_driver", "carrier-pigeon"})
	assert.ErrorContains(t, err, "unknown kafka.driver")

	_, err = Load("test", []string{"-no-such-flag"})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("matcher: [unterminated"), 0o600))
	_, err = Load("test", []string{"-config", bad})
	assert.ErrorContains(t, err, "failed to parse config file")
}
