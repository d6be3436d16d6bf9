package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, int64(20*1024*1024), cfg.MaxInputBytes)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "settlements", cfg.Dataset)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SETTLEMENT_LOG_LEVEL", "debug")
	t.Setenv("SETTLEMENT_MAX_INPUT_BYTES", "1024")
	t.Setenv("SETTLEMENT_TIMEZONE", "UTC")
	t.Setenv("SETTLEMENT_PROJECT_ID", "proj")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(1024), cfg.MaxInputBytes)
	assert.NoError(t, cfg.RequireCloud())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("SETTLEMENT_HTTP_PORT=9090\n"), 0o600))
	// Register cleanup, then unset so the file value is used.
	t.Setenv("SETTLEMENT_HTTP_PORT", "")
	require.NoError(t, os.Unsetenv("SETTLEMENT_HTTP_PORT"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"SETTLEMENT_MAX_INPUT_BYTES": "0",
		"SETTLEMENT_LOG_FORMAT":      "xml",
		"SETTLEMENT_TIMEZONE":        "Mars/Olympus",
		"SETTLEMENT_WORKER_COUNT":    "0",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequireCloud(t *testing.T) {
	cfg := &Config{Dataset: "settlements"}
	assert.Error(t, cfg.RequireCloud())
}

func TestParseVocabulary(t *testing.T) {
	v, err := ParseVocabulary([]byte(`
tax: [Ganancias]
shipping: [flete, envío]
header_labels:
  operation_id: ["Operación"]
`))
	require.NoError(t, err)

	assert.Contains(t, v.Fees.Tax, "Ganancias")
	assert.Contains(t, v.Fees.Tax, "IIBB")
	assert.Contains(t, v.Fees.Shipping, "flete")
	assert.Len(t, v.Fees.Shipping, 4)
	assert.Equal(t, []string{"Número de operación", "Operación"}, v.Headers[sheet.ColOperationID])
}

func TestParseVocabulary_Errors(t *testing.T) {
	_, err := ParseVocabulary([]byte("header_labels:\n  nope: [x]\n"))
	assert.Error(t, err)

	_, err = ParseVocabulary([]byte("tax: {"))
	assert.Error(t, err)
}

func TestLoadVocabulary(t *testing.T) {
	v, err := LoadVocabulary("")
	require.NoError(t, err)
	assert.Equal(t, DefaultVocabulary(), v)

	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tax: [Sellos]\n"), 0o600))
	v, err = LoadVocabulary(path)
	require.NoError(t, err)
	assert.Contains(t, v.Fees.Tax, "Sellos")

	_, err = LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
