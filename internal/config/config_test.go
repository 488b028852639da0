// ABOUTME: Tests for configuration parsing
// ABOUTME: Covers env var expansion, duration parsing, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullConfig(t *testing.T) {
	data := []byte(`
server:
  http_addr: ":9000"
database:
  path: "/tmp/haggle.db"
generation:
  api_key: "secret"
  model: "gemini-2.5-flash"
  timeout: "45s"
  history_window: 10
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/haggle.db", cfg.Database.Path)
	assert.Equal(t, "secret", cfg.Generation.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Generation.Model)
	assert.Equal(t, 45*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 10, cfg.Generation.HistoryWindow)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 6, cfg.Generation.HistoryWindow)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Database.Path)
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("HAGGLE_TEST_KEY", "from-env")

	cfg, err := Parse([]byte(`
generation:
  api_key: "${HAGGLE_TEST_KEY}"
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Generation.APIKey)
}

func TestParse_UnsetEnvVarBecomesEmpty(t *testing.T) {
	cfg, err := Parse([]byte(`
generation:
  api_key: "${HAGGLE_DEFINITELY_UNSET_VAR}"
`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Generation.APIKey)
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte(`
generation:
  timeout: "not-a-duration"
`))
	assert.Error(t, err)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(`server: [`))
	assert.Error(t, err)
}

func TestParse_NegativeHistoryWindow(t *testing.T) {
	_, err := Parse([]byte(`
generation:
  history_window: -1
`))
	assert.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_addr: \":7777\"\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.HTTPAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
}
