// ABOUTME: Tests for config CLI commands
// ABOUTME: Verifies set only touches passed flags and show masks secrets
package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/textback/config"
)

func withTempConfig(t *testing.T) {
	t.Helper()
	origData, origState := xdg.DataHome, xdg.StateHome
	tmpDir := t.TempDir()
	xdg.DataHome = filepath.Join(tmpDir, "data")
	xdg.StateHome = filepath.Join(tmpDir, "state")
	t.Cleanup(func() {
		xdg.DataHome = origData
		xdg.StateHome = origState
	})
	for _, key := range []string{
		"TEXTBACK_API_URL", "TEXTBACK_SESSION", "TEXTBACK_SESSION_COOKIE", "TEXTBACK_API_KEY",
		"TEXTBACK_BUSINESS_ID", "TEXTBACK_POLL_INTERVAL", "TEXTBACK_POLL_TIMEOUT", "TEXTBACK_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestConfigSet(t *testing.T) {
	withTempConfig(t)
	var out bytes.Buffer

	require.NoError(t, ConfigSetCommand(&out, []string{
		"--api-url", "https://api.example.com/api/v1",
		"--session", "session-cookie-value",
		"--poll-interval", "5s",
	}))
	assert.Contains(t, out.String(), "✓ Saved")

	cfg, err := config.LoadFile()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "session-cookie-value", cfg.SessionCookie)
	assert.Equal(t, config.Duration(5*time.Second), cfg.PollInterval)

	require.NoError(t, ConfigSetCommand(&out, []string{"--business-id", "biz-1", "--log-level", "debug"}))
	cfg, err = config.LoadFile()
	require.NoError(t, err)
	assert.Equal(t, "biz-1", cfg.BusinessID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "session-cookie-value", cfg.SessionCookie, "unset flags keep their values")
}

func TestConfigSetDoesNotPersistEnv(t *testing.T) {
	withTempConfig(t)
	t.Setenv("TEXTBACK_API_KEY", "env-only-key")

	var out bytes.Buffer
	require.NoError(t, ConfigSetCommand(&out, []string{"--business-id", "biz-2"}))

	cfg, err := config.LoadFile()
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
}

func TestConfigSetValidation(t *testing.T) {
	withTempConfig(t)
	var out bytes.Buffer

	assert.Error(t, ConfigSetCommand(&out, nil), "no flags")
	assert.Error(t, ConfigSetCommand(&out, []string{"--poll-interval", "0s"}))
	assert.Error(t, ConfigSetCommand(&out, []string{"--api-url", "not a url"}))
}

func TestConfigShowMasksSecrets(t *testing.T) {
	withTempConfig(t)
	var out bytes.Buffer
	require.NoError(t, ConfigSetCommand(&out, []string{"--session", "abcdefghijklmnop"}))

	out.Reset()
	require.NoError(t, ConfigShowCommand(&out, nil))
	shown := out.String()
	assert.Contains(t, shown, config.Path())
	assert.Contains(t, shown, "abcd************")
	assert.NotContains(t, shown, "abcdefghijklmnop")
}

func TestConfigCommandRouting(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, ConfigCommand(&out, nil))
	assert.Error(t, ConfigCommand(&out, []string{"reset"}))
}
