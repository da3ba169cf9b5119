package dispatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(``))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.RenewalTimeout)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.BaseURL)
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
base_url: https://api.example.com
timeout: 5s
max_retries: 5
retry_delay: 250ms
renewal_url: https://api.example.com/auth/refresh
debug: true
`))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "https://api.example.com/auth/refresh", cfg.RenewalURL)
	assert.Equal(t, 10*time.Second, cfg.RenewalTimeout, "unset fields keep defaults")
	assert.True(t, cfg.Debug)
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"zero retries", "max_retries: 0"},
		{"negative timeout", "timeout: -1s"},
		{"malformed base url", "base_url: not-a-url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.raw))
			appErr := AsError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, ErrorTypeValidation, appErr.Type)
		})
	}
}

func TestParseConfigMalformedYAML(t *testing.T) {
	_, err := ParseConfig([]byte("timeout: [broken"))
	require.Error(t, err)
}

func TestLoadConfigFileAndEnvPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://file.example.com
max_retries: 4
timeout: 7s
`), 0o600))

	// Environment beats the file.
	t.Setenv("DISPATCH_MAX_RETRIES", "6")
	t.Setenv("DISPATCH_BASE_URL", "https://env.example.com")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, 6, cfg.MaxRetries)
	assert.Equal(t, 7*time.Second, cfg.Timeout, "file value survives when env is silent")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestConfigOptionsBuildWorkingClient(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
base_url: https://api.example.com
timeout: 5s
max_retries: 2
retry_delay: 100ms
`))
	require.NoError(t, err)

	client := New(cfg.Options()...)
	require.NoError(t, client.ValidationError())
	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.Equal(t, 5*time.Second, client.timeout)
	assert.Equal(t, 2, client.maxRetries)
	assert.Equal(t, 100*time.Millisecond, client.retryDelay)
}
