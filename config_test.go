package chatd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv blanks every variable LoadConfig reads so host
// environment values cannot leak into a test.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"CHATD_LISTEN_ADDRESS",
		"CHATD_DATA_FILE",
		"CHATD_PROVIDER",
		"CHATD_MODEL",
		"CHATD_TEMPERATURE",
		"CHATD_TOP_P",
		"CHATD_MAX_TOKEN",
		"CHATD_WINDOW_SIZE",
		"CHATD_UPSTREAM_TIMEOUT",
		"CHATD_UPSTREAM_RPS",
		"OPENAI_API_KEY",
		"ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddress, config.ListenAddress)
	assert.Equal(t, DefaultDataFile, config.DataFile)
	assert.Equal(t, DefaultProvider, config.Provider)
	assert.Equal(t, "sk-test", config.APIKey)
	assert.Empty(t, config.Model)
	assert.Equal(t, DefaultTemperature, config.Temperature)
	assert.Equal(t, DefaultTopP, config.TopP)
	assert.Equal(t, int64(DefaultMaxToken), config.MaxToken)
	assert.Equal(t, DefaultWindowSize, config.WindowSize)
	assert.Equal(t, DefaultUpstreamTimeout, config.UpstreamTimeout)
	assert.Zero(t, config.UpstreamRPS)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CHATD_LISTEN_ADDRESS", ":8080")
	t.Setenv("CHATD_DATA_FILE", "/tmp/store.db")
	t.Setenv("CHATD_PROVIDER", "anthropic")
	t.Setenv("CHATD_MODEL", "claude-3-5-sonnet-20240620")
	t.Setenv("CHATD_TEMPERATURE", "0.7")
	t.Setenv("CHATD_TOP_P", "0.9")
	t.Setenv("CHATD_MAX_TOKEN", "4096")
	t.Setenv("CHATD_WINDOW_SIZE", "8")
	t.Setenv("CHATD_UPSTREAM_TIMEOUT", "30s")
	t.Setenv("CHATD_UPSTREAM_RPS", "2.5")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.ListenAddress)
	assert.Equal(t, "/tmp/store.db", config.DataFile)
	assert.Equal(t, "anthropic", config.Provider)
	assert.Equal(t, "sk-ant-test", config.APIKey)
	assert.Equal(t, "claude-3-5-sonnet-20240620", config.Model)
	assert.Equal(t, 0.7, config.Temperature)
	assert.Equal(t, 0.9, config.TopP)
	assert.Equal(t, int64(4096), config.MaxToken)
	assert.Equal(t, 8, config.WindowSize)
	assert.Equal(t, 30*time.Second, config.UpstreamTimeout)
	assert.Equal(t, 2.5, config.UpstreamRPS)
}

func TestLoadConfig_MissingCredentialFailsFast(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  string
	}{
		{name: "openai without key", provider: "openai", wantErr: "OPENAI_API_KEY"},
		{name: "anthropic without key", provider: "anthropic", wantErr: "ANTHROPIC_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("CHATD_PROVIDER", tt.provider)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_UnknownProvider(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CHATD_PROVIDER", "bedrock")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "bedrock"`)
}

func TestLoadConfig_MalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "temperature", key: "CHATD_TEMPERATURE", value: "warm"},
		{name: "top-p", key: "CHATD_TOP_P", value: "most"},
		{name: "max token", key: "CHATD_MAX_TOKEN", value: "1e3"},
		{name: "window size", key: "CHATD_WINDOW_SIZE", value: "twenty"},
		{name: "upstream timeout", key: "CHATD_UPSTREAM_TIMEOUT", value: "60"},
		{name: "upstream rps", key: "CHATD_UPSTREAM_RPS", value: "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
