package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.App.Addr)
	assert.Equal(t, "export.json", cfg.App.Presets)
	assert.False(t, cfg.App.TLSEnabled())

	action, nav, err := cfg.Browser.Timeouts()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, action)
	assert.Equal(t, 120*time.Second, nav)
}

func TestLoadConfigOverridesAndEnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"addr": ":8443", "tls_cert": "server.cert", "tls_key": "server.key"},
		"gateways": {"telegram": {"token": "t", "enabled": true, "allowed_chats": [42]}},
		"browser": {"navigation_timeout": "5s"},
		"runner": {"resetVariablesPerLoop": true},
		"policy": {"deniedKinds": ["ebayUploadImage"]}
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8443", cfg.App.Addr)
	assert.Equal(t, "export.json", cfg.App.Presets, "unset fields keep defaults")
	assert.True(t, cfg.App.TLSEnabled())
	assert.True(t, cfg.Runner.ResetVariablesPerLoop)
	assert.Equal(t, []string{"ebayUploadImage"}, cfg.Policy.DeniedKinds)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "sk-env", p.APIKey)

	tg, ok := cfg.GetTelegramConfig()
	require.True(t, ok)
	assert.Equal(t, []int64{42}, tg.AllowedChats)

	_, nav, err := cfg.Browser.Timeouts()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, nav)
}

func TestProvidersMergeOverDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"providers": {"openai": {"api_key": "k"}}}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "k", p.APIKey)
	assert.Equal(t, "gpt-4o", p.Model)
	assert.True(t, p.Enabled)
}

func TestConfiguredProviderReplacesDefault(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"providers": {
		"local": {"api_key": "x", "model": "llama3", "base_url": "http://localhost:11434/v1"}
	}}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NotContains(t, cfg.Providers, "openai")
	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "local", name)
	assert.Equal(t, "llama3", p.Model)
	assert.Equal(t, "http://localhost:11434/v1", p.BaseURL)
}

func TestEnvKeyAddsEnabledOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"providers": {"local": {"model": "llama3"}}}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "sk-env", p.APIKey)
	assert.True(t, p.Enabled)
}

func TestGetDefaultProviderPrefersKeyedProviders(t *testing.T) {
	cfg := &Config{Providers: map[string]ProviderConfig{
		"openai": {Model: "gpt-4o", Enabled: true},
		"groq":   {APIKey: "g", Enabled: true},
		"off":    {APIKey: "o", Enabled: false},
	}}
	name, _ := cfg.GetDefaultProvider()
	assert.Equal(t, "groq", name)

	cfg.Providers["groq"] = ProviderConfig{APIKey: "g", Enabled: false}
	name, _ = cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)

	name, _ = (&Config{}).GetDefaultProvider()
	assert.Empty(t, name)
}

func TestProviderCanBeDisabled(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"providers": {"openai": {"api_key": "k", "enabled": false}}}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	name, _ := cfg.GetDefaultProvider()
	assert.Empty(t, name)
}

func TestLoadConfigBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestBadTimeout(t *testing.T) {
	_, _, err := BrowserConfig{ActionTimeout: "soon"}.Timeouts()
	assert.ErrorContains(t, err, "browser.action_timeout")
}
