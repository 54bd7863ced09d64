package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

type Config struct {
	App       AppConfig                 `json:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways"`
	Providers map[string]ProviderConfig `json:"providers"`
	Memory    MemoryConfig              `json:"memory"`
	Browser   BrowserConfig             `json:"browser"`
	Runner    RunnerConfig              `json:"runner"`
	Policy    PolicyConfig              `json:"policy"`
}

type AppConfig struct {
	Name          string `json:"name"`
	Workspace     string `json:"workspace"`
	Addr          string `json:"addr"`
	Presets       string `json:"presets"`
	Prompts       string `json:"prompts"`
	Static        string `json:"static,omitempty"`
	ScreenshotDir string `json:"screenshot_dir"`
	TLSCert       string `json:"tls_cert,omitempty"`
	TLSKey        string `json:"tls_key,omitempty"`
}

// TLSEnabled reports whether both certificate and key are configured.
func (a AppConfig) TLSEnabled() bool {
	return a.TLSCert != "" && a.TLSKey != ""
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
	// AllowedChats lists chat IDs allowed to send commands.
	AllowedChats []int64 `json:"allowed_chats,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

type BrowserConfig struct {
	Headless    bool   `json:"headless"`
	ExecPath    string `json:"exec_path,omitempty"`
	UserDataDir string `json:"user_data_dir,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	// Timeouts are Go duration strings such as "30s".
	ActionTimeout     string `json:"action_timeout"`
	NavigationTimeout string `json:"navigation_timeout"`
}

type RunnerConfig struct {
	ResetVariablesPerLoop bool   `json:"resetVariablesPerLoop"`
	Description           string `json:"description"`
	MaxSteps              int    `json:"max_steps"`
}

type PolicyConfig struct {
	DeniedKinds    []string `json:"deniedKinds"`
	DeniedPatterns []string `json:"deniedPatterns"`
	AllowedHosts   []string `json:"allowedHosts"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:          "puppetry",
			Workspace:     ".",
			Addr:          ":3000",
			Presets:       "export.json",
			Prompts:       "./prompts",
			ScreenshotDir: "screenshots",
		},
		Gateways: map[string]GatewayConfig{},
		Providers: map[string]ProviderConfig{
			"openai": {Model: "gpt-4o", Enabled: true},
		},
		Memory: MemoryConfig{Type: "sqlite", Path: "puppetry.db"},
		Browser: BrowserConfig{
			Width:             1280,
			Height:            900,
			ActionTimeout:     "30s",
			NavigationTimeout: "120s",
		},
		Runner: RunnerConfig{MaxSteps: 10000},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults. OPENAI_API_KEY fills an empty openai key.
//
// A providers object in the file replaces the default provider list. Each
// entry is merged field by field over the default entry of the same name;
// entries are enabled unless they say "enabled": false.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var raw struct {
			Providers map[string]json.RawMessage `json:"providers"`
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		if raw.Providers != nil {
			providers, err := mergeProviders(Default().Providers, raw.Providers)
			if err != nil {
				return nil, err
			}
			cfg.Providers = providers
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		p, ok := cfg.Providers["openai"]
		if !ok {
			p = Default().Providers["openai"]
		}
		if p.APIKey == "" {
			p.APIKey = key
			if p.Model == "" {
				p.Model = "gpt-4o"
			}
			if cfg.Providers == nil {
				cfg.Providers = map[string]ProviderConfig{}
			}
			cfg.Providers["openai"] = p
		}
	}
	return cfg, nil
}

func mergeProviders(defaults map[string]ProviderConfig, raw map[string]json.RawMessage) (map[string]ProviderConfig, error) {
	out := make(map[string]ProviderConfig, len(raw))
	for name, msg := range raw {
		p, ok := defaults[name]
		if !ok {
			p = ProviderConfig{Enabled: true}
		}
		if err := json.Unmarshal(msg, &p); err != nil {
			return nil, fmt.Errorf("failed to decode provider %s: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}

// GetDefaultProvider returns the enabled provider to use. Providers with an
// API key win over those without; openai wins ties, then the name order.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == "openai") != (names[j] == "openai") {
			return names[i] == "openai"
		}
		return names[i] < names[j]
	})
	for _, keyed := range []bool{true, false} {
		for _, name := range names {
			p := c.Providers[name]
			if p.Enabled && (p.APIKey != "") == keyed {
				return name, p
			}
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled && tg.Token != "" {
		return tg, true
	}
	return GatewayConfig{}, false
}

// Timeouts parses the browser timeouts, falling back to the defaults for
// empty values.
func (b BrowserConfig) Timeouts() (action, navigation time.Duration, err error) {
	action, err = parseDuration(b.ActionTimeout, 30*time.Second)
	if err != nil {
		return 0, 0, fmt.Errorf("browser.action_timeout: %w", err)
	}
	navigation, err = parseDuration(b.NavigationTimeout, 120*time.Second)
	if err != nil {
		return 0, 0, fmt.Errorf("browser.navigation_timeout: %w", err)
	}
	return action, navigation, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
