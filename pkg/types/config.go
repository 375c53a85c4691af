// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "menu-hunter/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIProvider identifies the language-model backend.
type AIProvider string

const (
	ProviderOpenAI    AIProvider = "openai"
	ProviderAnthropic AIProvider = "anthropic"
	ProviderGemini    AIProvider = "gemini"
)

// AIConfig holds shared settings for components that call a language model.
type AIConfig struct {
	// Provider selects the completion backend (default openai).
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "gpt-4.1-mini").
	Model string `json:"model" yaml:"model"`

	// AgentModel is the model used for browser act/observe/extract calls.
	// Defaults to Model.
	AgentModel string `json:"agent_model,omitempty" yaml:"agent_model,omitempty"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CacheSize is the number of completions kept in the in-process cache.
	// Zero disables caching.
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// BrowserKind selects the page implementation.
type BrowserKind string

const (
	// BrowserChrome drives a real Chrome instance.
	BrowserChrome BrowserKind = "chrome"

	// BrowserHTTP fetches pages over plain HTTP without running scripts.
	BrowserHTTP BrowserKind = "http"
)

// BrowserConfig holds settings for the browser automation capability.
type BrowserConfig struct {
	HTTPConfig `yaml:",inline"`

	// Kind selects chrome or http (default chrome).
	Kind BrowserKind `json:"kind" yaml:"kind"`

	// Headless runs Chrome without a window (default true).
	Headless bool `json:"headless" yaml:"headless"`

	// ExecPath overrides the Chrome binary location.
	ExecPath string `json:"exec_path,omitempty" yaml:"exec_path,omitempty"`
}

// HuntConfig holds defaults for menu hunts.
type HuntConfig struct {
	HuntOptions `yaml:",inline"`

	// PresetConcurrency bounds parallel preset extractions (default 3).
	PresetConcurrency int `json:"preset_concurrency" yaml:"preset_concurrency"`
}

// StoreConfig holds settings for the hunt result store.
type StoreConfig struct {
	// Dir is the directory holding the SQLite database and exports.
	Dir string `json:"dir" yaml:"dir"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn or error (default info).
	Level string `json:"level" yaml:"level"`

	// Format is console or json (default console).
	Format string `json:"format" yaml:"format"`
}

// CRMConfig holds settings for the CRM write-back client.
type CRMConfig struct {
	// Token is the private-app access token.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// BaseURL overrides the CRM API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// PipelineConfig is the complete configuration read by the CLI.
type PipelineConfig struct {
	Hunt    HuntConfig    `json:"hunt" yaml:"hunt"`
	AI      AIConfig      `json:"ai" yaml:"ai"`
	Browser BrowserConfig `json:"browser" yaml:"browser"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Log     LogConfig     `json:"log" yaml:"log"`
	CRM     CRMConfig     `json:"crm" yaml:"crm"`

	// RegistryFile optionally points at a YAML file overriding the
	// discovery and navigation tables.
	RegistryFile string `json:"registry_file,omitempty" yaml:"registry_file,omitempty"`
}
