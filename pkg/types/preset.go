// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// Browser environments for preset extraction. The preferred environment is
// tried first; the fallback environment is used when every attempt fails.
const (
	EnvChrome = "chrome"
	EnvHTTP   = "http"
)

// ExtractOptions configures a preset-driven extraction.
type ExtractOptions struct {
	// Preset names the extraction preset: menu, business-info, or custom.
	Preset string `json:"preset" yaml:"preset"`

	// CustomPrompt replaces the preset instruction for custom extractions.
	CustomPrompt string `json:"customPrompt,omitempty" yaml:"custom_prompt,omitempty"`

	// OutputFormat is either a schema definition (field -> type name) or an
	// example object whose shape the result should follow.
	OutputFormat map[string]any `json:"outputFormat,omitempty" yaml:"output_format,omitempty"`

	// BrowserEnv is the preferred environment (default chrome).
	BrowserEnv string `json:"browserEnv" yaml:"browser_env"`

	// FallbackEnv is used after BrowserEnv exhausts its retries. Empty disables fallback.
	FallbackEnv string `json:"fallbackEnv,omitempty" yaml:"fallback_env,omitempty"`

	// Retries is the number of attempts per environment (default 2).
	Retries int `json:"retries" yaml:"retries"`

	// Timeout bounds a single extraction (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Concurrency bounds parallel extractions in a batch (default 3).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// ExtractionMetadata describes how a preset extraction ran.
type ExtractionMetadata struct {
	ExtractedAt time.Time `json:"extractedAt" yaml:"extracted_at"`
	BrowserEnv  string    `json:"browserEnv,omitempty" yaml:"browser_env,omitempty"`
	Attempts    int       `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	DurationMs  int64     `json:"durationMs" yaml:"duration_ms"`
}

// ExtractionResult is the outcome of one preset extraction.
type ExtractionResult struct {
	Success  bool               `json:"success" yaml:"success"`
	URL      string             `json:"url" yaml:"url"`
	FinalURL string             `json:"finalUrl,omitempty" yaml:"final_url,omitempty"`
	Preset   string             `json:"preset" yaml:"preset"`
	Data     json.RawMessage    `json:"data,omitempty" yaml:"-"`
	Error    string             `json:"error,omitempty" yaml:"error,omitempty"`
	Steps    int                `json:"stepsExecuted,omitempty" yaml:"steps_executed,omitempty"`
	Metadata ExtractionMetadata `json:"metadata" yaml:"metadata"`

	// CRM write-back status, set only by ExtractAndWrite.
	CRMWritten   bool   `json:"crmWritten,omitempty" yaml:"crm_written,omitempty"`
	CRMCompanyID string `json:"crmCompanyId,omitempty" yaml:"crm_company_id,omitempty"`
	CRMError     string `json:"crmError,omitempty" yaml:"crm_error,omitempty"`
}

// BatchMetrics extends batch timing with the mean per-URL duration.
type BatchMetrics struct {
	BatchMetadata `yaml:",inline"`
	AvgDurationMs int64 `json:"avgDurationMs" yaml:"avg_duration_ms"`
}

// BatchResult aggregates preset extractions.
type BatchResult struct {
	Success    bool                `json:"success" yaml:"success"`
	Total      int                 `json:"total" yaml:"total"`
	Successful int                 `json:"successful" yaml:"successful"`
	Failed     int                 `json:"failed" yaml:"failed"`
	Results    []*ExtractionResult `json:"results" yaml:"results"`
	Errors     []HuntError         `json:"errors" yaml:"errors"`
	Metadata   BatchMetrics        `json:"metadata" yaml:"metadata"`
}
