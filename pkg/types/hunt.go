// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// Phase names recorded in a hunt's phase log.
const (
	PhaseDiscover  = "discover"
	PhaseNavigate  = "navigate"
	PhaseExtract   = "extract"
	PhaseNormalize = "normalize"
)

// PhaseEntry is one append-only record in a hunt's phase log.
type PhaseEntry struct {
	Phase      string      `json:"phase" yaml:"phase"`
	StartTime  time.Time   `json:"startTime" yaml:"start_time"`
	DurationMs int64       `json:"durationMs" yaml:"duration_ms"`
	Result     PhaseResult `json:"result" yaml:"result"`
}

// PhaseResult summarizes the outcome of a phase. Only the fields relevant to
// the phase are set.
type PhaseResult struct {
	// Discover
	MenuType   MenuType `json:"menuType,omitempty" yaml:"menu_type,omitempty"`
	MenuPath   string   `json:"menuPath,omitempty" yaml:"menu_path,omitempty"`
	Confidence float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`

	// Navigate
	Success  *bool  `json:"success,omitempty" yaml:"success,omitempty"`
	FinalURL string `json:"finalUrl,omitempty" yaml:"final_url,omitempty"`
	Skipped  bool   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Expanded bool   `json:"expanded,omitempty" yaml:"expanded,omitempty"`

	// Extract
	UsedFallback bool `json:"usedFallback,omitempty" yaml:"used_fallback,omitempty"`
	TokensUsed   int  `json:"tokensUsed,omitempty" yaml:"tokens_used,omitempty"`
	Items        int  `json:"items,omitempty" yaml:"items,omitempty"`

	// Normalize
	Valid      *bool `json:"valid,omitempty" yaml:"valid,omitempty"`
	TotalItems int   `json:"totalItems,omitempty" yaml:"total_items,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// HuntOptions configures one hunt or a batch of hunts.
type HuntOptions struct {
	// Location is the search string entered in ordering flows (default "Austin TX").
	Location string `json:"location" yaml:"location"`

	// Format selects the output schema (default detailed).
	Format MenuFormat `json:"format" yaml:"format"`

	// Headless controls whether a real browser runs without a window. Nil
	// keeps the launcher's configured setting.
	Headless *bool `json:"headless,omitempty" yaml:"headless,omitempty"`

	// Model is the language-model identifier used for extraction.
	Model string `json:"model" yaml:"model"`

	// Timeout bounds a single hunt (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Concurrency is the batch chunk size (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// OrderType is the ordering choice preferred when a site offers both
	// pickup and delivery (default "pickup").
	OrderType string `json:"orderType" yaml:"order_type"`

	// Brand overrides the brand inferred from the URL.
	Brand string `json:"brand,omitempty" yaml:"brand,omitempty"`
}

// HuntMetadata describes how a hunt reached its result.
type HuntMetadata struct {
	HuntID          string    `json:"huntId" yaml:"hunt_id"`
	DiscoveryType   MenuType  `json:"discoveryType,omitempty" yaml:"discovery_type,omitempty"`
	Confidence      float64   `json:"confidence" yaml:"confidence"`
	TokensUsed      int       `json:"tokensUsed" yaml:"tokens_used"`
	UsedFallback    bool      `json:"usedFallback" yaml:"used_fallback"`
	TotalDurationMs int64     `json:"totalDurationMs" yaml:"total_duration_ms"`
	ExtractedAt     time.Time `json:"extractedAt" yaml:"extracted_at"`
}

// HuntResult is the outcome of one hunt. Phases is populated on failure too.
type HuntResult struct {
	Success    bool              `json:"success" yaml:"success"`
	URL        string            `json:"url" yaml:"url"`
	FinalURL   string            `json:"finalUrl,omitempty" yaml:"final_url,omitempty"`
	Menu       *NormalizedMenu   `json:"menu,omitempty" yaml:"-"`
	Validation *ValidationReport `json:"validation,omitempty" yaml:"validation,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
	PDFURL     string            `json:"pdfUrl,omitempty" yaml:"pdf_url,omitempty"`
	Phases     []PhaseEntry      `json:"phases" yaml:"phases"`
	Metadata   HuntMetadata      `json:"metadata" yaml:"metadata"`
}

// MenuJSON returns the normalized menu encoding, or nil when there is no menu.
func (r *HuntResult) MenuJSON() (json.RawMessage, error) {
	if r.Menu == nil {
		return nil, nil
	}
	return json.Marshal(r.Menu)
}

// HuntError records a failed URL in a batch.
type HuntError struct {
	URL   string `json:"url" yaml:"url"`
	Error string `json:"error" yaml:"error"`
}

// BatchMetadata holds batch-level timing.
type BatchMetadata struct {
	StartedAt       time.Time `json:"startedAt" yaml:"started_at"`
	CompletedAt     time.Time `json:"completedAt" yaml:"completed_at"`
	TotalDurationMs int64     `json:"totalDurationMs" yaml:"total_duration_ms"`
	Concurrency     int       `json:"concurrency" yaml:"concurrency"`
}

// BatchHuntResult aggregates the hunts of a batch. Results holds successful
// hunts; Errors holds one entry per failed URL.
type BatchHuntResult struct {
	Success    bool          `json:"success" yaml:"success"`
	Total      int           `json:"total" yaml:"total"`
	Successful int           `json:"successful" yaml:"successful"`
	Failed     int           `json:"failed" yaml:"failed"`
	Results    []*HuntResult `json:"results" yaml:"results"`
	Errors     []HuntError   `json:"errors" yaml:"errors"`
	Metadata   BatchMetadata `json:"metadata" yaml:"metadata"`
}

// HasFailures reports whether any URL failed.
func (b BatchHuntResult) HasFailures() bool {
	return b.Failed > 0
}
