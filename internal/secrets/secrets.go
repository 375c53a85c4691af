// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized key files: openai-api-key, anthropic-api-key, gemini-api-key, hubspot-token.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/menu-hunter/pkg/types"
)

// Key file names.
const (
	KeyOpenAI    = "openai-api-key"
	KeyAnthropic = "anthropic-api-key"
	KeyGemini    = "gemini-api-key"
	KeyHubSpot   = "hubspot-token"
)

// envFallback maps key files to the environment variables consulted when
// the file is absent.
var envFallback = map[string]string{
	KeyOpenAI:    "OPENAI_API_KEY",
	KeyAnthropic: "ANTHROPIC_API_KEY",
	KeyGemini:    "GEMINI_API_KEY",
	KeyHubSpot:   "HUBSPOT_TOKEN",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("secrets.read.error", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns the secret named key, falling back to its environment variable.
func Lookup(secrets map[string]string, key string) string {
	if v := secrets[key]; v != "" {
		return v
	}
	if env, ok := envFallback[key]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// Apply fills credentials that cfg leaves empty: the AI key for the
// configured provider and the CRM token.
func Apply(cfg *types.PipelineConfig, secrets map[string]string) {
	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case types.ProviderAnthropic:
			cfg.AI.APIKey = Lookup(secrets, KeyAnthropic)
		case types.ProviderGemini:
			cfg.AI.APIKey = Lookup(secrets, KeyGemini)
		default:
			cfg.AI.APIKey = Lookup(secrets, KeyOpenAI)
		}
	}
	if cfg.CRM.Token == "" {
		cfg.CRM.Token = Lookup(secrets, KeyHubSpot)
	}
}
