// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-hunter/internal/logging"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyOpenAI, "  sk-abc123  \n")
				writeFile(t, dir, KeyHubSpot, "pat-na1-xyz\n")
				return dir
			},
			want: map[string]string{
				KeyOpenAI:  "sk-abc123",
				KeyHubSpot: "pat-na1-xyz",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyAnthropic, "valid-key")
				writeFile(t, dir, KeyGemini, "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				return dir
			},
			want: map[string]string{
				KeyAnthropic: "valid-key",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyGemini, "g_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				KeyGemini: "g_123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), logging.Discard())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, KeyOpenAI, "value123")

	badPath := filepath.Join(dir, KeyHubSpot)
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "value123", got[KeyOpenAI])
	_, hasBad := got[KeyHubSpot]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestLookupFallsBackToEnv(t *testing.T) {
	t.Setenv("HUBSPOT_TOKEN", "from-env")
	assert.Equal(t, "from-file", Lookup(map[string]string{KeyHubSpot: "from-file"}, KeyHubSpot))
	assert.Equal(t, "from-env", Lookup(nil, KeyHubSpot))
	assert.Empty(t, Lookup(nil, "unknown-key"))
}

func TestApply(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("HUBSPOT_TOKEN", "")
	secrets := map[string]string{
		KeyOpenAI:    "sk-open",
		KeyAnthropic: "sk-ant",
		KeyHubSpot:   "pat-1",
	}

	tests := []struct {
		name    string
		cfg     types.PipelineConfig
		wantKey string
		wantCRM string
	}{
		{"default provider", types.PipelineConfig{}, "sk-open", "pat-1"},
		{"anthropic", types.PipelineConfig{AI: types.AIConfig{Provider: types.ProviderAnthropic}}, "sk-ant", "pat-1"},
		{"explicit values win", types.PipelineConfig{
			AI:  types.AIConfig{APIKey: "configured"},
			CRM: types.CRMConfig{Token: "tok"},
		}, "configured", "tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			Apply(&cfg, secrets)
			assert.Equal(t, tt.wantKey, cfg.AI.APIKey)
			assert.Equal(t, tt.wantCRM, cfg.CRM.Token)
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
