// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the menu-hunter CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/menu-hunter/internal/extract"
	"github.com/pdiddy/menu-hunter/internal/logging"
	"github.com/pdiddy/menu-hunter/internal/preset"
	"github.com/pdiddy/menu-hunter/internal/secrets"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the menu-hunter CLI.
var rootCmd = &cobra.Command{
	Use:   "menu-hunter",
	Short: "Find and extract restaurant menus from websites",
	Long: `menu-hunter visits restaurant websites, locates the menu (a page, a PDF,
an ordering flow or a platform embed), extracts it with a language model and
normalizes it into a structured menu.

Use hunt for one site, batch for many, extract for preset-driven extraction
(menu, business-info or custom) with optional CRM write-back, and store to
inspect and export saved results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", nil)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./menu-hunter.yaml or ~/.config/menu-hunter/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("store-dir", "", "directory holding the results database (default .menu-hunter)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store-dir"))
}

// envKeys are the settings that may come from MENU_HUNTER_* variables
// without appearing in a config file.
var envKeys = []string{
	"ai.provider", "ai.model", "ai.api_key", "ai.base_url",
	"browser.kind", "crm.token", "log.level", "log.format",
	"store.dir", "registry_file",
}

func initConfig() {
	// .env values never override variables already set.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("menu-hunter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "menu-hunter"))
		}
	}

	viper.SetEnvPrefix("MENU_HUNTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, k := range envKeys {
		_ = viper.BindEnv(k)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

const defaultCacheSize = 256

// loadConfig decodes the merged viper settings into a PipelineConfig and
// fills missing credentials from secrets. Settings are round-tripped through
// YAML so the config file uses the same keys as the yaml struct tags.
func loadConfig() (types.PipelineConfig, error) {
	cfg := types.PipelineConfig{
		Hunt: types.HuntConfig{PresetConcurrency: preset.DefaultConcurrency},
		AI: types.AIConfig{
			Provider:   types.ProviderOpenAI,
			Model:      extract.DefaultModel,
			MaxRetries: 3,
			CacheSize:  defaultCacheSize,
		},
		Browser: types.BrowserConfig{Kind: types.BrowserChrome, Headless: true},
	}
	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return cfg, fmt.Errorf("encoding settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

func newLogger(cfg types.LogConfig) (*slog.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Level, Format: cfg.Format})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
