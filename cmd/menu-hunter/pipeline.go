// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/internal/crm"
	"github.com/pdiddy/menu-hunter/internal/extract"
	"github.com/pdiddy/menu-hunter/internal/hunt"
	"github.com/pdiddy/menu-hunter/internal/llm"
	"github.com/pdiddy/menu-hunter/internal/preset"
	"github.com/pdiddy/menu-hunter/internal/registry"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

const defaultHTTPTimeout = 30 * time.Second

// pipeline holds the components a command needs, built from one config.
type pipeline struct {
	cfg       types.PipelineConfig
	logger    *slog.Logger
	registry  *registry.Registry
	launchers map[string]browser.Launcher
	hunter    *hunt.Hunter
	presets   *preset.Extractor

	// crm is nil when no token is configured.
	crm *crm.Client
}

// newPipeline wires the pipeline. Without an API key the language model is
// left out: extraction falls back to the line parser and agent actions
// report browser.ErrUnsupported.
func newPipeline(ctx context.Context, cfg types.PipelineConfig, logger *slog.Logger) (*pipeline, error) {
	reg, err := registry.Load(cfg.RegistryFile)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Browser.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &http.Client{Timeout: timeout}

	var completer llm.Completer
	if cfg.AI.APIKey != "" {
		completer, err = llm.New(ctx, cfg.AI, client, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring language model: %w", err)
		}
	} else {
		logger.Warn("pipeline.llm.disabled", "reason", "no API key", "provider", cfg.AI.Provider)
	}

	agentModel := cfg.AI.AgentModel
	if agentModel == "" {
		agentModel = cfg.AI.Model
	}
	var agent *browser.Agent
	if completer != nil {
		agent = &browser.Agent{LLM: completer, Model: agentModel, Logger: logger}
	}

	launchers := map[string]browser.Launcher{
		types.EnvChrome: &browser.ChromeLauncher{
			Headless:  cfg.Browser.Headless,
			ExecPath:  cfg.Browser.ExecPath,
			UserAgent: cfg.Browser.UserAgent,
			Agent:     agent,
		},
		types.EnvHTTP: &browser.HTTPLauncher{
			Client:    client,
			UserAgent: cfg.Browser.UserAgent,
			Agent:     agent,
		},
	}

	kind := string(cfg.Browser.Kind)
	if kind == "" {
		kind = types.EnvChrome
	}
	huntLauncher, ok := launchers[kind]
	if !ok {
		return nil, fmt.Errorf("browser kind %q: use chrome or http", kind)
	}

	var ext *extract.Extractor
	if completer != nil {
		ext = &extract.Extractor{
			LLM:        completer,
			Model:      cfg.AI.Model,
			Logger:     logger,
			MaxRetries: cfg.AI.MaxRetries,
		}
	}

	p := &pipeline{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		launchers: launchers,
		hunter:    hunt.New(huntLauncher, reg, ext, logger),
		presets:   preset.New(launchers, logger),
	}
	if cfg.CRM.Token != "" {
		p.crm = &crm.Client{
			Token:   cfg.CRM.Token,
			BaseURL: cfg.CRM.BaseURL,
			HTTP:    client,
			Logger:  logger,
		}
	}
	return p, nil
}

// setup loads config, builds the logger and wires the pipeline.
func setup(ctx context.Context) (*pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return newPipeline(ctx, cfg, logger)
}
