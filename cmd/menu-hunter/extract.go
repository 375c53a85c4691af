// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/menu-hunter/internal/hunt"
	"github.com/pdiddy/menu-hunter/internal/preset"
	"github.com/pdiddy/menu-hunter/internal/store"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [urls...]",
	Short: "Extract preset data (menu, business-info, custom) from websites",
	Long: `Extract opens each page and asks the browser agent for data shaped by a
preset: menu, business-info, or custom with --prompt and --format. The
result is validated against the preset's JSON Schema. Each URL gets
--retries attempts in --browser-env, then as many in --fallback-env.

With --write-crm the data is written to the matching HubSpot company (found
by domain, or given by --company-id). With --steps the page is walked with
natural-language steps before extracting; --ordering walks a restaurant
ordering flow to its priced menu.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	urls, err := collectURLs(cmd, args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs: pass URLs as arguments or use --file")
	}

	p, err := setup(ctx)
	if err != nil {
		return err
	}
	opts, err := extractOptionsFromFlags(cmd, p.cfg.Hunt.PresetConcurrency)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	writeCRM, _ := flags.GetBool("write-crm")
	companyID, _ := flags.GetString("company-id")
	steps, _ := flags.GetStringArray("steps")
	ordering, _ := flags.GetBool("ordering")
	location, _ := flags.GetString("location")

	if companyID != "" && len(urls) > 1 {
		return fmt.Errorf("--company-id applies to a single URL")
	}

	var run func(ctx context.Context, url string) *types.ExtractionResult
	switch {
	case ordering:
		run = func(ctx context.Context, url string) *types.ExtractionResult {
			return p.presets.ExtractOrderingMenu(ctx, url, location, p.registry)
		}
	case len(steps) > 0:
		run = func(ctx context.Context, url string) *types.ExtractionResult {
			return p.presets.ExtractWithNavigation(ctx, preset.NavigatedOptions{
				ExtractOptions: opts,
				StartURL:       url,
				Steps:          steps,
			})
		}
	case writeCRM:
		w := p.companyWriter()
		run = func(ctx context.Context, url string) *types.ExtractionResult {
			return p.presets.ExtractAndWrite(ctx, url, opts, w, companyID)
		}
	}

	var results []*types.ExtractionResult
	var batch *types.BatchResult
	if run == nil {
		bar := newProgress(len(urls), "extracting")
		done := 0
		batch = p.presets.ExtractBatch(ctx, urls, opts, func(_, total int, _ *types.ExtractionResult) {
			done++
			bar.set(done, total)
		})
		bar.finish()
		results = batch.Results
	} else {
		results = runSequential(ctx, urls, run)
	}

	if err := saveExtractions(ctx, cmd, p, results); err != nil {
		return err
	}

	output, _ := flags.GetString("output")
	if output == "" {
		output = "-"
	}
	var out any = results
	switch {
	case batch != nil:
		out = batch
	case len(results) == 1:
		out = results[0]
	}
	if err := writeJSONFile(output, out); err != nil {
		return err
	}
	if output != "-" {
		printExtractions(results, batch)
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if batch != nil {
		failed = batch.Failed
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d extraction(s) failed", failed, len(urls))
	}
	return nil
}

// runSequential runs one extraction per URL in order, reporting progress.
func runSequential(ctx context.Context, urls []string, run func(context.Context, string) *types.ExtractionResult) []*types.ExtractionResult {
	bar := newProgress(len(urls), "extracting")
	defer bar.finish()

	results := make([]*types.ExtractionResult, 0, len(urls))
	for i, u := range urls {
		results = append(results, run(ctx, u))
		bar.set(i+1, len(urls))
	}
	return results
}

// companyWriter returns the CRM client as a preset.CompanyWriter, or nil
// when no token is configured.
func (p *pipeline) companyWriter() preset.CompanyWriter {
	if p.crm == nil {
		return nil
	}
	return p.crm
}

func extractOptionsFromFlags(cmd *cobra.Command, concurrency int) (types.ExtractOptions, error) {
	flags := cmd.Flags()
	opts := types.ExtractOptions{Concurrency: concurrency}
	opts.Preset, _ = flags.GetString("preset")
	opts.CustomPrompt, _ = flags.GetString("prompt")
	opts.BrowserEnv, _ = flags.GetString("browser-env")
	opts.FallbackEnv, _ = flags.GetString("fallback-env")
	opts.Retries, _ = flags.GetInt("retries")
	if flags.Changed("timeout") {
		opts.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("concurrency") {
		opts.Concurrency, _ = flags.GetInt("concurrency")
	}

	valid := false
	for _, name := range preset.Names() {
		if opts.Preset == name {
			valid = true
		}
	}
	if !valid {
		return opts, fmt.Errorf("unknown preset %q: use one of %s", opts.Preset, strings.Join(preset.Names(), ", "))
	}

	format, _ := flags.GetString("format")
	if format != "" {
		f, err := readFormat(format)
		if err != nil {
			return opts, err
		}
		opts.OutputFormat = f
	}
	return opts, nil
}

// readFormat parses an output format given inline as JSON or as @file.
func readFormat(arg string) (map[string]any, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading format %s: %w", path, err)
		}
	}
	var f map[string]any
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing --format: %w", err)
	}
	return f, nil
}

// saveExtractions stores results unless --no-save is set.
func saveExtractions(ctx context.Context, cmd *cobra.Command, p *pipeline, results []*types.ExtractionResult) error {
	if noSave, _ := cmd.Flags().GetBool("no-save"); noSave {
		return nil
	}
	s, err := store.Open(p.cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, r := range results {
		id, err := s.SaveExtraction(ctx, r)
		if err != nil {
			return err
		}
		p.logger.Debug("store.extraction.saved", "id", id, "url", r.URL)
	}
	return nil
}

func printExtractions(results []*types.ExtractionResult, batch *types.BatchResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		crm := ""
		switch {
		case r.CRMWritten:
			crm = r.CRMCompanyID
		case r.CRMError != "":
			crm = truncateCell(r.CRMError, 32)
		}
		rows = append(rows, []string{
			truncateCell(r.URL, 48), r.Preset, status, r.Metadata.BrowserEnv,
			formatMs(r.Metadata.DurationMs), crm, truncateCell(r.Error, 40),
		})
	}
	if batch != nil {
		for _, e := range batch.Errors {
			rows = append(rows, []string{truncateCell(e.URL, 48), "", "failed", "", "", "", truncateCell(e.Error, 40)})
		}
	}
	fmt.Println(renderTable(
		[]string{"URL", "Preset", "Status", "Browser", "Duration", "CRM", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

func init() {
	f := extractCmd.Flags()
	f.String("preset", preset.Menu, "extraction preset: "+strings.Join(preset.Names(), ", "))
	f.String("prompt", "", "instruction for the custom preset")
	f.String("format", "", "custom output format as JSON, or @file: a field definition or an example object")
	f.String("browser-env", types.EnvChrome, "preferred browser environment: chrome or http")
	f.String("fallback-env", types.EnvHTTP, "environment tried after the preferred one fails (empty disables)")
	f.Int("retries", preset.DefaultRetries, "attempts per browser environment")
	f.Duration("timeout", preset.DefaultTimeout, "time limit for one attempt")
	f.Int("concurrency", preset.DefaultConcurrency, "extractions run at once")
	f.String("file", "", "file listing URLs: one per line, or .csv")
	f.String("column", "", "CSV column holding URLs (default: detected from header)")
	f.Bool("write-crm", false, "write extracted data to the matching HubSpot company")
	f.String("company-id", "", "HubSpot company ID to write to instead of matching by domain")
	f.StringArray("steps", nil, "navigation step to perform before extracting (repeatable)")
	f.Bool("ordering", false, "walk the ordering flow and parse its priced menu")
	f.String("location", hunt.DefaultLocation, "location entered in ordering flows")
	f.String("output", "", "write JSON results to this file instead of stdout")
	f.Bool("no-save", false, "do not save results to the store")

	rootCmd.AddCommand(extractCmd)
}
