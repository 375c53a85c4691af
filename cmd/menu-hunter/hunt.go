// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/menu-hunter/internal/hunt"
	"github.com/pdiddy/menu-hunter/internal/preset"
	"github.com/pdiddy/menu-hunter/internal/store"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

var huntCmd = &cobra.Command{
	Use:   "hunt <url>",
	Short: "Find and extract the menu of one restaurant website",
	Long: `Hunt visits the site, classifies where its menu lives, navigates to it,
extracts the menu and normalizes it. The result is saved to the store and
printed as JSON with --json or --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runHunt,
}

func runHunt(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := setup(ctx)
	if err != nil {
		return err
	}

	opts := huntOptionsFromFlags(cmd, p.cfg.Hunt.HuntOptions)
	res := p.hunter.Hunt(ctx, args[0], opts)

	if err := saveHunts(ctx, cmd, p, res); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	asJSON, _ := cmd.Flags().GetBool("json")
	switch {
	case output != "":
		if err := writeJSONFile(output, res); err != nil {
			return err
		}
	case asJSON:
		if err := writeJSON(os.Stdout, res); err != nil {
			return err
		}
	default:
		printHunt(res)
	}

	if !res.Success {
		return fmt.Errorf("hunt failed: %s", res.Error)
	}
	return nil
}

func printHunt(res *types.HuntResult) {
	rows := [][]string{
		{"URL", res.URL},
		{"Final URL", res.FinalURL},
		{"Success", yesNo(res.Success)},
		{"Menu type", string(res.Metadata.DiscoveryType)},
		{"Confidence", fmt.Sprintf("%.2f", res.Metadata.Confidence)},
		{"Fallback parser", yesNo(res.Metadata.UsedFallback)},
		{"Tokens", itoa(res.Metadata.TokensUsed)},
		{"Duration", formatMs(res.Metadata.TotalDurationMs)},
	}
	if res.Menu != nil {
		rows = append(rows, []string{"Brand", res.Menu.Metadata.Brand})
	}
	if res.Validation != nil {
		s := res.Validation.Stats
		rows = append(rows,
			[]string{"Sections", itoa(s.Sections)},
			[]string{"Items", fmt.Sprintf("%d (%d priced)", s.TotalItems, s.ItemsWithPrice)},
		)
		for _, w := range res.Validation.Warnings {
			rows = append(rows, []string{"Warning", w})
		}
	}
	if res.PDFURL != "" {
		rows = append(rows, []string{"PDF", res.PDFURL})
	}
	if res.Error != "" {
		rows = append(rows, []string{"Error", res.Error})
	}
	fmt.Println(renderTable([]string{"Field", "Value"}, rows, nil))

	phases := make([][]string, 0, len(res.Phases))
	for _, ph := range res.Phases {
		phases = append(phases, []string{ph.Phase, formatMs(ph.DurationMs), ph.Result.Error})
	}
	fmt.Println(renderTable([]string{"Phase", "Duration", "Error"}, phases, []columnAlignment{alignLeft, alignRight}))
	if res.Metadata.HuntID != "" {
		fmt.Printf("Hunt ID: %s\n", res.Metadata.HuntID)
	}
}

var batchCmd = &cobra.Command{
	Use:   "batch [urls...]",
	Short: "Hunt menus for many restaurant websites",
	Long: `Batch hunts every URL given as an argument or listed in --file. Text
files hold one URL per line; .csv files are read by header (url, website,
domain, ...) or by --column. URLs run in chunks of --concurrency. A failed
URL never stops the batch.`,
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
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
	opts := huntOptionsFromFlags(cmd, p.cfg.Hunt.HuntOptions)

	bar := newProgress(len(urls), "hunting")
	res := p.hunter.HuntBatch(ctx, urls, opts, bar.set)
	bar.finish()

	if err := saveHunts(ctx, cmd, p, res.Results...); err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := writeJSONFile(output, res); err != nil {
			return err
		}
	}
	printBatch(res)

	if res.HasFailures() {
		return fmt.Errorf("%d of %d URL(s) failed", res.Failed, res.Total)
	}
	return nil
}

func printBatch(res *types.BatchHuntResult) {
	rows := make([][]string, 0, res.Total)
	for _, r := range res.Results {
		items := 0
		if r.Validation != nil {
			items = r.Validation.Stats.TotalItems
		}
		rows = append(rows, []string{
			truncateCell(r.URL, 48), "ok", string(r.Metadata.DiscoveryType),
			itoa(items), formatMs(r.Metadata.TotalDurationMs),
		})
	}
	for _, e := range res.Errors {
		rows = append(rows, []string{truncateCell(e.URL, 48), "failed", "", "", truncateCell(e.Error, 40)})
	}
	fmt.Println(renderTable(
		[]string{"URL", "Status", "Menu Type", "Items", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	fmt.Printf("%d total, %d successful, %d failed in %s\n",
		res.Total, res.Successful, res.Failed, formatMs(res.Metadata.TotalDurationMs))
}

// collectURLs merges positional URLs with those read from --file.
func collectURLs(cmd *cobra.Command, args []string) ([]string, error) {
	urls := make([]string, 0, len(args))
	for _, a := range args {
		urls = append(urls, hunt.NormalizeURL(a))
	}
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		return urls, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()

	var fromFile []string
	if strings.EqualFold(filepath.Ext(file), ".csv") {
		column, _ := cmd.Flags().GetString("column")
		fromFile, err = preset.ParseURLsFromCSV(f, column)
	} else {
		fromFile, err = readURLLines(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return append(urls, fromFile...), nil
}

// readURLLines returns the non-blank, non-comment lines of r.
func readURLLines(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, hunt.NormalizeURL(line))
	}
	return urls, sc.Err()
}

// huntOptionsFromFlags overlays explicitly set flags on the configured defaults.
func huntOptionsFromFlags(cmd *cobra.Command, opts types.HuntOptions) types.HuntOptions {
	flags := cmd.Flags()
	if flags.Changed("location") {
		opts.Location, _ = flags.GetString("location")
	}
	if flags.Changed("format") {
		f, _ := flags.GetString("format")
		opts.Format = types.MenuFormat(f)
	}
	if flags.Changed("model") {
		opts.Model, _ = flags.GetString("model")
	}
	if flags.Changed("timeout") {
		opts.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("order-type") {
		opts.OrderType, _ = flags.GetString("order-type")
	}
	if flags.Changed("brand") {
		opts.Brand, _ = flags.GetString("brand")
	}
	if flags.Changed("concurrency") {
		opts.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("headless") {
		headless, _ := flags.GetBool("headless")
		opts.Headless = &headless
	}
	return opts
}

// saveHunts stores results unless --no-save is set.
func saveHunts(ctx context.Context, cmd *cobra.Command, p *pipeline, results ...*types.HuntResult) error {
	if noSave, _ := cmd.Flags().GetBool("no-save"); noSave {
		return nil
	}
	s, err := store.Open(p.cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, r := range results {
		if r == nil || r.Metadata.HuntID == "" {
			continue
		}
		if err := s.SaveHunt(ctx, r); err != nil {
			return err
		}
		p.logger.Debug("store.hunt.saved", "hunt_id", r.Metadata.HuntID, "url", r.URL)
	}
	return nil
}

func addHuntFlags(cmd *cobra.Command) {
	cmd.Flags().String("location", hunt.DefaultLocation, "location entered in ordering flows")
	cmd.Flags().String("format", string(types.FormatDetailed), "menu format: detailed or simple")
	cmd.Flags().String("model", "", "language model for extraction")
	cmd.Flags().Duration("timeout", hunt.DefaultTimeout, "time limit for one hunt")
	cmd.Flags().Bool("headless", true, "run Chrome without a window (default: browser.headless from config)")
	cmd.Flags().String("order-type", hunt.DefaultOrderType, "ordering choice when both are offered: pickup or delivery")
	cmd.Flags().String("output", "", "write the JSON result to this file (- for stdout)")
	cmd.Flags().Bool("no-save", false, "do not save results to the store")
}

func init() {
	addHuntFlags(huntCmd)
	huntCmd.Flags().String("brand", "", "brand name, overriding the one inferred from the URL")
	huntCmd.Flags().Bool("json", false, "print the full result as JSON")

	addHuntFlags(batchCmd)
	batchCmd.Flags().String("file", "", "file listing URLs: one per line, or .csv")
	batchCmd.Flags().String("column", "", "CSV column holding URLs (default: detected from header)")
	batchCmd.Flags().Int("concurrency", hunt.DefaultConcurrency, "hunts run at once")

	rootCmd.AddCommand(huntCmd)
	rootCmd.AddCommand(batchCmd)
}
