// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/menu-hunter/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and export saved hunt results",
	Long: `Store reads the local SQLite database of saved hunts and preset
extractions. Use subcommands to list, show, search or export them.`,
}

// --- list subcommand ---

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved hunts, newest first",
	RunE:  runStoreList,
}

func runStoreList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.List(cmd.Context(), queryOptsFromFlags(cmd))
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, records)
	}
	if len(records) == 0 {
		fmt.Println("No hunts found.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		rows = append(rows, []string{
			shortID(r.ID), truncateCell(r.Brand, 24), truncateCell(r.URL, 40), status, r.MenuType,
			itoa(r.TotalItems), formatMs(r.DurationMs), r.HuntedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "Brand", "URL", "Status", "Menu Type", "Items", "Duration", "Hunted"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	fmt.Printf("\n%d hunts\n", len(records))
	return nil
}

// --- show subcommand ---

var storeShowCmd = &cobra.Command{
	Use:   "show <hunt-id>",
	Short: "Print a saved hunt result as JSON",
	Long:  `Show prints the full stored result of one hunt. A unique ID prefix is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreShow,
}

func runStoreShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, rec.Result, "", "  "); err != nil {
		return fmt.Errorf("formatting result: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(os.Stdout)
	return err
}

// --- search subcommand ---

var storeSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find menu items by name across saved hunts",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreSearch,
}

func runStoreSearch(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	items, err := s.SearchItems(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, items)
	}
	if len(items) == 0 {
		fmt.Println("No items found.")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		price := it.Price
		if it.BasePrice > 0 {
			price = "$" + strconv.FormatFloat(it.BasePrice, 'f', 2, 64)
		}
		rows = append(rows, []string{
			truncateCell(it.Brand, 24), truncateCell(it.Section, 24), truncateCell(it.Name, 40), price, shortID(it.HuntID),
		})
	}
	fmt.Println(renderTable(
		[]string{"Brand", "Section", "Item", "Price", "Hunt"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Printf("\n%d items\n", len(items))
	return nil
}

// --- extractions subcommand ---

var storeExtractionsCmd = &cobra.Command{
	Use:   "extractions",
	Short: "List saved preset extractions, newest first",
	RunE:  runStoreExtractions,
}

func runStoreExtractions(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := s.Extractions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, records)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10), truncateCell(r.URL, 40), r.Preset, yesNo(r.Success),
			yesNo(r.CRMWritten), r.CRMCompanyID, r.ExtractedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "URL", "Preset", "Success", "CRM", "Company", "Extracted"},
		rows,
		[]columnAlignment{alignRight},
	))
	return nil
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved hunts to JSON, YAML or XLSX",
	Long: `Export writes saved hunts with their items. JSON includes the full hunt
results; YAML and XLSX carry summaries and items. The filter flags of list
apply. Output goes to --output, or stdout for json and yaml.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var export func(*store.Store, io.Writer) error
	opts := queryOptsFromFlags(cmd)
	ctx := cmd.Context()
	switch format {
	case "json":
		export = func(s *store.Store, w io.Writer) error { return s.ExportJSON(ctx, w, opts) }
	case "yaml", "":
		export = func(s *store.Store, w io.Writer) error { return s.ExportYAML(ctx, w, opts) }
	case "xlsx":
		if output == "" {
			return fmt.Errorf("xlsx export needs --output")
		}
		export = func(s *store.Store, w io.Writer) error { return s.ExportXLSX(ctx, w, opts) }
	default:
		return fmt.Errorf("unsupported format %q: use json, yaml or xlsx", format)
	}

	if output == "" {
		return export(s, os.Stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := export(s, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
	return nil
}

// --- shared helpers ---

func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Store)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func queryOptsFromFlags(cmd *cobra.Command) store.QueryOptions {
	brand, _ := cmd.Flags().GetString("brand")
	url, _ := cmd.Flags().GetString("url")
	successOnly, _ := cmd.Flags().GetBool("success-only")
	limit, _ := cmd.Flags().GetInt("limit")
	return store.QueryOptions{Brand: brand, URL: url, SuccessOnly: successOnly, Limit: limit}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("brand", "", "filter by brand (substring match)")
	cmd.Flags().String("url", "", "filter by hunted URL")
	cmd.Flags().Bool("success-only", false, "only successful hunts")
}

func init() {
	addFilterFlags(storeListCmd)
	storeListCmd.Flags().Int("limit", 0, "maximum hunts (0 = default 50)")
	storeListCmd.Flags().Bool("json", false, "output as JSON")

	storeSearchCmd.Flags().Int("limit", 0, "maximum items (0 = default 50)")
	storeSearchCmd.Flags().Bool("json", false, "output as JSON")

	storeExtractionsCmd.Flags().Int("limit", 0, "maximum extractions (0 = default 50)")
	storeExtractionsCmd.Flags().Bool("json", false, "output as JSON")

	addFilterFlags(storeExportCmd)
	storeExportCmd.Flags().String("format", "yaml", "export format: json, yaml or xlsx")
	storeExportCmd.Flags().String("output", "", "output file (default stdout)")

	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeSearchCmd)
	storeCmd.AddCommand(storeExtractionsCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}
