package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/import-service/internal/parsers"
	"github.com/kosarica/import-service/internal/pipeline"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/types"
)

var (
	importUser      string
	importMapping   string
	importMode      string
	importChunkSize int
	importErrorsCSV string
	importOutput    string
	importNoWait    bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Run the full import pipeline for a local file",
	Long: `Upload a local file into a new import session and run every stage (analyze,
dry run, process, finalize) on this process. Without --mapping the suggested
column mapping is used.

Without a configured database the catalogue is in memory and discarded on exit,
which makes this a full rehearsal of the import.`,
	Example: `  import-service import ./data/blinds.csv
  import-service import ./data/blinds.csv --mapping 0=product_name,1=variant_sku,3=retail_price
  import-service import ./data/catalogue.xlsx --mode update_existing --errors-csv errors.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importUser, "user", "cli", "User ID that owns the session")
	importCmd.Flags().StringVar(&importMapping, "mapping", "", "Column mapping as column=field pairs (default: suggested mapping)")
	importCmd.Flags().StringVar(&importMode, "mode", string(session.ModeCreateOrUpdate), "Import mode: create_only, update_existing or create_or_update")
	importCmd.Flags().IntVar(&importChunkSize, "chunk-size", 0, "Rows per chunk (default from config)")
	importCmd.Flags().StringVar(&importErrorsCSV, "errors-csv", "", "Write row errors to this CSV file")
	importCmd.Flags().StringVar(&importOutput, "output", "table", "Output format: table or json")
	importCmd.Flags().BoolVar(&importNoWait, "no-wait", false, "Queue the session and exit without running stages")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	filePath := args[0]

	mapping, err := importColumnMapping(filePath)
	if err != nil {
		return err
	}

	importCfg := session.DefaultImportConfig(importChunkSize)
	importCfg.Mode = session.ImportMode(importMode)
	importCfg = importCfg.WithDefaults(cfg.Import.DefaultChunkSize)

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	s, err := svc.Runner.Intake(ctx, pipeline.IntakeRequest{
		UserID:   importUser,
		FileName: filepath.Base(filePath),
		Size:     info.Size(),
		Body:     f,
		Config:   &importCfg,
		Mapping:  mapping,
	})
	if err != nil {
		return fmt.Errorf("failed to start import: %w", err)
	}
	logger.Info().Str("session", s.ID).Int("mapped_columns", len(mapping)).Msg("Import session created")

	if importNoWait {
		if !svc.Persistent() {
			return fmt.Errorf("--no-wait needs a database, in-memory sessions end with this process")
		}
		fmt.Println(s.ID)
		return nil
	}

	if err := svc.NewWorker("cli").Drain(ctx); err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}

	s, err = svc.Sessions.Get(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if importErrorsCSV != "" {
		if err := writeErrorsFile(importErrorsCSV, s); err != nil {
			return err
		}
	}

	if s.Status != session.StatusCompleted {
		outputSessionErrors(s)
		return fmt.Errorf("import ended in status %s", s.Status)
	}

	switch strings.ToLower(importOutput) {
	case "json":
		return pipeline.WriteReportJSON(os.Stdout, s)
	case "table":
		outputImportTable(s)
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", importOutput)
	}
	return nil
}

// importColumnMapping parses --mapping, or suggests one from the file header
func importColumnMapping(filePath string) (map[int]string, error) {
	if importMapping != "" {
		return parseMappingFlag(importMapping)
	}

	fileType, ok := types.FileTypeFromName(filePath)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
	reader, err := parsers.Open(filePath, fileType)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mapping, _ := pipeline.SuggestMapping(reader.Headers())
	if len(mapping) == 0 {
		return nil, fmt.Errorf("no column could be mapped, pass --mapping")
	}
	return mapping, nil
}

func parseMappingFlag(value string) (map[int]string, error) {
	mapping := make(map[int]string)
	for _, pair := range strings.Split(value, ",") {
		col, field, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid mapping pair %q, want column=field", pair)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(col))
		if err != nil {
			return nil, fmt.Errorf("invalid mapping column %q: %w", col, err)
		}
		mapping[idx] = strings.TrimSpace(field)
	}
	return mapping, nil
}

func writeErrorsFile(path string, s *session.ImportSession) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create errors file: %w", err)
	}
	defer f.Close()
	if err := pipeline.WriteErrorsCSV(f, s); err != nil {
		return fmt.Errorf("failed to write errors file: %w", err)
	}
	logger.Info().Str("file", path).Int("errors", len(s.Errors)).Msg("Wrote errors")
	return nil
}

func outputSessionErrors(s *session.ImportSession) {
	fmt.Printf("\nImport %s ended in status %s\n", s.ID, s.Status)
	for i, e := range s.Errors {
		if i >= 10 {
			fmt.Printf("... and %d more errors\n", len(s.Errors)-10)
			break
		}
		row := "-"
		if e.Row != nil {
			row = strconv.Itoa(*e.Row)
		}
		fmt.Printf("Row %s: %s\n", row, e.Message)
	}
}

func outputImportTable(s *session.ImportSession) {
	report := s.FinalResult.Report
	fmt.Printf("\nImport %s (%s)\n", s.ID, s.FileName)
	fmt.Println(strings.Repeat("-", 60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Metric\tValue\n")
	fmt.Fprintf(w, "------\t-----\n")
	fmt.Fprintf(w, "Total Rows\t%d\n", s.TotalRows)
	fmt.Fprintf(w, "Successful\t%d\n", s.SuccessfulRows)
	fmt.Fprintf(w, "Failed\t%d\n", s.FailedRows)
	fmt.Fprintf(w, "Skipped\t%d\n", s.SkippedRows)
	fmt.Fprintf(w, "Products Created\t%d\n", report.DataCreated.ProductsCreated)
	fmt.Fprintf(w, "Variants Created\t%d\n", report.DataCreated.VariantsCreated)
	fmt.Fprintf(w, "Prices Set\t%d\n", report.DataCreated.PricesSet)
	w.Flush()

	for _, r := range report.Recommendations {
		fmt.Printf("[%s] %s\n", r.Type, r.Message)
	}
	if len(s.Errors) > 0 {
		outputSessionErrors(s)
	}
}
