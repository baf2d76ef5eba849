package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/import-service/internal/extract"
	"github.com/kosarica/import-service/internal/parsers"
	"github.com/kosarica/import-service/internal/pipeline"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/types"
)

var (
	analyzeOutput string
	analyzeRows   int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Suggest a column mapping and SKU grouping for a local file",
	Long: `Read a local CSV or XLSX file, suggest which catalogue field each column maps
to, and analyze the SKU column for parent/variant structure. Nothing is written.`,
	Example: `  import-service analyze ./data/blinds.csv
  import-service analyze ./data/catalogue.xlsx --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "table", "Output format: table or json")
	analyzeCmd.Flags().IntVar(&analyzeRows, "rows", 0, "Rows to read for SKU analysis (0 reads the whole file)")
}

type analyzeResult struct {
	File        string                     `json:"file"`
	Headers     []string                   `json:"headers"`
	TotalRows   int                        `json:"total_rows"`
	Mapping     map[int]string             `json:"mapping"`
	Suggestions []session.ColumnSuggestion `json:"suggestions"`
	Unmapped    []int                      `json:"unmapped"`
	SkuAnalysis *extract.SkuAnalysis       `json:"sku_analysis,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	fileType, ok := types.FileTypeFromName(filePath)
	if !ok {
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}

	logger.Info().Str("file", filePath).Str("type", string(fileType)).Msg("Analyzing file")
	reader, err := parsers.Open(filePath, fileType)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	headers := reader.Headers()
	mapping, suggestions := pipeline.SuggestMapping(headers)

	skuColumn := -1
	for col, field := range mapping {
		if field == types.FieldVariantSKU {
			skuColumn = col
		}
	}

	result := analyzeResult{
		File:        filePath,
		Headers:     headers,
		Mapping:     mapping,
		Suggestions: suggestions,
		Unmapped:    pipeline.UnmappedColumns(headers, mapping),
	}

	var skus []string
	for analyzeRows <= 0 || result.TotalRows < analyzeRows {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		if row.IsEmpty() {
			continue
		}
		result.TotalRows++
		if skuColumn >= 0 && skuColumn < len(row.Values) {
			if sku := strings.TrimSpace(row.Values[skuColumn]); sku != "" {
				skus = append(skus, sku)
			}
		}
	}

	if len(skus) > 0 {
		analysis := extract.NewSkuPatternAnalyzer().Analyze(skus)
		result.SkuAnalysis = &analysis
	}

	switch strings.ToLower(analyzeOutput) {
	case "json":
		return outputJSON(result)
	case "table":
		outputAnalyzeTable(result)
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", analyzeOutput)
	}
	return nil
}

func outputAnalyzeTable(result analyzeResult) {
	fmt.Printf("\nAnalysis of %s (%d rows)\n", result.File, result.TotalRows)
	fmt.Println(strings.Repeat("-", 60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Column\tHeader\tField\tConfidence\n")
	fmt.Fprintf(w, "------\t------\t-----\t----------\n")
	for _, s := range result.Suggestions {
		field := "-"
		if s.Field != "" {
			field = s.Field
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\n", s.Column, s.Header, field, s.Confidence)
	}
	w.Flush()

	if a := result.SkuAnalysis; a != nil {
		fmt.Printf("\nSKU pattern: %s (confidence %.2f, %d groups, %d ungrouped)\n",
			a.PatternType, a.Confidence, len(a.Groups), len(a.Ungrouped))
		shown := 0
		for parent, members := range a.Groups {
			if shown == 5 {
				fmt.Printf("... and %d more groups\n", len(a.Groups)-shown)
				break
			}
			fmt.Printf("  %s (%s): %s\n", parent, a.ParentNames[parent], strings.Join(members, ", "))
			shown++
		}
	}
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
