package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kosarica/import-service/internal/extract"
)

var extractDigitsOnly bool

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <text>",
	Short: "Extract colour, size, dimensions and made-to-measure hints from text",
	Example: `  import-service extract "Roller Blind Navy Blue 1200 x 1500mm"
  import-service extract "Vertical blind 180 x 210" --digits-only`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return outputJSON(extract.NewAttributeExtractor(extractDigitsOnly).ExtractAll(text))
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().BoolVar(&extractDigitsOnly, "digits-only", false, "Accept unlabeled number pairs as width x drop")
}

// skuCmd represents the sku command
var skuCmd = &cobra.Command{
	Use:   "sku <sku>...",
	Short: "Group SKUs into parent products by their structure",
	Example: `  import-service sku BLD-100-01 BLD-100-02 BLD-200-01
  import-service sku CHAIR-RED-S CHAIR-RED-M CHAIR-BLUE-S`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return outputJSON(extract.NewSkuPatternAnalyzer().Analyze(args))
	},
}

func init() {
	rootCmd.AddCommand(skuCmd)
}
