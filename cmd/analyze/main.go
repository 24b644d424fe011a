// Package main provides the sheetlens command line interface.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sheetlens/internal/capture"
	"sheetlens/internal/classifier"
	_ "sheetlens/internal/classifier/claude"
	_ "sheetlens/internal/classifier/gemini"
	_ "sheetlens/internal/classifier/openai"
	"sheetlens/internal/config"
	"sheetlens/internal/port"
	"sheetlens/internal/report"
	"sheetlens/internal/service"
)

var (
	apiKey      string
	provider    string
	model       string
	withCapture bool
	maxRows     int
	asJSON      bool
	inspectOnly bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetlens [workbook.xlsx]",
		Short: "Classify the sheets of an Excel workbook",
		Long: `sheetlens renders each sheet of a workbook as text, sends it to an LLM
and reports whether each sheet is a table, a form or a mix of both,
including detected header rows.`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Model provider API key (falls back to configuration)")
	rootCmd.Flags().StringVar(&provider, "provider", "", "Model provider: openai, claude, gemini")
	rootCmd.Flags().StringVar(&model, "model", "", "Model name (defaults to the provider's default)")
	rootCmd.Flags().BoolVar(&withCapture, "capture", false, "Render page images of the workbook and send them along")
	rootCmd.Flags().IntVar(&maxRows, "max-rows", 0, "Maximum rows per sheet in the text representation")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "Print the full analysis report as JSON")
	rootCmd.Flags().BoolVar(&inspectOnly, "inspect", false, "Print workbook structure without calling the model")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", inputPath, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cfg)

	var capturer port.SheetCapturer
	if withCapture {
		capturer = capture.New(&cfg.Capture)
	}

	var client port.ModelClient
	if !inspectOnly {
		client, err = classifier.BuildChain(&cfg.Classifier)
		if err != nil {
			return fmt.Errorf("failed to build model client: %w", err)
		}
	}

	svc := service.NewAnalysisService(client, capturer, &cfg.Classifier, &cfg.Upload)
	ctx := cmd.Context()
	fileName := filepath.Base(inputPath)

	if inspectOnly {
		structure, err := svc.Inspect(ctx, fileName, data)
		if err != nil {
			return err
		}
		return printJSON(structure)
	}

	result, err := svc.Analyze(ctx, service.AnalyzeInput{
		FileName:    fileName,
		Workbook:    data,
		WithCapture: withCapture,
		APIKey:      apiKey,
	})
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(result)
	}

	fmt.Println(report.Markdown(result.Analysis))
	return nil
}

// applyFlags folds command line overrides into the loaded configuration.
// A provider or model flag collapses the fallback chain to a single
// provider, since the flags describe exactly one.
func applyFlags(cfg *config.Config) {
	if maxRows > 0 {
		cfg.Classifier.MaxTextRows = maxRows
	}

	if provider == "" && model == "" {
		return
	}

	pc := *cfg.Classifier.PrimaryConfig()
	if provider != "" && provider != pc.Provider {
		pc.Provider = provider
		pc.DefaultModel = ""
	}
	if model != "" {
		pc.DefaultModel = model
	}
	cfg.Classifier.Primary = pc
	cfg.Classifier.Secondary = config.ProviderConfig{}
	cfg.Classifier.Tertiary = config.ProviderConfig{}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
