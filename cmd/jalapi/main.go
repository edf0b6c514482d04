package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/logger"
	"github.com/PentesterFlow/jalapi/internal/output"
	"github.com/PentesterFlow/jalapi/internal/progress"
	"github.com/PentesterFlow/jalapi/internal/shutdown"
	"github.com/PentesterFlow/jalapi/pkg/analyzer"
)

const defaultConfigFile = "config.yaml"

var (
	version = "1.0.0"

	// Global flags
	configFile string
	debug      bool

	// Analyze flags
	jsFile       string
	outputFile   string
	jsonOutput   bool
	model        string
	workers      int
	noLLM        bool
	noCache      bool
	showProgress bool

	// init-config flags
	force bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jalapi --js <file>",
		Short: "JALAPI - JavaScript API endpoint discovery",
		Long: `JALAPI - Discover the HTTP API endpoints a JavaScript bundle talks to.

Pattern matching and a language model analyze the source independently.
Their findings are merged into one deduplicated, confidence-scored list.`,
		Version:       version,
		Args:          cobra.NoArgs,
		RunE:          runAnalyze,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration",
		Long:  "Write the default configuration, including the built-in prompts, to path (default config.yaml).",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInitConfig,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jalapi %s\n", version)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug logging and full error details")

	// Analyze flags
	rootCmd.Flags().StringVar(&jsFile, "js", "", "JavaScript (or HTML) file to analyze")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Save JSON results to this file")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of the human-readable report")
	rootCmd.Flags().StringVar(&model, "model", "", "Model name (overrides the configuration)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent model requests (overrides the configuration)")
	rootCmd.Flags().BoolVar(&noLLM, "no-llm", false, "Pattern detection only, no model requests")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not read or write the response cache")
	rootCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar while chunks are analyzed")
	rootCmd.MarkFlagRequired("js")

	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError prints one line, or the full chain and error type in debug
// mode.
func printError(err error) {
	if !debug {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apperrors.Summary(err))
		return
	}
	fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", apperrors.GetErrorType(err), err)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Override with command-line flags if provided
	if cmd.Flags().Changed("model") {
		config.LLM.Model = model
	}
	if cmd.Flags().Changed("workers") {
		config.Semantic.Workers = workers
	}
	if noLLM {
		config.Semantic.Enabled = false
	}
	if noCache {
		config.Cache.Enabled = false
	}
	if debug {
		config.Log.Level = "debug"
	}

	log := logger.NewNamed(config.Log.Level, config.Log.Pretty, os.Stderr)

	enableProgress := showProgress && !jsonOutput && config.Semantic.Enabled
	opts := []analyzer.Option{
		analyzer.WithConfig(config),
		analyzer.WithLogger(log),
	}
	var display *progress.Display
	if enableProgress {
		display = progress.New()
		opts = append(opts, analyzer.WithObserver(display))
	}

	a, err := analyzer.New(opts...)
	if err != nil {
		return err
	}

	handler := shutdown.New(context.Background(), shutdown.DefaultConfig(), log)
	handler.RegisterCloser("response cache", a)
	defer handler.Shutdown()

	if !jsonOutput {
		printBanner(config)
	}

	result, err := a.Run(handler.Context(), jsFile)
	if display != nil {
		display.Stop()
	}
	if err != nil {
		if handler.Interrupted() {
			return apperrors.NewCancelledError(jsFile, "analyze")
		}
		return err
	}

	format := output.FormatText
	if jsonOutput {
		format = output.FormatJSON
	}
	w := output.NewWriter(os.Stdout, output.Config{Format: format, Pretty: true, Debug: debug})
	if err := w.WriteResult(result); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if outputFile != "" {
		if err := output.WriteFile(outputFile, result, debug); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
		if !jsonOutput {
			fmt.Printf("\nFull results saved to %s\n", outputFile)
		}
	}

	return nil
}

// loadConfig reads --config. The default file may be absent, in which case
// the built-in prompts are used; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*analyzer.Config, error) {
	config, err := analyzer.LoadFromFile(configFile)
	if err == nil {
		return config, nil
	}
	if !cmd.Flags().Changed("config") && errors.Is(err, fs.ErrNotExist) {
		return analyzer.DefaultConfig(), nil
	}
	return nil, err
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := defaultConfigFile
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !force {
		return apperrors.NewConfigError(path, "file exists, use --force to overwrite", nil)
	}

	if err := analyzer.DefaultConfig().SaveToFile(path); err != nil {
		return apperrors.NewConfigError(path, "failed to write config", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}

func printBanner(config *analyzer.Config) {
	mode := "pattern + " + config.LLM.Model
	if !config.Semantic.Enabled {
		mode = "pattern only"
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Printf("║%s║\n", center("JALAPI v"+version, 62))
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Source:     %s\n", jsFile)
	fmt.Printf("Detectors:  %s\n", mode)
	if config.Semantic.Enabled {
		fmt.Printf("Workers:    %d\n", config.Semantic.Workers)
	}
}

func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
