package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zombar/humanscore/internal/app"
	"github.com/zombar/humanscore/internal/report"
)

// errDocxNeedsOutput keeps binary output off the terminal
var errDocxNeedsOutput = errors.New("docx output needs --output")

type analyzeOptions struct {
	modelURL   string
	classifier string
	mixed      bool
	sections   bool
	output     string
}

func newAnalyzeCmd(global *options) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Score a document for human-likeness",
		Long: `Score a document sentence by sentence.

Reads .txt, .md, .pdf and .docx files, or stdin when no file is given.

Examples:
  humanscore analyze essay.md
  cat essay.txt | humanscore analyze --format json
  humanscore analyze essay.pdf --mixed --sections --format html -o report.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.modelURL, "model-url", "", "Inference sidecar URL (overrides models.url)")
	cmd.Flags().StringVar(&opts.classifier, "classifier", "", "Classifier backend: http, ollama or none")
	cmd.Flags().BoolVar(&opts.mixed, "mixed", false, "Report the 30-50 perplexity band as MIXED")
	cmd.Flags().BoolVar(&opts.sections, "sections", false, "Enable LOW_DIVERSITY and UNIFORM_RHYTHM flags")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, global *options, opts *analyzeOptions) error {
	format, err := report.ParseFormat(global.format)
	if err != nil {
		return err
	}
	if format == report.FormatDOCX && (opts.output == "" || opts.output == "-") {
		return errDocxNeedsOutput
	}

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("model-url") {
		cfg.Models.URL = opts.modelURL
	}
	if flags.Changed("classifier") {
		cfg.Models.Classifier = opts.classifier
	}
	if flags.Changed("mixed") {
		cfg.Analysis.Mixed = opts.mixed
	}
	if flags.Changed("sections") {
		cfg.Analysis.SectionFlags = opts.sections
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Limits.Check(text); err != nil {
		return err
	}

	logger := global.logger(cmd.ErrOrStderr())
	bundle, err := app.NewBundle(cfg, logger, nil)
	if err != nil {
		return err
	}
	result := app.NewAnalyzer(cfg, bundle, logger, nil).Analyze(cmd.Context(), text)

	w, closeOutput, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}

	renderOpts := report.Options{Generated: time.Now()}
	if format == report.FormatTerminal && opts.output == "" {
		renderOpts = report.TerminalOptions(w)
	}
	if err := report.Render(w, format, result, renderOpts); err != nil {
		closeOutput()
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := closeOutput(); err != nil {
		return err
	}

	if opts.output != "" {
		logger.Info("report written", "path", opts.output, "format", format)
	}
	return nil
}
