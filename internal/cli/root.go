// Package cli implements the humanscore command line tool.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/ingest"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "dev"

// options holds the global flags
type options struct {
	configPath string
	format     string
	verbose    bool
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "humanscore",
		Short: "Score how human a piece of writing reads",
		Long: `humanscore scores text for signs of machine generation.

Each sentence is scored against a language model and flagged as
predictable, boilerplate or human. The overall metrics fold into a
0-100 human-likeness score, with coaching for every flagged sentence.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "humanscore.yaml", "Config file")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "terminal", "Output format (terminal, json, html, docx)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newRewriteCmd(opts),
		newCatalogCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// logger writes text logs to stderr: warnings by default, debug with -v
func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// readInput loads the named file, or stdin when no file or "-" is given
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		doc, err := ingest.Load(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return doc.Text, nil
	}

	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	doc, err := ingest.Parse("stdin.txt", raw)
	if errors.Is(err, ingest.ErrNoText) {
		return "", config.ErrEmptyText
	}
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// openOutput returns the file named by path, or the command's stdout
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}
