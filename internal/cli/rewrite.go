package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zombar/humanscore/internal/app"
	"github.com/zombar/humanscore/internal/rewrite"
)

var errRewriteDisabled = errors.New("rewriting is disabled, set rewrite.backend to ollama or anthropic")

func newRewriteCmd(global *options) *cobra.Command {
	var style string

	cmd := &cobra.Command{
		Use:   "rewrite [file]",
		Short: "Rewrite text in a chosen style",
		Long: `Rewrite a document through the configured LLM backend.

Styles: casual, professional, academic, creative, humanize (default).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rewrite.ParseStyle(style)
			if err != nil {
				return err
			}
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			svc, err := app.NewRewriter(cfg, nil)
			if err != nil {
				return err
			}
			if !svc.Available() {
				return errRewriteDisabled
			}

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			out, err := svc.Rewrite(cmd.Context(), text, s)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&style, "style", "s", string(rewrite.StyleHumanize), "Rewrite style")
	return cmd
}
