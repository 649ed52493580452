package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zombar/humanscore/internal/analyzer"
	"github.com/zombar/humanscore/internal/models"
)

type catalogEntry struct {
	Flag models.FlagCategory `json:"flag"`
	models.SuggestionEntry
}

func newCatalogCmd(global *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the sentence flags and their coaching text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]catalogEntry, 0, len(models.AllFlags))
			for _, f := range models.AllFlags {
				entries = append(entries, catalogEntry{Flag: f, SuggestionEntry: analyzer.SuggestionFor(f)})
			}

			out := cmd.OutOrStdout()
			if global.format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Symbol, e.Flag, e.Short)
				fmt.Fprintf(tw, "\t\t%s\n", e.Suggestion)
			}
			return tw.Flush()
		},
	}
}
