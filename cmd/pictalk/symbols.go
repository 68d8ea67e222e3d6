package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/symbolindex"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve <word>...",
		Short: "Show the pictogram each word resolves to",
		Example: `  pictalk resolve gatos comiendo
  pictalk resolve --json casa`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(cmd.Context()) }()

			var results []app.Resolution
			for _, w := range args {
				res, ok := a.Resolve(w)
				if !ok {
					res = app.Resolution{Word: w}
				}
				results = append(results, res)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			printResolutions(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var (
		k      int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "suggest <text>",
		Short:   "Rank the pictograms most related to a text",
		Example: `  pictalk suggest -k 3 "me gusta jugar en el parque"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if k <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", k)
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(cmd.Context()) }()

			sugg := a.Suggest(cmd.Context(), strings.Join(args, " "), k)
			if asJSON {
				if sugg == nil {
					sugg = []symbolindex.Suggestion{}
				}
				return writeJSON(cmd.OutOrStdout(), sugg)
			}
			printSuggestions(cmd.OutOrStdout(), sugg)
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", 5, "number of suggestions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printResolutions(out io.Writer, results []app.Resolution) {
	for _, r := range results {
		if r.Path == "" {
			fmt.Fprintf(out, "%-16s (sin pictograma)\n", r.Word)
			continue
		}
		fmt.Fprintf(out, "%-16s %-16s %-10s %s\n", r.Word, r.Keyword, r.Stage, r.Path)
	}
}

func printSuggestions(out io.Writer, sugg []symbolindex.Suggestion) {
	if len(sugg) == 0 {
		fmt.Fprintln(out, "(sin sugerencias)")
		return
	}
	for i, s := range sugg {
		fmt.Fprintf(out, "%2d. %-16s %.3f  %s\n", i+1, s.Keyword, s.Score, s.Path)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
