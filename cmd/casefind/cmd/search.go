package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var (
		workspace  string
		limit      int
		useRerank  bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search against the local index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			comps, err := openComponents(cfg)
			if err != nil {
				return err
			}
			defer comps.Close()

			opts := comps.orch.Options()
			if limit > 0 {
				opts.MaxResults = limit
			}
			opts.UseHostedReranker = opts.UseHostedReranker || useRerank

			results, err := comps.orch.Search(cmd.Context(), workspace, query, opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results.")
				return nil
			}

			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s  [%.3f %s]\n", i+1, r.Title, r.CombinedScore, r.Source)
				if cite := r.Metadata["citation"]; cite != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s", cite)
					if court := r.Metadata["court"]; court != "" {
						fmt.Fprintf(cmd.OutOrStdout(), " · %s", court)
					}
					fmt.Fprintln(cmd.OutOrStdout())
				} else if court := r.Metadata["court"]; court != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", court)
				}
				if r.Text != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", snippet(r.Text, 160))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "default", "Workspace to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().BoolVar(&useRerank, "rerank", false, "Enable the hosted reranking pass")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")

	return cmd
}

// snippet truncates text for terminal display.
func snippet(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
