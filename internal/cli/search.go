package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pdfrag/internal/usecase"
)

var (
	searchText string
	searchTopK int
	searchDocs string
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the chunks nearest to a query",
	Long: `Ingest the documents directory and print the chunks closest to the query,
nearest first, with their squared L2 distance.

Examples:
  pdfrag search -q "engine oil capacity"
  pdfrag search -q "tyre pressure" -k 3 --docs ./manuals --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().StringVar(&searchDocs, "docs", "", "documents directory (default is the upload directory)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := docsDir(searchDocs)

	p, err := newPipeline(cfg, logger, false)
	if err != nil {
		return err
	}
	if _, err := p.ingest.Ingest(cmd.Context(), dir, nil); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	results, err := p.retrieve.Retrieve(cmd.Context(), searchText, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	out := usecase.ToSearchResults(results)

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := cmd.OutOrStdout()
	if len(out) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	fmt.Fprintf(w, "Found %d results:\n\n", len(out))
	for _, r := range out {
		fmt.Fprintf(w, "%d. %s (page %s, distance: %.4f)\n", r.Rank, r.Source, r.Page, r.Score)
		fmt.Fprintf(w, "   %s\n\n", preview(r.Text, 200))
	}
	return nil
}

func docsDir(flag string) string {
	if flag != "" {
		return flag
	}
	return GetConfig().UploadPath(GetRootDir())
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return text
}
