package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const noUploadsWarning = "Please upload files before you start asking questions"

var (
	askText        string
	askDocs        string
	askPrintPrompt bool
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the documents",
	Long: `Ingest the documents directory, retrieve the most similar chunks and ask the
language model to answer from them. With --print-prompt the rendered prompt is
printed instead and the model is not called.

Examples:
  pdfrag ask -q "How much oil does the engine take?"
  pdfrag ask -q "What is the tyre pressure?" --docs ./manuals --print-prompt`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().StringVar(&askDocs, "docs", "", "documents directory (default is the upload directory)")
	askCmd.Flags().BoolVar(&askPrintPrompt, "print-prompt", false, "print the prompt instead of calling the model")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := docsDir(askDocs)
	w := cmd.OutOrStdout()

	p, err := newPipeline(cfg, logger, true)
	if err != nil {
		return err
	}

	if files, _ := p.walker.Walk(dir); len(files) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), noUploadsWarning)
	}

	result, err := p.ingest.Ingest(cmd.Context(), dir, nil)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	for _, f := range result.Failed() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: skipped %s: %v\n", f.Path, f.Err)
	}

	if askPrintPrompt {
		ans, err := p.answer.Prepare(cmd.Context(), askText)
		if err != nil {
			return err
		}
		fmt.Fprint(w, ans.Prompt)
		return nil
	}

	ans, err := p.answer.Answer(cmd.Context(), askText)
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	fmt.Fprintln(w, ans.Text)
	fmt.Fprintf(w, "\nProcessing time: %s\n", ans.Duration.Round(time.Millisecond))
	return nil
}
