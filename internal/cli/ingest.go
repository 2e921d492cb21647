package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pdfrag/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Load, split and index a directory of PDFs",
	Long: `Ingest every PDF directly inside the directory into a fresh in-memory index
and report what was loaded. Defaults to the configured upload directory.

A directory that does not exist is reported as empty.

Examples:
  pdfrag ingest              # Ingest ./test_data
  pdfrag ingest ./manuals    # Ingest a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dir := cfg.UploadPath(GetRootDir())
	if len(args) > 0 {
		dir = args[0]
	}
	if err := checkDir(dir); err != nil {
		return err
	}

	p, err := newPipeline(cfg, logger, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning %s...\n", dir)

	result, err := ingestWithProgress(cmd.Context(), p.ingest, dir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	printIngestResult(cmd, result)
	return nil
}

// checkDir rejects paths that exist but are not directories. A missing
// directory holds no documents and ingests as an empty report.
func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	return nil
}

// ingestWithProgress runs the ingest with a progress bar over the embedding
// calls. The bar is created on the first callback, once the total is known.
func ingestWithProgress(ctx context.Context, uc *usecase.IngestUseCase, dir string) (*usecase.IngestResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			remaining := total - done
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	return uc.Ingest(ctx, dir, progressCallback)
}

func printIngestResult(cmd *cobra.Command, result *usecase.IngestResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\nIngest complete:\n")
	if len(result.Files) == 0 {
		fmt.Fprintf(out, "  No PDF documents found.\n")
	}
	fmt.Fprintf(out, "  Files loaded:    %d\n", len(result.Files)-len(result.Failed()))
	fmt.Fprintf(out, "  Chunks examined: %d\n", result.Examined)
	fmt.Fprintf(out, "  Chunks inserted: %d\n", result.Inserted)
	fmt.Fprintf(out, "  Chunks skipped:  %d (already indexed)\n", result.Skipped)
	fmt.Fprintf(out, "  Processing time: %s\n", result.Duration.Round(time.Millisecond))

	for _, f := range result.Files {
		if f.OK() {
			fmt.Fprintf(out, "  - %s: %d pages, %d chunks\n", filepath.Base(f.Path), f.Pages, f.Chunks)
		}
	}

	if failed := result.Failed(); len(failed) > 0 {
		fmt.Fprintf(out, "\nWarnings:\n")
		for _, f := range failed {
			fmt.Fprintf(out, "  - %s: %v\n", f.Path, f.Err)
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
