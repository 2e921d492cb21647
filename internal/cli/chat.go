package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
	"pdfrag/internal/usecase"
)

var chatWatch bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question-answering session",
	Long: `Start a session over stdin. The upload and store directories are cleared
first, so every session starts with an empty index.

Commands inside the session:
  /upload PATH   copy a PDF into the session and index it
  /files         list uploaded documents
  /session       show the session id and settings fingerprint
  /help          show this help
  /quit          end the session
Any other line is a question.

With --watch, PDFs copied into the upload directory are indexed as they appear.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatWatch, "watch", false, "index PDFs that appear in the upload directory")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()
	ctx := cmd.Context()

	p, err := newPipeline(cfg, logger, true)
	if err != nil {
		return err
	}

	session, err := usecase.StartSession(usecase.SessionOptions{
		UploadDir:  cfg.UploadPath(root),
		StoreDir:   cfg.StorePath(root),
		ConfigHash: store.ComputeConfigHash(cfg),
		Ingest:     p.ingest,
		Answer:     p.answer,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.Close()

	out := cmd.OutOrStdout()

	if chatWatch {
		stop := startWatcher(ctx, session, fs.NewWatcher(session.UploadDir(), p.walker, 0, logger), out)
		defer stop()
	}

	fmt.Fprintf(out, "Session %s started. Type /help for commands.\n", session.ID())
	return chatLoop(ctx, session, cmd.InOrStdin(), out)
}

// startWatcher indexes files dropped into the upload directory until the
// returned stop function is called. stop returns once any running sync has
// finished, so the session can be closed right after it.
func startWatcher(ctx context.Context, session *usecase.Session, w *fs.Watcher, out io.Writer) (stop func()) {
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := w.Run(watchCtx, func(names []string) {
			res, err := session.Sync(watchCtx)
			if err != nil {
				fmt.Fprintf(out, "\nFailed to index %s: %v\n> ", strings.Join(names, ", "), err)
				return
			}
			fmt.Fprintf(out, "\nIndexed %s (%d new chunks)\n> ", strings.Join(names, ", "), res.Inserted)
		})
		if err != nil {
			logger.Error("watcher stopped", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func chatLoop(ctx context.Context, session *usecase.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			cmd, arg, _ := strings.Cut(line, " ")
			switch cmd {
			case "/quit", "/exit":
				return nil
			case "/help":
				printChatHelp(out)
			case "/files":
				listFiles(session, out)
			case "/session":
				showSession(session, out)
			case "/upload":
				uploadFile(ctx, session, strings.TrimSpace(arg), out)
			default:
				fmt.Fprintf(out, "Unknown command %s. Type /help for commands.\n", cmd)
			}
			continue
		}

		askQuestion(ctx, session, line, out)
	}
}

func printChatHelp(out io.Writer) {
	fmt.Fprintln(out, "  /upload PATH   copy a PDF into the session and index it")
	fmt.Fprintln(out, "  /files         list uploaded documents")
	fmt.Fprintln(out, "  /session       show the session id and settings fingerprint")
	fmt.Fprintln(out, "  /help          show this help")
	fmt.Fprintln(out, "  /quit          end the session")
}

func listFiles(session *usecase.Session, out io.Writer) {
	files, err := session.Files()
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No documents uploaded yet.")
		return
	}
	fmt.Fprintln(out, "Uploaded documents:")
	for _, f := range files {
		fmt.Fprintf(out, "  - %s (%d bytes, %d chunks)\n", f.Name, f.Size, f.ChunksInserted)
	}
}

func showSession(session *usecase.Session, out io.Writer) {
	info, err := session.Info()
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Session %s\n", info.ID)
	fmt.Fprintf(out, "  started:     %s\n", info.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  config hash: %s\n", info.ConfigHash)
}

func uploadFile(ctx context.Context, session *usecase.Session, path string, out io.Writer) {
	if path == "" {
		fmt.Fprintln(out, "Usage: /upload PATH")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	defer f.Close()

	start := time.Now()
	res, err := session.Upload(ctx, filepath.Base(path), f)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		fmt.Fprintf(out, "File %s already exists.\n", filepath.Base(path))
	case errors.Is(err, domain.ErrInvalidInput):
		fmt.Fprintf(out, "Only PDF files can be uploaded: %s\n", filepath.Base(path))
	case err != nil:
		fmt.Fprintf(out, "Error: %v\n", err)
	default:
		fmt.Fprintf(out, "Uploaded %s: %d new chunks (processing time: %s)\n",
			res.Upload.Name, res.Upload.ChunksInserted, time.Since(start).Round(time.Millisecond))
	}
}

func askQuestion(ctx context.Context, session *usecase.Session, question string, out io.Writer) {
	if !session.HasUploads() {
		fmt.Fprintln(out, noUploadsWarning)
	}

	ans, err := session.Ask(ctx, question)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(out, ans.Text)
	fmt.Fprintf(out, "(processing time: %s)\n", ans.Duration.Round(time.Millisecond))
}
