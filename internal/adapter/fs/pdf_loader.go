package fs

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// PageExtractor returns the plain text of every page of a document, in
// page order.
type PageExtractor func(path string) ([]string, error)

var (
	_ port.PageLoader = (*PDFLoader)(nil)
	_ port.NameFilter = (*PDFLoader)(nil)
)

// PDFLoader turns every PDF directly inside a directory into page records.
// A file that cannot be parsed is reported and skipped; the others still load.
type PDFLoader struct {
	walker  *Walker
	extract PageExtractor
	logger  *slog.Logger
}

func NewPDFLoader(walker *Walker, logger *slog.Logger) *PDFLoader {
	if walker == nil {
		walker = NewWalker(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFLoader{walker: walker, extract: ExtractPDFPages, logger: logger}
}

// WithExtractor replaces the PDF parser.
func (l *PDFLoader) WithExtractor(extract PageExtractor) *PDFLoader {
	l.extract = extract
	return l
}

// Accepts reports whether Load would pick up a file with this base name.
func (l *PDFLoader) Accepts(name string) bool {
	return !strings.HasPrefix(name, ".") && l.walker.Matches(name)
}

// Load returns page records for all readable files and one report per file.
// Source is the file path as found under dir and pages are numbered from 0.
func (l *PDFLoader) Load(dir string) ([]domain.PageRecord, []domain.FileReport, error) {
	files, err := l.walker.Walk(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: scan %s: %v", domain.ErrLoadFailure, dir, err)
	}

	var records []domain.PageRecord
	reports := make([]domain.FileReport, 0, len(files))
	for _, f := range files {
		pages, err := l.extract(f.Path)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", domain.ErrLoadFailure, f.Path, err)
			l.logger.Warn("skipping unreadable document", "path", f.Path, "error", err)
			reports = append(reports, domain.FileReport{Path: f.Path, Err: err})
			continue
		}

		for i, text := range pages {
			records = append(records, domain.PageRecord{Source: f.Path, Page: i, Text: text})
		}
		reports = append(reports, domain.FileReport{Path: f.Path, Pages: len(pages)})
		l.logger.Debug("loaded document", "path", f.Path, "bytes", f.Size, "pages", len(pages))
	}
	return records, reports, nil
}

// ExtractPDFPages reads a PDF with github.com/ledongthuc/pdf. The parser
// panics on some malformed inputs; those are returned as errors.
func ExtractPDFPages(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i-1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
