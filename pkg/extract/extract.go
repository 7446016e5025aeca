// Package extract turns the OCR markdown of roster pages into CSV rows.
//
// The OCR output of a page is a mix of free text lines and unlabeled tables.
// The free text carries the hierarchical header of the page ("Région : ...",
// "Département : ...", "Commune : ..."); the tables carry one polling bureau
// per row, interleaved with header rows and other OCR artifacts.
//
// Processing a page is a pure function of its markdown and of the context
// inherited from the previous page:
//
//	page, next := extractor.ProcessPage(markdown, inherited)
//
// Key Types:
//
// - Tracker: detects the page header and carries the context across pages
// - RowFilter: tells data rows from noise (NoiseFilter, RowFilterFunc)
// - Extractor: combines both over the tables of a page
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gardar/cartelec/pkg/fsutil"
	"github.com/gardar/cartelec/pkg/roster"
)

// Page holds the rows extracted from one page.
type Page struct {
	Context   roster.PageContext // Context the rows were read under
	Rows      [][]string         // Context fields followed by the row cells
	Discarded int                // Table rows rejected by the filter
}

// Lines returns the page as CSV lines, header first. Cells are joined with
// commas as they are, without quoting.
func (p Page) Lines() []string {
	lines := make([]string, 0, len(p.Rows)+1)
	lines = append(lines, roster.Header)
	for _, row := range p.Rows {
		lines = append(lines, strings.Join(row, ","))
	}
	return lines
}

// Extractor extracts the rows of roster pages.
// The zero value uses a zero Tracker and DefaultFilter.
type Extractor struct {
	Tracker Tracker
	Filter  RowFilter
	Logger  *slog.Logger
}

// NewExtractor returns an extractor with the default labels and filter.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		Tracker: Tracker{Labels: DefaultLabels(), Match: ContainsFold},
		Filter:  DefaultFilter(),
		Logger:  logger,
	}
}

// ProcessPage extracts the rows of one page. The context is resolved once,
// before any row is read, and returned for the next page.
func (e *Extractor) ProcessPage(source []byte, inherited roster.PageContext) (Page, roster.PageContext) {
	ctx := e.Tracker.Next(inherited, splitLines(source))
	filter := e.filter()

	page := Page{Context: ctx}
	for _, table := range Tables(source) {
		for _, row := range table {
			if !filter.Accept(row) {
				page.Discarded++
				continue
			}
			fields := ctx.Fields()
			for _, c := range row {
				if c.Valid {
					fields = append(fields, c.Text)
				}
			}
			page.Rows = append(page.Rows, fields)
		}
	}
	return page, ctx
}

// PageSummary reports the outcome of one markdown file of a directory run.
type PageSummary struct {
	Markdown  string             // Markdown file read
	CSV       string             // CSV file written
	Context   roster.PageContext // Context in effect for the page
	Rows      int                // Rows written
	Discarded int                // Rows rejected by the filter
	Err       error              // Read or write failure, if any
}

// ExtractDir processes every markdown file of dir in file name order and
// writes each page's rows next to it (0001.pdf.md → 0001.pdf.md.csv). The
// context flows from one page to the next. A page that cannot be read is
// logged and leaves the context unchanged; a page whose CSV cannot be written
// is logged and still passes its context on.
func (e *Extractor) ExtractDir(dir string) ([]PageSummary, error) {
	files, err := fsutil.Glob(dir, "*"+roster.MarkdownExt)
	if err != nil {
		return nil, fmt.Errorf("failed to list markdown files: %w", err)
	}

	logger := e.logger()
	var ctx roster.PageContext
	summaries := make([]PageSummary, 0, len(files))

	for _, file := range files {
		summary := PageSummary{Markdown: file, CSV: roster.CSVPath(file), Context: ctx}

		source, err := os.ReadFile(file)
		if err != nil {
			summary.Err = fmt.Errorf("failed to read markdown: %w", err)
			logger.Error("Erreur lors de la lecture du markdown", "fichier", filepath.Base(file), "erreur", err)
			summaries = append(summaries, summary)
			continue
		}

		page, next := e.ProcessPage(source, ctx)
		ctx = next
		summary.Context = page.Context
		summary.Discarded = page.Discarded

		if err := WritePage(summary.CSV, page); err != nil {
			summary.Err = err
			logger.Error("Erreur lors de l'écriture du CSV", "fichier", filepath.Base(summary.CSV), "erreur", err)
			summaries = append(summaries, summary)
			continue
		}

		summary.Rows = len(page.Rows)
		logger.Info("CSV extrait", "fichier", filepath.Base(summary.CSV), "lignes", summary.Rows, "ignorées", summary.Discarded)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// WritePage writes the CSV file of one page.
func WritePage(path string, page Page) error {
	data := strings.Join(page.Lines(), "\n") + "\n"
	if err := fsutil.WriteFileAtomic(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write page CSV %s: %w", path, err)
	}
	return nil
}

func (e *Extractor) filter() RowFilter {
	if e.Filter == nil {
		return DefaultFilter()
	}
	return e.Filter
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// splitLines splits markdown into lines, dropping carriage returns.
func splitLines(source []byte) []string {
	lines := strings.Split(string(source), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
