// Package pagesplit exports each page of a PDF document into its own file.
//
// Pages are imported one at a time with gofpdi and written as single-page
// PDFs named after their 1-based page number (0001.pdf, 0002.pdf, ...).
// A page whose file already exists is skipped without touching the source,
// so that running the splitter again on the same output directory does no
// redundant work.
//
// Main Functions:
//
// - Split: Exports the pages of a source document into a directory
// - ExportPage: Builds the single-page PDF for one page number
// - PageCount: Reads the number of pages of a document
package pagesplit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/gardar/cartelec/pkg/fsutil"
)

// ErrPageOutOfRange is returned when a page number exceeds the document.
var ErrPageOutOfRange = errors.New("page out of range")

// Result reports what a Split run did.
type Result struct {
	Created []string      // Page files written by this run
	Skipped []string      // Page files that already existed
	Failed  map[int]error // Export error per page number
}

// Split exports the pages of source into outDir, up to config.MaxPages pages.
// Page failures are logged and recorded in the result; the returned error is
// only set when the source cannot be read while some page still has to be
// exported.
func Split(source, outDir string, config Config) (Result, error) {
	logger := getLogger(config)
	result := Result{Failed: make(map[int]error)}

	var data []byte
	readSource := func() error {
		if data != nil {
			return nil
		}
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read source PDF: %w", err)
		}
		return nil
	}

	maxPages := config.MaxPages
	if maxPages <= 0 {
		if err := readSource(); err != nil {
			return result, err
		}
		n, err := PageCount(data)
		if err != nil {
			return result, fmt.Errorf("failed to count pages: %w", err)
		}
		maxPages = n
	}

	for page := 1; page <= maxPages; page++ {
		path := filepath.Join(outDir, fmt.Sprintf(config.NameFormat, page))
		if fsutil.Exists(path) {
			result.Skipped = append(result.Skipped, path)
			continue
		}

		if err := readSource(); err != nil {
			return result, err
		}

		pageData, err := ExportPage(data, page, config)
		if err == nil {
			err = fsutil.WriteFileAtomic(path, pageData, 0o644)
		}
		if err != nil {
			result.Failed[page] = err
			logger.Error(fmt.Sprintf("Erreur lors de l'exportation de la page %d: %v", page, err), "page", page)
			continue
		}

		result.Created = append(result.Created, path)
		logger.Info("Page exportée", "page", page, "fichier", filepath.Base(path))
	}
	return result, nil
}

// ExportPage returns a PDF holding only the given 1-based page of data.
// The whole page is produced in memory before anything is returned.
func ExportPage(data []byte, page int, config Config) (out []byte, err error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}

	// gofpdi reports parse errors by panicking
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("failed to import page %d: %v", page, r)
		}
	}()

	box := config.Box
	if box == "" {
		box = DefaultConfig().Box
	}

	count, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if page > count {
		return nil, fmt.Errorf("%w: %d (document has %d pages)", ErrPageOutOfRange, page, count)
	}

	pdf := fpdf.New("P", "pt", "", "")
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(data))

	tpl := importer.ImportPageFromStream(pdf, &rs, page, box)
	w, h := pageSize(importer, page, box)

	pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
	importer.UseImportedTemplate(pdf, tpl, 0, 0, w, h)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}

// PageCount returns the number of pages of a PDF document.
func PageCount(data []byte) (count int, err error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("input PDF data is empty")
	}

	defer func() {
		if r := recover(); r != nil {
			count, err = 0, fmt.Errorf("failed to read PDF: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "", "")
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(data))
	importer.ImportPageFromStream(pdf, &rs, 1, DefaultConfig().Box)

	return len(importer.GetPageSizes()), nil
}

// pageSize returns the width and height of an imported page, in points,
// falling back to A4 when the box is not reported.
func pageSize(importer *gofpdi.Importer, page int, box string) (float64, float64) {
	sizes := importer.GetPageSizes()
	if boxes, ok := sizes[page]; ok {
		if size, ok := boxes[box]; ok && size["w"] > 0 && size["h"] > 0 {
			return size["w"], size["h"]
		}
	}
	return 595.28, 841.89
}
