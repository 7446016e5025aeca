// Package roster defines the records extracted from a scanned electoral roster
// and the fixed file layout shared by every stage of the pipeline.
//
// A roster is a multi-page document listing polling places grouped under a
// hierarchical header (region, department, commune). Each page is split into
// its own PDF, converted to markdown by an OCR service, reduced to a page CSV
// and finally merged into one consolidated dataset.
//
// File layout inside the output directory:
//
//	0001.pdf          one page of the source document
//	0001.pdf.md       OCR markdown for that page
//	0001.pdf.md.csv   rows extracted from the markdown
//
// The consolidated dataset is written next to the output directory.
package roster

import (
	"fmt"
	"strings"
)

const (
	// OutputDirName is the directory created next to the source document.
	OutputDirName = "données"

	// ConsolidatedFileName is the name of the merged dataset.
	ConsolidatedFileName = "CARTE_ELECTORALE_ELECTION_PR_DU_25FEV2024.csv"

	// MarkdownExt is appended to a page PDF path to name its OCR output.
	MarkdownExt = ".md"

	// CSVExt is appended to a markdown path to name its extracted rows.
	CSVExt = ".csv"
)

// Columns is the fixed schema of both page and consolidated CSV files.
var Columns = []string{
	"Region",
	"Departement",
	"Commune",
	"Lieu de vote",
	"Bureau",
	"Electeurs",
	"Implantation",
}

// Header is the header line written at the top of every CSV file.
var Header = strings.Join(Columns, ",")

// Record is one polling bureau.
type Record struct {
	Region       string
	Department   string
	Commune      string
	PollingPlace string
	Bureau       string
	Electors     *int // nil when the cell was blank
	LocationType string
}

// ElectorsOrZero returns the elector count, or 0 when it is unknown.
func (r Record) ElectorsOrZero() int {
	if r.Electors == nil {
		return 0
	}
	return *r.Electors
}

// Electors is a convenience constructor for Record.Electors.
func Electors(n int) *int {
	return &n
}

// PageContext is the region/department/commune header in effect for a page.
// It is a value type: a page's processing receives the inherited context and
// returns the context for the next page.
type PageContext struct {
	Region     string
	Department string
	Commune    string
}

// IsZero reports whether no header has been seen yet.
func (c PageContext) IsZero() bool {
	return c == PageContext{}
}

// Fields returns the context as the three leading CSV cells.
func (c PageContext) Fields() []string {
	return []string{c.Region, c.Department, c.Commune}
}

// PageFileName returns the 1-indexed, zero padded page file name (0001.pdf).
func PageFileName(page int) string {
	return fmt.Sprintf("%04d.pdf", page)
}

// MarkdownPath returns the OCR output path for a page PDF.
func MarkdownPath(pdfPath string) string {
	return pdfPath + MarkdownExt
}

// CSVPath returns the extracted rows path for a markdown file.
func CSVPath(markdownPath string) string {
	return markdownPath + CSVExt
}
