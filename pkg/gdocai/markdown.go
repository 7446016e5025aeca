package gdocai

import (
	"sort"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// block is a rendered markdown block and its position in the document text.
type block struct {
	start int
	text  string
}

// MarkdownFromProto renders a Document AI response as layout markdown.
//
// Lines that fall inside a detected table are rendered only as part of that
// table. Tables become pipe tables: header rows first, and when the
// processor found no header row the first body row takes its place so that
// no row is lost. Empty cells stay empty.
func MarkdownFromProto(doc *documentaipb.Document) string {
	if doc == nil {
		return ""
	}

	var blocks []block
	for _, page := range doc.Pages {
		var tableSpans []span
		for _, table := range page.Tables {
			text := renderTable(table, doc.Text)
			if text == "" {
				continue
			}
			s, ok := layoutSpan(table.Layout)
			if ok {
				tableSpans = append(tableSpans, s)
			}
			blocks = append(blocks, block{start: s.start, text: text})
		}

		for _, line := range page.Lines {
			s, ok := layoutSpan(line.Layout)
			if !ok || insideAny(s, tableSpans) {
				continue
			}
			text := singleLine(textFromLayout(line.Layout, doc.Text))
			if text == "" {
				continue
			}
			blocks = append(blocks, block{start: s.start, text: text})
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].start < blocks[j].start
	})

	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.text
	}
	if len(texts) == 0 {
		return ""
	}
	return strings.Join(texts, "\n\n") + "\n"
}

func insideAny(s span, spans []span) bool {
	for _, t := range spans {
		if t.contains(s) {
			return true
		}
	}
	return false
}

// renderTable renders one Document AI table as a pipe table.
func renderTable(table *documentaipb.Document_Page_Table, fullText string) string {
	var rows [][]string
	for _, row := range append(append([]*documentaipb.Document_Page_Table_TableRow{}, table.HeaderRows...), table.BodyRows...) {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, tableCell(textFromLayout(cell.Layout, fullText)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			b.WriteString(" ")
			if i < len(cells) {
				b.WriteString(cells[i])
			}
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// tableCell makes cell text safe inside a pipe table.
func tableCell(s string) string {
	return strings.ReplaceAll(singleLine(s), "|", `\|`)
}
