package extract

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Table is a table found in the OCR markdown, as rows of cells.
type Table [][]Cell

var mdParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// Tables returns every table of a markdown document in document order.
//
// Both GFM pipe tables and raw HTML <table> blocks are recognised, since the
// layout service emits either depending on its version. The header row of a
// pipe table is returned as the first row. A cell holds the first literal
// text found inside it, trimmed; a cell without literal text is null.
func Tables(source []byte) []Table {
	doc := mdParser.Parser().Parse(text.NewReader(source))

	var tables []Table
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *east.Table:
			tables = append(tables, pipeTable(node, source))
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			// A blank line ends an HTML block, so one <table> can span
			// several sibling blocks. The first of a run parses them all.
			if _, ok := node.PreviousSibling().(*ast.HTMLBlock); ok {
				return ast.WalkSkipChildren, nil
			}
			var raw []byte
			for b := ast.Node(node); b != nil; b = b.NextSibling() {
				block, ok := b.(*ast.HTMLBlock)
				if !ok {
					break
				}
				raw = append(raw, rawHTML(block, source)...)
			}
			tables = append(tables, htmlTables(raw)...)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return tables
}

// pipeTable converts a goldmark table node. The header holds its cells
// directly while body rows wrap theirs in a TableRow.
func pipeTable(node *east.Table, source []byte) Table {
	var table Table
	for row := node.FirstChild(); row != nil; row = row.NextSibling() {
		switch row.(type) {
		case *east.TableHeader, *east.TableRow:
		default:
			continue
		}
		var cells []Cell
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if _, ok := cell.(*east.TableCell); !ok {
				continue
			}
			cells = append(cells, firstLiteral(cell, source))
		}
		table = append(table, cells)
	}
	return table
}

// firstLiteral returns the first literal text under n, with character
// references decoded.
func firstLiteral(n ast.Node, source []byte) Cell {
	result := NullCell()
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			result = TextCell(strings.TrimSpace(html.UnescapeString(string(t.Segment.Value(source)))))
			return ast.WalkStop, nil
		case *ast.String:
			result = TextCell(strings.TrimSpace(string(t.Value)))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return result
}

// rawHTML reassembles the source lines of an HTML block.
func rawHTML(node *ast.HTMLBlock, source []byte) []byte {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	if node.HasClosure() {
		buf.Write(node.ClosureLine.Value(source))
	}
	return buf.Bytes()
}

// htmlTables extracts the <table> elements of an HTML fragment.
func htmlTables(raw []byte) []Table {
	if !bytes.Contains(bytes.ToLower(raw), []byte("<table")) {
		return nil
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil
	}

	var tables []Table
	var findTables func(*html.Node)
	findTables = func(n *html.Node) {
		if isElement(n, "table") {
			tables = append(tables, htmlTable(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTables(c)
		}
	}
	findTables(doc)
	return tables
}

func htmlTable(tableNode *html.Node) Table {
	var table Table
	var findRows func(*html.Node)
	findRows = func(n *html.Node) {
		if isElement(n, "tr") {
			var cells []Cell
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if isElement(c, "td") || isElement(c, "th") {
					cells = append(cells, firstHTMLText(c))
				}
			}
			table = append(table, cells)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			// Rows of a nested table are not rows of this one.
			if isElement(c, "table") {
				continue
			}
			findRows(c)
		}
	}
	findRows(tableNode)
	return table
}

// firstHTMLText returns the first non-blank text node under n.
func firstHTMLText(n *html.Node) Cell {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			return TextCell(s)
		}
		return NullCell()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if cell := firstHTMLText(c); cell.Valid {
			return cell
		}
	}
	return NullCell()
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}
