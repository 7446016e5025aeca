package extract

import "strings"

// Cell is one table cell. Valid is false when the cell carries no literal text.
type Cell struct {
	Text  string
	Valid bool
}

// TextCell returns a valid cell holding s.
func TextCell(s string) Cell {
	return Cell{Text: s, Valid: true}
}

// NullCell returns a cell without literal text.
func NullCell() Cell {
	return Cell{}
}

// RowFilter decides whether a table row is a data row.
type RowFilter interface {
	Accept(row []Cell) bool
}

// RowFilterFunc adapts a function to RowFilter.
type RowFilterFunc func(row []Cell) bool

// Accept calls f(row).
func (f RowFilterFunc) Accept(row []Cell) bool {
	return f(row)
}

// CellPredicate reports whether a cell marks its row as noise.
type CellPredicate func(c Cell) bool

// NoiseFilter rejects a row as soon as one of its cells matches any predicate.
type NoiseFilter struct {
	Predicates []CellPredicate
}

// DefaultFilter rejects rows with an empty cell and header rows repeated
// inside the tables ("Lieu de vote").
func DefaultFilter() NoiseFilter {
	return NoiseFilter{
		Predicates: []CellPredicate{
			MissingText,
			ContainsText("Lieu de vote"),
		},
	}
}

// Accept implements RowFilter.
func (f NoiseFilter) Accept(row []Cell) bool {
	for _, c := range row {
		for _, p := range f.Predicates {
			if p(c) {
				return false
			}
		}
	}
	return true
}

// MissingText matches cells with no literal text.
func MissingText(c Cell) bool {
	return !c.Valid
}

// ContainsText matches cells whose text contains s, ignoring case.
func ContainsText(s string) CellPredicate {
	needle := fold(s)
	return func(c Cell) bool {
		return c.Valid && strings.Contains(fold(c.Text), needle)
	}
}
