package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// textFromLayout extracts text from a layout's text anchor segments
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	result := strings.Builder{}
	totalRunes := len(runes)

	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > totalRunes {
			end = totalRunes
		}
		if start > end {
			start = end
		}
		result.WriteString(string(runes[start:end]))
	}
	return result.String()
}

// span is the range of document text covered by a layout.
type span struct {
	start, end int
}

// layoutSpan returns the smallest range covering every text segment of a
// layout, and false when the layout has no text.
func layoutSpan(layout *documentaipb.Document_Page_Layout) (span, bool) {
	if layout == nil || layout.TextAnchor == nil || len(layout.TextAnchor.TextSegments) == 0 {
		return span{}, false
	}
	s := span{start: -1}
	for _, seg := range layout.TextAnchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if s.start < 0 || start < s.start {
			s.start = start
		}
		if end > s.end {
			s.end = end
		}
	}
	return s, true
}

func (s span) contains(other span) bool {
	return other.start >= s.start && other.start < s.end
}

// singleLine collapses all whitespace, including line breaks, to single spaces.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
