package extract

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/gardar/cartelec/pkg/roster"
)

// Labels are the header labels announcing the hierarchical context of a page.
type Labels struct {
	Region     string
	Department string
	Commune    string
}

// DefaultLabels returns the labels printed on the roster headers.
func DefaultLabels() Labels {
	return Labels{
		Region:     "Région",
		Department: "Département",
		Commune:    "Commune",
	}
}

// Matcher reports whether a text line matches a label.
type Matcher func(line, label string) bool

// ContainsFold is the default Matcher: a case-insensitive substring search on
// NFC-normalised text, so that "RÉGION" and a decomposed "Région" both
// match "Région".
func ContainsFold(line, label string) bool {
	return strings.Contains(fold(line), fold(label))
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// ParseLabels scans lines for each label and returns, for every label found,
// the value of its first matching line: the text after the first colon,
// trimmed. A matching line without a colon yields an empty value. Labels with
// no matching line are absent from the result.
func ParseLabels(lines []string, labels []string, match Matcher) map[string]string {
	if match == nil {
		match = ContainsFold
	}

	values := make(map[string]string, len(labels))
	for _, label := range labels {
		for _, line := range lines {
			if !match(line, label) {
				continue
			}
			value := ""
			if _, after, ok := strings.Cut(line, ":"); ok {
				value = strings.TrimSpace(after)
			}
			values[label] = value
			break
		}
	}
	return values
}

// Tracker carries the region/department/commune context from page to page.
// The zero value uses DefaultLabels and ContainsFold.
type Tracker struct {
	Labels Labels
	Match  Matcher
}

// Next returns the context in effect for a page given its text lines and the
// context inherited from the previous page.
//
// When the page has no region line, or the region value is empty, prev is
// returned unchanged. Otherwise the three fields are replaced together; a
// missing department or commune line yields an empty field.
func (t Tracker) Next(prev roster.PageContext, lines []string) roster.PageContext {
	labels := t.Labels
	if labels == (Labels{}) {
		labels = DefaultLabels()
	}

	values := ParseLabels(lines, []string{labels.Region, labels.Department, labels.Commune}, t.Match)
	region := values[labels.Region]
	if region == "" {
		return prev
	}

	return roster.PageContext{
		Region:     region,
		Department: values[labels.Department],
		Commune:    values[labels.Commune],
	}
}
