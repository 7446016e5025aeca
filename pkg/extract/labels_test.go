package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gardar/cartelec/pkg/roster"
)

func TestParseLabels(t *testing.T) {
	t.Run("matches labels case-insensitively anywhere in the line", func(t *testing.T) {
		lines := []string{
			"# CARTE ELECTORALE",
			"**RÉGION** : Dakar",
			"Département: Pikine ",
			"Nom de la commune: Guinaw Rail",
		}

		values := ParseLabels(lines, []string{"Région", "Département", "Commune"}, nil)

		assert.Equal(t, map[string]string{
			"Région":      "Dakar",
			"Département": "Pikine",
			"Commune":     "Guinaw Rail",
		}, values)
	})

	t.Run("only the first matching line is consulted", func(t *testing.T) {
		lines := []string{"Région : Thiès", "Région : Louga"}

		values := ParseLabels(lines, []string{"Région"}, nil)

		assert.Equal(t, "Thiès", values["Région"])
	})

	t.Run("value is everything after the first colon", func(t *testing.T) {
		values := ParseLabels([]string{"Commune : Dakar : Plateau"}, []string{"Commune"}, nil)

		assert.Equal(t, "Dakar : Plateau", values["Commune"])
	})

	t.Run("line without colon yields an empty value", func(t *testing.T) {
		values := ParseLabels([]string{"Liste des communes"}, []string{"Commune"}, nil)

		value, ok := values["Commune"]
		assert.True(t, ok)
		assert.Empty(t, value)
	})

	t.Run("missing labels are absent", func(t *testing.T) {
		values := ParseLabels([]string{"| École A | 01 |"}, []string{"Région"}, nil)

		assert.Empty(t, values)
	})

	t.Run("decomposed accents still match", func(t *testing.T) {
		// "Re" followed by a combining acute accent.
		values := ParseLabels([]string{"Re\u0301gion : Kolda"}, []string{"Région"}, nil)

		assert.Equal(t, "Kolda", values["Région"])
	})

	t.Run("custom matcher", func(t *testing.T) {
		exact := func(line, label string) bool { return len(line) >= len(label) && line[:len(label)] == label }
		lines := []string{"Sous-Région : X", "Région : Matam"}

		values := ParseLabels(lines, []string{"Région"}, exact)

		assert.Equal(t, "Matam", values["Région"])
	})
}

func TestTracker_Next(t *testing.T) {
	tracker := Tracker{}
	nord := roster.PageContext{Region: "Nord", Department: "Dakar", Commune: "Plateau"}

	t.Run("header replaces the context", func(t *testing.T) {
		lines := []string{"Région : Nord", "Département : Dakar", "Commune : Plateau"}

		assert.Equal(t, nord, tracker.Next(roster.PageContext{}, lines))
	})

	t.Run("page without region inherits the context", func(t *testing.T) {
		lines := []string{"| École A | 01 | 350 | Urbain |", "Commune : Ignored"}

		assert.Equal(t, nord, tracker.Next(nord, lines))
	})

	t.Run("empty region value inherits the context", func(t *testing.T) {
		lines := []string{"Région :", "Département : Thiès"}

		assert.Equal(t, nord, tracker.Next(nord, lines))
	})

	t.Run("new region replaces all three fields together", func(t *testing.T) {
		lines := []string{"Région : Sud"}

		assert.Equal(t, roster.PageContext{Region: "Sud"}, tracker.Next(nord, lines))
	})

	t.Run("custom labels", func(t *testing.T) {
		custom := Tracker{Labels: Labels{Region: "Province", Department: "District", Commune: "Ville"}}
		lines := []string{"Province : Est", "District : Bakel", "Ville : Kidira"}

		assert.Equal(t,
			roster.PageContext{Region: "Est", Department: "Bakel", Commune: "Kidira"},
			custom.Next(nord, lines))
	})
}
