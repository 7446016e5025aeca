package consolidate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardar/cartelec/pkg/roster"
)

const header = "Region,Departement,Commune,Lieu de vote,Bureau,Electeurs,Implantation\n"

func TestReadRecords(t *testing.T) {
	t.Run("parses and trims records", func(t *testing.T) {
		in := header +
			"Nord,Dakar,Plateau,École A,01,350,Urbain\n" +
			" Nord , Dakar ,Plateau, École A ,02, 12 ,Urbain\n"

		records, err := ReadRecords(strings.NewReader(in))

		require.NoError(t, err)
		assert.Equal(t, []roster.Record{
			{Region: "Nord", Department: "Dakar", Commune: "Plateau", PollingPlace: "École A", Bureau: "01", Electors: roster.Electors(350), LocationType: "Urbain"},
			{Region: "Nord", Department: "Dakar", Commune: "Plateau", PollingPlace: "École A", Bureau: "02", Electors: roster.Electors(12), LocationType: "Urbain"},
		}, records)
	})

	t.Run("blank elector count is absent", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader(header + "Nord,Dakar,Plateau,École A,01,,Urbain\n"))

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Nil(t, records[0].Electors)
		assert.Equal(t, 0, records[0].ElectorsOrZero())
	})

	t.Run("skips blank rows", func(t *testing.T) {
		in := header + ",,,,,,\n   \n\nNord,Dakar,Plateau,École A,01,350,Urbain\n , , , , , , \n"

		records, err := ReadRecords(strings.NewReader(in))

		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("header only yields no records", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader(header))

		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("empty input yields no records", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader(""))

		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("accepts a byte order mark", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader("\ufeff" + header + "Nord,Dakar,Plateau,École A,01,350,Urbain\n"))

		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	errorCases := []struct {
		name string
		in   string
		want error
	}{
		{"wrong header", "Region,Commune\nNord,Plateau\n", ErrHeaderMismatch},
		{"renamed column", strings.Replace(header, "Electeurs", "Inscrits", 1) + "Nord,Dakar,Plateau,École A,01,350,Urbain\n", ErrHeaderMismatch},
		{"too many fields", header + "Nord,Dakar,Plateau,École A,01,350,Urbain,extra\n", ErrColumnCount},
		{"too few fields", header + "Nord,Dakar,École A,01,350\n", ErrColumnCount},
		{"unparseable elector count", header + "Nord,Dakar,Plateau,École A,01,trois cents,Urbain\n", ErrElectorCount},
		{"negative elector count", header + "Nord,Dakar,Plateau,École A,01,-4,Urbain\n", ErrElectorCount},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRecords(strings.NewReader(tt.in))

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("syntax error", func(t *testing.T) {
		_, err := ReadRecords(strings.NewReader(header + "Nord,\"Dakar,Plateau,École A,01,350,Urbain\n"))

		assert.Error(t, err)
	})
}

func TestWriteRecords_RoundTrip(t *testing.T) {
	records := []roster.Record{
		{Region: "Nord", Department: "Dakar", Commune: "Plateau", PollingPlace: "École A", Bureau: "01", Electors: roster.Electors(350), LocationType: "Urbain"},
		{Region: "Nord", Department: "Dakar", Commune: "Plateau", PollingPlace: "École A, annexe", Bureau: "02", LocationType: "Urbain"},
		{Region: "Sud", PollingPlace: "Case \"foyer\"", Bureau: "01", Electors: roster.Electors(0), LocationType: "Rural"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))
	assert.True(t, strings.HasPrefix(buf.String(), header))

	back, err := ReadRecords(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, back)
}

func TestWriteRecords_Empty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteRecords(&buf, nil))

	assert.Equal(t, header, buf.String())
}
