package consolidate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/gardar/cartelec/pkg/roster"
)

var (
	// ErrHeaderMismatch is returned when the header differs from roster.Columns.
	ErrHeaderMismatch = errors.New("header does not match the roster schema")

	// ErrColumnCount is returned for a row with the wrong number of fields.
	ErrColumnCount = errors.New("wrong number of fields")

	// ErrElectorCount is returned for an elector count that is not a
	// non-negative integer.
	ErrElectorCount = errors.New("invalid elector count")
)

// csvRow is the raw CSV shape of a roster.Record. gocsv maps columns by
// header name.
type csvRow struct {
	Region       string `csv:"Region"`
	Department   string `csv:"Departement"`
	Commune      string `csv:"Commune"`
	PollingPlace string `csv:"Lieu de vote"`
	Bureau       string `csv:"Bureau"`
	Electors     string `csv:"Electeurs"`
	LocationType string `csv:"Implantation"`
}

// record validates and normalises a raw row. line is used in errors.
func (r csvRow) record(line int) (roster.Record, error) {
	rec := roster.Record{
		Region:       strings.TrimSpace(r.Region),
		Department:   strings.TrimSpace(r.Department),
		Commune:      strings.TrimSpace(r.Commune),
		PollingPlace: strings.TrimSpace(r.PollingPlace),
		Bureau:       strings.TrimSpace(r.Bureau),
		LocationType: strings.TrimSpace(r.LocationType),
	}

	if raw := strings.TrimSpace(r.Electors); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return roster.Record{}, fmt.Errorf("line %d: %w: %q", line, ErrElectorCount, raw)
		}
		rec.Electors = roster.Electors(n)
	}
	return rec, nil
}

func rowFromRecord(rec roster.Record) csvRow {
	row := csvRow{
		Region:       rec.Region,
		Department:   rec.Department,
		Commune:      rec.Commune,
		PollingPlace: rec.PollingPlace,
		Bureau:       rec.Bureau,
		LocationType: rec.LocationType,
	}
	if rec.Electors != nil {
		row.Electors = strconv.Itoa(*rec.Electors)
	}
	return row
}

// schemaReader enforces the roster schema on top of encoding/csv before the
// rows reach gocsv: exact header, fixed field count, blank rows skipped.
// It implements gocsv.CSVReader.
type schemaReader struct {
	r       *csv.Reader
	header  bool
	skipped int
}

func newSchemaReader(in io.Reader) *schemaReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1 // checked after blank rows are dropped
	return &schemaReader{r: r}
}

func (s *schemaReader) Read() ([]string, error) {
	for {
		fields, err := s.r.Read()
		if err != nil {
			return nil, err
		}
		line, _ := s.r.FieldPos(0)

		if !s.header {
			s.header = true
			if len(fields) > 0 {
				fields[0] = strings.TrimPrefix(fields[0], "\ufeff")
			}
			if !equalFields(fields, roster.Columns) {
				return nil, fmt.Errorf("line %d: %w: %q", line, ErrHeaderMismatch, strings.Join(fields, ","))
			}
			return fields, nil
		}

		if blank(fields) {
			s.skipped++
			continue
		}
		if len(fields) != len(roster.Columns) {
			return nil, fmt.Errorf("line %d: %w: got %d, want %d", line, ErrColumnCount, len(fields), len(roster.Columns))
		}
		return fields, nil
	}
}

func (s *schemaReader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		fields, err := s.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, fields)
	}
}

func equalFields(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ReadRecords parses a roster CSV. The header must match roster.Columns
// exactly, every non-blank row must have all seven fields, and the elector
// count must be blank or a non-negative integer. Rows whose fields are all
// blank are skipped. An empty input yields no records and no error.
func ReadRecords(in io.Reader) ([]roster.Record, error) {
	reader := newSchemaReader(in)

	// An input without any line has no header to check.
	first, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []csvRow
	if err := gocsv.UnmarshalCSV(&replayReader{first: first, schemaReader: reader}, &rows); err != nil {
		return nil, err
	}

	records := make([]roster.Record, 0, len(rows))
	for i, row := range rows {
		// Blank rows were skipped, so the data row index is the best position.
		rec, err := row.record(i + 2)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// replayReader hands the already validated header back to gocsv.
type replayReader struct {
	first []string
	*schemaReader
}

func (r *replayReader) Read() ([]string, error) {
	if r.first != nil {
		first := r.first
		r.first = nil
		return first, nil
	}
	return r.schemaReader.Read()
}

func (r *replayReader) ReadAll() ([][]string, error) {
	var rows [][]string
	if r.first != nil {
		rows = append(rows, r.first)
		r.first = nil
	}
	rest, err := r.schemaReader.ReadAll()
	if err != nil {
		return nil, err
	}
	return append(rows, rest...), nil
}

// WriteRecords writes records with the roster header, using standard CSV
// quoting. An absent elector count is written as an empty field.
func WriteRecords(out io.Writer, records []roster.Record) error {
	rows := make([]csvRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rowFromRecord(rec))
	}
	if err := gocsv.Marshal(&rows, out); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
