// Package consolidate merges the page CSV files of a roster into one dataset.
//
// Every page file is validated against the fixed roster schema. A file that
// cannot be parsed, or that parses to zero records, is reported as a problem
// file and contributes nothing; it never stops the run. The accepted records
// are written, in file name order, to a single consolidated file placed in
// the parent of the page directory.
package consolidate

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gardar/cartelec/pkg/fsutil"
	"github.com/gardar/cartelec/pkg/roster"
)

// ProblemKind classifies a problem file.
type ProblemKind int

const (
	// ProblemEmpty is a valid file without any data row.
	ProblemEmpty ProblemKind = iota + 1
	// ProblemMalformed is a file that failed to parse or validate.
	ProblemMalformed
)

func (k ProblemKind) String() string {
	switch k {
	case ProblemEmpty:
		return "Fichier vide"
	case ProblemMalformed:
		return "Format ou données incorrects"
	default:
		return "inconnu"
	}
}

// Problem is one anomalous page file.
type Problem struct {
	File string      // Base name of the file
	Kind ProblemKind // Empty or malformed
	Err  error       // Parse error for malformed files
}

// Report summarises a consolidation run.
type Report struct {
	ProblemFileCount int             // Number of problem files
	TotalRecords     int             // Records written to the consolidated file
	TotalElectors    int             // Sum of elector counts, absent counts as 0
	ProblemFiles     []string        // Problem file names, in processing order
	Problems         []Problem       // Details for each problem file
	Records          []roster.Record // Accepted records, in processing order
	Output           string          // Path of the consolidated file
}

// Config holds the consolidation options.
type Config struct {
	Pattern    string // Page files to read (default "*.csv")
	OutputName string // Consolidated file name (default roster.ConsolidatedFileName)
}

// DefaultConfig returns the roster defaults.
func DefaultConfig() Config {
	return Config{
		Pattern:    "*" + roster.CSVExt,
		OutputName: roster.ConsolidatedFileName,
	}
}

// Consolidator merges page files.
type Consolidator struct {
	config Config
	logger *slog.Logger
}

// New returns a Consolidator. A nil logger uses slog.Default().
func New(config Config, logger *slog.Logger) *Consolidator {
	defaults := DefaultConfig()
	if config.Pattern == "" {
		config.Pattern = defaults.Pattern
	}
	if config.OutputName == "" {
		config.OutputName = defaults.OutputName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{config: config, logger: logger}
}

// Run consolidates every page file of dir and writes the result into the
// parent of dir. It only fails when the page files cannot be listed or the
// consolidated file cannot be written; in that case no file is produced.
func (c *Consolidator) Run(dir string) (Report, error) {
	files, err := fsutil.Glob(dir, c.config.Pattern)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list page files: %w", err)
	}

	report := c.Merge(files)

	output := filepath.Join(filepath.Dir(filepath.Clean(dir)), c.config.OutputName)
	err = fsutil.WriteAtomic(output, 0o644, func(w io.Writer) error {
		return WriteRecords(w, report.Records)
	})
	if err != nil {
		return report, fmt.Errorf("failed to write consolidated file %s: %w", output, err)
	}
	report.Output = output
	return report, nil
}

// Merge reads the given page files in order and aggregates their records.
func (c *Consolidator) Merge(files []string) Report {
	report := Report{
		ProblemFiles: []string{},
		Problems:     []Problem{},
		Records:      []roster.Record{},
	}

	for _, file := range files {
		name := filepath.Base(file)

		records, err := readFile(file)
		if err != nil {
			c.addProblem(&report, Problem{File: name, Kind: ProblemMalformed, Err: err})
			continue
		}
		if len(records) == 0 {
			c.addProblem(&report, Problem{File: name, Kind: ProblemEmpty})
			continue
		}
		report.Records = append(report.Records, records...)
	}

	report.TotalRecords = len(report.Records)
	for _, rec := range report.Records {
		report.TotalElectors += rec.ElectorsOrZero()
	}
	return report
}

func (c *Consolidator) addProblem(report *Report, p Problem) {
	if p.Err != nil {
		c.logger.Warn(p.File+": "+p.Kind.String(), "fichier", p.File, "erreur", p.Err)
	} else {
		c.logger.Warn(p.File+": "+p.Kind.String(), "fichier", p.File)
	}
	report.Problems = append(report.Problems, p)
	report.ProblemFiles = append(report.ProblemFiles, p.File)
	report.ProblemFileCount = len(report.ProblemFiles)
}

func readFile(path string) ([]roster.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f)
}
