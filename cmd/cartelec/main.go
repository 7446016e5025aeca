// cartelec turns a scanned electoral roster PDF into one consolidated CSV file.
//
// The roster lists every polling bureau with its polling place, elector count
// and location type, grouped under "Région / Département / Commune" page
// headers. The tool runs four stages, each of which can be resumed:
//
//  1. split the PDF into one file per page (données/0001.pdf, ...)
//  2. OCR every page to layout markdown (0001.pdf.md)
//  3. extract the table rows of every page to CSV (0001.pdf.md.csv)
//  4. consolidate the page CSV files next to the source PDF
//
// Files left by a previous run are reused: delete a page's .pdf or .md file
// to process it again.
//
// Usage:
//
//	cartelec [-config cartelec.yml] document.pdf
//
// Flags:
//
//	-config string  Path to an optional YAML configuration file
//
// Configuration:
//
// The OCR backend is selected with CARTELEC_OCR_BACKEND (azure or gdocai).
// Azure Document Intelligence reads AZURE_DOC_INTEL_ENDPOINT and
// AZURE_DOC_INTEL_KEY; Google Document AI reads GDOCAI_PROJECT_ID,
// GDOCAI_LOCATION, GDOCAI_PROCESSOR_ID and GOOGLE_APPLICATION_CREDENTIALS.
// Variables can also be set in a .env file in the working directory.
//
// Example:
//
//	export AZURE_DOC_INTEL_ENDPOINT=https://name.cognitiveservices.azure.com
//	export AZURE_DOC_INTEL_KEY=...
//	cartelec carte_electorale.pdf
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/gardar/cartelec/pkg/azdocintel"
	"github.com/gardar/cartelec/pkg/config"
	"github.com/gardar/cartelec/pkg/consolidate"
	"github.com/gardar/cartelec/pkg/extract"
	"github.com/gardar/cartelec/pkg/gdocai"
	"github.com/gardar/cartelec/pkg/ocr"
	"github.com/gardar/cartelec/pkg/pagesplit"
	"github.com/gardar/cartelec/pkg/roster"
)

func main() {
	configPath := flag.String("config", "", "Path to an optional config YAML file")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("Veuillez fournir le chemin du fichier PDF comme argument.")
		return
	}
	pdfFile := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outputDir := filepath.Join(filepath.Dir(pdfFile), roster.OutputDirName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// 1. Pages
	if _, err := pagesplit.Split(pdfFile, outputDir, cfg.Splitter(logger)); err != nil {
		logger.Error("Erreur lors de la lecture du PDF", "fichier", pdfFile, "erreur", err)
	}

	// 2. OCR
	engine, closeEngine, err := newEngine(ctx, cfg)
	if err != nil {
		logger.Error("OCR désactivé", "erreur", err)
	} else {
		runner := ocr.NewRunner(engine, cfg.Runner(), logger)
		if _, err := runner.Run(ctx, outputDir); err != nil {
			logger.Error("Erreur lors du traitement OCR", "erreur", err)
		}
		closeEngine()
	}

	// 3. Extraction
	if _, err := extract.NewExtractor(logger).ExtractDir(outputDir); err != nil {
		logger.Error("Erreur lors de l'extraction", "erreur", err)
	}

	// 4. Consolidation
	report, err := consolidate.New(consolidate.DefaultConfig(), logger).Run(outputDir)
	if err != nil {
		log.Fatalf("Failed to consolidate: %v", err)
	}

	fmt.Printf("Nombres de fichiers potentiels à problème : %d\n", report.ProblemFileCount)
	fmt.Printf("Total bureaux de vote : %d\n", report.TotalRecords)
	fmt.Printf("Total électeurs : %d\n", report.TotalElectors)
}

// newEngine builds the configured OCR engine and the function releasing it.
func newEngine(ctx context.Context, cfg *config.Config) (ocr.Engine, func(), error) {
	switch cfg.OCR.Backend {
	case config.BackendAzure:
		client, err := azdocintel.NewClient(cfg.AzureClient(), nil)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	case config.BackendDocumentAI:
		gcfg := cfg.GDocAI()
		if gcfg.DumpDir != "" {
			if err := os.MkdirAll(gcfg.DumpDir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create dump directory: %w", err)
			}
		}
		engine, err := gdocai.NewEngine(ctx, gcfg)
		if err != nil {
			return nil, nil, err
		}
		return engine, func() {
			if err := engine.Close(); err != nil {
				slog.Warn("Erreur lors de la fermeture du client Document AI", "erreur", err)
			}
		}, nil
	}
	return nil, nil, errors.New("unknown OCR backend " + cfg.OCR.Backend)
}
