// Package ocr runs a layout-analysis OCR engine over the page files of a
// roster and stores the markdown it returns next to each page.
//
// Pages are independent: they are sent to the engine through a bounded
// worker pool, a failure on one page is logged and never affects the
// others, and a page that already has its markdown file is skipped so that
// a run can be resumed after partial failures.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gardar/cartelec/pkg/fsutil"
	"github.com/gardar/cartelec/pkg/roster"
)

// Engine converts a single-page PDF into layout markdown: free text lines
// and tables.
type Engine interface {
	Markdown(ctx context.Context, pdf []byte) (string, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, pdf []byte) (string, error)

// Markdown calls f(ctx, pdf).
func (f EngineFunc) Markdown(ctx context.Context, pdf []byte) (string, error) {
	return f(ctx, pdf)
}

type pageFileKey struct{}

// WithPageFile returns a context carrying the base name of the page file an
// engine call is for.
func WithPageFile(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, pageFileKey{}, name)
}

// PageFile returns the page file name set by WithPageFile, or "".
func PageFile(ctx context.Context) string {
	name, _ := ctx.Value(pageFileKey{}).(string)
	return name
}

// Config holds the worker pool options
type Config struct {
	Workers           int     // Concurrent engine calls (0 = 2 × NumCPU)
	RequestsPerSecond float64 // Engine call rate limit (0 = unlimited)
	Pattern           string  // Page files to process
}

// DefaultConfig returns a config with sensible defaults. The engine is a
// remote service, so the pool is wider than the number of cores.
func DefaultConfig() Config {
	return Config{
		Workers:           2 * runtime.NumCPU(),
		RequestsPerSecond: 0,
		Pattern:           "*.pdf",
	}
}

// Result reports what a Run did.
type Result struct {
	Created []string         // Markdown files written
	Skipped []string         // Pages that already had a markdown file
	Failed  map[string]error // Engine or write error per page file
}

// Runner sends page files to an Engine.
type Runner struct {
	engine  Engine
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRunner returns a Runner. A nil logger uses slog.Default().
func NewRunner(engine Engine, config Config, logger *slog.Logger) *Runner {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Pattern == "" {
		config.Pattern = defaults.Pattern
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Runner{
		engine:  engine,
		config:  config,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Run processes every page file of dir. The returned error is only set when
// the directory cannot be listed; page failures are reported in the result.
// Run waits for every started page before returning.
func (r *Runner) Run(ctx context.Context, dir string) (Result, error) {
	files, err := fsutil.Glob(dir, r.config.Pattern)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list page files: %w", err)
	}

	result := Result{Failed: make(map[string]error)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.config.Workers)

	for _, file := range files {
		markdownPath := roster.MarkdownPath(file)
		if fsutil.Exists(markdownPath) {
			r.logger.Info(fmt.Sprintf("Ignoré : %s possède déjà un fichier markdown", filepath.Base(file)), "fichier", filepath.Base(file))
			result.Skipped = append(result.Skipped, file)
			continue
		}

		g.Go(func() error {
			err := r.processPage(ctx, file, markdownPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[file] = err
				r.logger.Error(fmt.Sprintf("Erreur lors du traitement OCR de %s: %v", filepath.Base(file), err), "fichier", filepath.Base(file))
				return nil
			}
			result.Created = append(result.Created, markdownPath)
			r.logger.Info(fmt.Sprintf("Créé : %s", filepath.Base(markdownPath)), "fichier", filepath.Base(markdownPath))
			return nil
		})
	}

	// Workers never return an error: failures stay local to their page.
	_ = g.Wait()
	return result, nil
}

func (r *Runner) processPage(ctx context.Context, pdfPath, markdownPath string) error {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	content, err := r.engine.Markdown(WithPageFile(ctx, filepath.Base(pdfPath)), data)
	if err != nil {
		return err
	}

	if err := fsutil.WriteFileAtomic(markdownPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}
