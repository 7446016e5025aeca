// Package gdocai converts roster pages to layout markdown with Google Document AI.
//
// A page PDF is processed by a Document AI OCR or layout processor and the
// response is rendered as markdown the way the rest of the pipeline expects
// it: one paragraph per text line outside tables, and one pipe table per
// detected table, in reading order.
//
// Main Functions:
//
// - ProcessDocument: Sends a document to Google Document AI for processing
// - MarkdownFromProto: Renders a Document AI response as markdown
// - Engine.Markdown: Both steps, for one page
//
// Usage Requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor with table detection
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS environment variable
package gdocai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	documentai "cloud.google.com/go/documentai/apiv1"

	"github.com/gardar/cartelec/pkg/ocr"
)

// Config holds the Document AI processor settings
type Config struct {
	ProjectID       string // Google Cloud project
	Location        string // Processor location ("us", "eu")
	ProcessorID     string // Processor ID
	CredentialsFile string // Service account file (default GOOGLE_APPLICATION_CREDENTIALS)
	DumpDir         string // Directory for raw JSON responses (empty = disabled)
}

// Validate checks that the processor is fully identified.
func (c Config) Validate() error {
	switch {
	case c.ProjectID == "":
		return errors.New("Document AI project_id is required")
	case c.Location == "":
		return errors.New("Document AI location is required")
	case c.ProcessorID == "":
		return errors.New("Document AI processor_id is required")
	}
	return nil
}

// Engine renders pages to markdown with one shared Document AI client.
// It is safe for concurrent use.
type Engine struct {
	client *documentai.DocumentProcessorClient
	cfg    *Config
}

// NewEngine creates the Document AI client for cfg.
func NewEngine(ctx context.Context, cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{client: client, cfg: cfg}, nil
}

// Markdown processes one page PDF and renders the response as markdown.
func (e *Engine) Markdown(ctx context.Context, pdfBytes []byte) (string, error) {
	doc, err := processDocument(ctx, e.client, pdfBytes, e.cfg)
	if err != nil {
		return "", err
	}

	if e.cfg.DumpDir != "" {
		name := dumpName(ctx, pdfBytes)
		debugJSON, err := ToJSON(doc)
		if err != nil {
			return "", fmt.Errorf("failed to convert API response to JSON: %w", err)
		}
		if err := os.WriteFile(filepath.Join(e.cfg.DumpDir, name), []byte(debugJSON), 0644); err != nil {
			return "", fmt.Errorf("failed to write API response JSON: %w", err)
		}
	}

	return MarkdownFromProto(doc), nil
}

// Close releases the Document AI client.
func (e *Engine) Close() error {
	return e.client.Close()
}

// dumpName names the raw response dump of a page after its page file
// (0001.pdf -> 0001.pdf.json). Calls made outside the OCR runner fall back
// to a digest of the document.
func dumpName(ctx context.Context, pdfBytes []byte) string {
	if name := ocr.PageFile(ctx); name != "" {
		return name + ".json"
	}
	sum := sha256.Sum256(pdfBytes)
	return "gdocai-" + hex.EncodeToString(sum[:8]) + ".json"
}
