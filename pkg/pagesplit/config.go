package pagesplit

import "log/slog"

// DefaultMaxPages is the page bound of the roster the tool was written for.
const DefaultMaxPages = 14

// Config holds the page splitting options
type Config struct {
	MaxPages   int          // Pages to export (0 = every page of the source)
	NameFormat string       // File name for a 1-based page number
	Box        string       // PDF box used to import pages
	Logger     *slog.Logger // Progress logger (nil = slog.Default)
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxPages:   DefaultMaxPages,
		NameFormat: "%04d.pdf",
		Box:        "/MediaBox",
		Logger:     nil,
	}
}

// getLogger returns the configured logger, defaulting to slog.Default.
func getLogger(config Config) *slog.Logger {
	if config.Logger == nil {
		return slog.Default()
	}
	return config.Logger
}
