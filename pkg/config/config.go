// Package config loads the settings of a cartelec run.
//
// Settings come from four layers, each one overriding the previous:
//
//  1. built-in defaults
//  2. a .env file in the working directory, when present
//  3. environment variables
//  4. an optional YAML file
//
// The YAML file uses snake_case keys; every key is optional:
//
//	ocr:
//	  backend: "azure"            # azure | gdocai
//	  workers: 16
//	  requests_per_second: 4
//	split:
//	  max_pages: 14               # 0 = every page
//	azure:
//	  endpoint: "https://name.cognitiveservices.azure.com"
//	  key: "..."
//	  poll_interval: "1s"
//	  timeout: "5m"
//	gdocai:
//	  project_id: "your-gcp-project-id"
//	  location: "eu"
//	  processor_id: "your-processor-id"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gardar/cartelec/pkg/azdocintel"
	"github.com/gardar/cartelec/pkg/gdocai"
	"github.com/gardar/cartelec/pkg/ocr"
	"github.com/gardar/cartelec/pkg/pagesplit"
)

// OCR backends.
const (
	BackendAzure      = "azure"
	BackendDocumentAI = "gdocai"
)

// EnvFile is the dotenv file read by Load.
const EnvFile = ".env"

// Config holds every setting of a run.
type Config struct {
	OCR        OCRConfig        `yaml:"ocr"`
	Split      SplitConfig      `yaml:"split"`
	Azure      AzureConfig      `yaml:"azure"`
	DocumentAI DocumentAIConfig `yaml:"gdocai"`
}

// OCRConfig selects the OCR backend and sizes the worker pool.
type OCRConfig struct {
	Backend           string  `yaml:"backend"`
	Workers           int     `yaml:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// SplitConfig bounds the page splitter.
type SplitConfig struct {
	MaxPages int `yaml:"max_pages"`
}

// AzureConfig holds the Document Intelligence resource and polling settings.
type AzureConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Key          string        `yaml:"key"`
	Model        string        `yaml:"model"`
	APIVersion   string        `yaml:"api_version"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// DocumentAIConfig identifies the Document AI processor. DumpDir, when set,
// receives the raw response of every page, named after the page file.
type DocumentAIConfig struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	ProcessorID     string `yaml:"processor_id"`
	CredentialsFile string `yaml:"credentials_file"`
	DumpDir         string `yaml:"dump_dir"`
}

// Default returns the built-in settings.
func Default() *Config {
	az := azdocintel.DefaultConfig()
	runner := ocr.DefaultConfig()
	return &Config{
		OCR: OCRConfig{
			Backend:           BackendAzure,
			Workers:           runner.Workers,
			RequestsPerSecond: runner.RequestsPerSecond,
		},
		Split: SplitConfig{MaxPages: pagesplit.DefaultMaxPages},
		Azure: AzureConfig{
			Model:        az.Model,
			APIVersion:   az.APIVersion,
			PollInterval: az.PollInterval,
			Timeout:      az.Timeout,
		},
	}
}

// Load builds the settings of a run. path names an optional YAML file;
// an empty path skips it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", EnvFile, err)
	}

	cfg := Default()
	cfg.applyEnv()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OCR.Backend = getEnv("CARTELEC_OCR_BACKEND", c.OCR.Backend)
	c.OCR.Workers = getEnvAsInt("CARTELEC_OCR_WORKERS", c.OCR.Workers)
	c.OCR.RequestsPerSecond = getEnvAsFloat("CARTELEC_OCR_RPS", c.OCR.RequestsPerSecond)
	c.Split.MaxPages = getEnvAsInt("CARTELEC_MAX_PAGES", c.Split.MaxPages)

	c.Azure.Endpoint = getEnv("AZURE_DOC_INTEL_ENDPOINT", c.Azure.Endpoint)
	c.Azure.Key = getEnv("AZURE_DOC_INTEL_KEY", c.Azure.Key)

	c.DocumentAI.ProjectID = getEnv("GDOCAI_PROJECT_ID", c.DocumentAI.ProjectID)
	c.DocumentAI.Location = getEnv("GDOCAI_LOCATION", c.DocumentAI.Location)
	c.DocumentAI.ProcessorID = getEnv("GDOCAI_PROCESSOR_ID", c.DocumentAI.ProcessorID)
	c.DocumentAI.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.DocumentAI.CredentialsFile)
}

// Validate checks the settings shared by every backend. Backend credentials
// are checked when the engine is built.
func (c *Config) Validate() error {
	c.OCR.Backend = strings.ToLower(strings.TrimSpace(c.OCR.Backend))
	switch c.OCR.Backend {
	case BackendAzure, BackendDocumentAI:
	default:
		return fmt.Errorf("unknown OCR backend %q (want %s or %s)", c.OCR.Backend, BackendAzure, BackendDocumentAI)
	}
	if c.OCR.Workers < 0 {
		return errors.New("ocr workers must not be negative")
	}
	if c.OCR.RequestsPerSecond < 0 {
		return errors.New("ocr requests_per_second must not be negative")
	}
	if c.Split.MaxPages < 0 {
		return errors.New("split max_pages must not be negative")
	}
	return nil
}

// Splitter returns the page splitter settings.
func (c *Config) Splitter(logger *slog.Logger) pagesplit.Config {
	cfg := pagesplit.DefaultConfig()
	cfg.MaxPages = c.Split.MaxPages
	cfg.Logger = logger
	return cfg
}

// Runner returns the OCR worker pool settings.
func (c *Config) Runner() ocr.Config {
	cfg := ocr.DefaultConfig()
	if c.OCR.Workers > 0 {
		cfg.Workers = c.OCR.Workers
	}
	cfg.RequestsPerSecond = c.OCR.RequestsPerSecond
	return cfg
}

// AzureClient returns the Document Intelligence client settings.
func (c *Config) AzureClient() azdocintel.Config {
	return azdocintel.Config{
		Endpoint:     c.Azure.Endpoint,
		Key:          c.Azure.Key,
		Model:        c.Azure.Model,
		APIVersion:   c.Azure.APIVersion,
		PollInterval: c.Azure.PollInterval,
		Timeout:      c.Azure.Timeout,
	}
}

// GDocAI returns the Document AI processor settings.
func (c *Config) GDocAI() *gdocai.Config {
	return &gdocai.Config{
		ProjectID:       c.DocumentAI.ProjectID,
		Location:        c.DocumentAI.Location,
		ProcessorID:     c.DocumentAI.ProcessorID,
		CredentialsFile: c.DocumentAI.CredentialsFile,
		DumpDir:         c.DocumentAI.DumpDir,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
