// Package azdocintel converts documents to layout markdown with the Azure AI
// Document Intelligence REST API.
//
// A document is submitted to the "prebuilt-layout" model with markdown
// content output. The service answers with an operation URL, which is polled
// until the analysis succeeds or fails.
//
// Usage Requirements:
//
// - A Document Intelligence resource endpoint (AZURE_DOC_INTEL_ENDPOINT)
// - Its access key (AZURE_DOC_INTEL_KEY)
package azdocintel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrAnalyzeFailed is returned when the service reports a failed analysis.
var ErrAnalyzeFailed = errors.New("document analysis failed")

// Config holds the service settings
type Config struct {
	Endpoint     string        // Resource endpoint, e.g. https://name.cognitiveservices.azure.com
	Key          string        // Resource access key
	Model        string        // Model ID (default prebuilt-layout)
	APIVersion   string        // REST API version
	PollInterval time.Duration // Delay between status checks
	Timeout      time.Duration // Maximum time spent waiting for one analysis
}

// DefaultConfig returns a config with sensible defaults, without credentials.
func DefaultConfig() Config {
	return Config{
		Model:        "prebuilt-layout",
		APIVersion:   "2024-11-30",
		PollInterval: time.Second,
		Timeout:      5 * time.Minute,
	}
}

// Validate checks that the credentials are set.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("AZURE_DOC_INTEL_ENDPOINT is required")
	}
	if _, err := url.ParseRequestURI(c.Endpoint); err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if c.Key == "" {
		return errors.New("AZURE_DOC_INTEL_KEY is required")
	}
	return nil
}

// Client calls the analyze API. It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient returns a client for the given config. Zero fields of config
// take their DefaultConfig value; a nil httpClient uses http.DefaultClient.
func NewClient(config Config, httpClient *http.Client) (*Client, error) {
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.APIVersion == "" {
		config.APIVersion = defaults.APIVersion
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{config: config, httpClient: httpClient}, nil
}

// analyzeRequest is the JSON body of an analyze call.
type analyzeRequest struct {
	Base64Source []byte `json:"base64Source"` // encoding/json writes []byte as base64
}

// operation is the body returned when polling an analyze operation.
type operation struct {
	Status        string         `json:"status"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
	Error         *serviceError  `json:"error"`
}

type analyzeResult struct {
	Content       string `json:"content"`
	ContentFormat string `json:"contentFormat"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *serviceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Markdown analyzes a document and returns its markdown content. It blocks
// until the analysis completes, fails, or the configured timeout expires.
func (c *Client) Markdown(ctx context.Context, document []byte) (string, error) {
	operationURL, err := c.submit(ctx, document)
	if err != nil {
		return "", err
	}

	var result *analyzeResult
	backoff := retry.WithMaxDuration(c.config.Timeout, retry.NewConstant(c.config.PollInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		op, err := c.poll(ctx, operationURL)
		if err != nil {
			return err
		}
		switch strings.ToLower(op.Status) {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return errors.New("analysis succeeded without a result")
			}
			result = op.AnalyzeResult
			return nil
		case "failed", "canceled":
			if op.Error != nil {
				return fmt.Errorf("%w: %w", ErrAnalyzeFailed, op.Error)
			}
			return fmt.Errorf("%w: status %s", ErrAnalyzeFailed, op.Status)
		default:
			return retry.RetryableError(fmt.Errorf("analysis still %s", op.Status))
		}
	})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// submit starts an analysis and returns the operation URL to poll.
func (c *Client) submit(ctx context.Context, document []byte) (string, error) {
	body, err := json.Marshal(analyzeRequest{Base64Source: document})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?%s",
		strings.TrimRight(c.config.Endpoint, "/"),
		url.PathEscape(c.config.Model),
		url.Values{
			"api-version":         {c.config.APIVersion},
			"outputContentFormat": {"markdown"},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.Key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", responseError(resp)
	}

	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return "", errors.New("response has no Operation-Location header")
	}
	return location, nil
}

// poll fetches the current state of an operation. Throttling and server
// errors are retryable.
func (c *Client) poll(ctx context.Context, operationURL string) (*operation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.Key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("failed to poll operation: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, retry.RetryableError(responseError(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var op operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("failed to decode operation: %w", err)
	}
	return &op, nil
}

// responseError builds an error from an unexpected response, using the
// service error body when there is one.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Error *serviceError `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != nil {
		return fmt.Errorf("unexpected status %d: %w", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
