// Package extraction talks to the invoice extraction service: it submits a
// document, polls the job until it settles and decodes the extracted products.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sechic/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

const (
	// DefaultEngine is the model whose result is read from nested job output
	DefaultEngine = "gemini"
	// DefaultPollInterval spaces job status checks
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxAttempts bounds how many status checks are made
	DefaultMaxAttempts = 30

	defaultTimeout  = 60 * time.Second
	maxResponseSize = 20 * 1024 * 1024
)

// Job states reported by the service
const (
	JobCompleted = "completed"
	JobFailed    = "failed"
)

var (
	// ErrExtractionTimeout is returned when the job does not settle within the poll budget
	ErrExtractionTimeout = errors.New("extraction: job did not complete in time")
	// ErrExtractionFailed is returned when the service reports the job as failed
	ErrExtractionFailed = errors.New("extraction: job failed")
	// ErrServiceUnavailable wraps transport failures
	ErrServiceUnavailable = errors.New("extraction: service unavailable")
	// ErrInvalidResponse is returned for bodies that cannot be decoded
	ErrInvalidResponse = errors.New("extraction: invalid response")
)

// Config configures the extraction client
type Config struct {
	BaseURL      string
	Engine       string
	PollInterval time.Duration
	MaxAttempts  int
	Timeout      time.Duration
}

// Client submits invoices to the extraction service
type Client struct {
	baseURL      string
	engine       string
	pollInterval time.Duration
	maxAttempts  int
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewClient creates an extraction client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("extraction: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("extraction: invalid base url: %w", err)
	}
	if cfg.Engine == "" {
		cfg.Engine = DefaultEngine
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:      base,
		engine:       cfg.Engine,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
	}, nil
}

type processResponse struct {
	JobID string `json:"job_id"`
}

type statusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

// Extract submits a document and returns the extracted products once the job completes
func (c *Client) Extract(ctx context.Context, filename string, content []byte) (*catalog.RawExtraction, error) {
	jobID, err := c.submit(ctx, filename, content)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Extraction job created", zap.String("job_id", jobID), zap.String("filename", filename))

	if err := c.waitForJob(ctx, jobID); err != nil {
		return nil, err
	}

	body, err := c.get(ctx, "/job/"+url.PathEscape(jobID)+"/json")
	if err != nil {
		return nil, err
	}
	result, err := c.decodeResult(body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Extraction job completed",
		zap.String("job_id", jobID),
		zap.Int("products", len(result.Products)))
	return result, nil
}

// submit uploads the document as multipart form field "file"
func (c *Client) submit(ctx context.Context, filename string, content []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("extraction: failed to build upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("extraction: failed to build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("extraction: failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", &buf)
	if err != nil {
		return "", fmt.Errorf("extraction: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	var resp processResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("%w: no job id in response", ErrInvalidResponse)
	}
	return resp.JobID, nil
}

// waitForJob polls the job status until it completes, fails or the attempts run out
func (c *Client) waitForJob(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.get(ctx, "/job/"+url.PathEscape(jobID))
		if err != nil {
			return err
		}
		var status statusResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}

		switch status.Status {
		case JobCompleted:
			return nil
		case JobFailed:
			return fmt.Errorf("%w: job %s", ErrExtractionFailed, jobID)
		}
		c.logger.Debug("Extraction job pending",
			zap.String("job_id", jobID),
			zap.Int("attempt", attempt),
			zap.Float64("progress", status.Progress))

		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return fmt.Errorf("%w: job %s after %d attempts", ErrExtractionTimeout, jobID, c.maxAttempts)
}

// decodeResult accepts either {products, order_info} at the root or the
// output nested under model_results.<engine>.result
func (c *Client) decodeResult(body []byte) (*catalog.RawExtraction, error) {
	var envelope struct {
		ModelResults map[string]struct {
			Result json.RawMessage `json:"result"`
		} `json:"model_results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	payload := body
	if nested := c.pickEngineResult(envelope.ModelResults); nested != nil {
		payload = nested
	}

	var result catalog.RawExtraction
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if result.Products == nil {
		result.Products = []catalog.RawProduct{}
	}
	return &result, nil
}

// pickEngineResult prefers the configured engine and otherwise takes the
// first engine, by name, that produced a result
func (c *Client) pickEngineResult(results map[string]struct {
	Result json.RawMessage `json:"result"`
}) json.RawMessage {
	if len(results) == 0 {
		return nil
	}
	if r, ok := results[c.engine]; ok && hasContent(r.Result) {
		return r.Result
	}
	engines := make([]string, 0, len(results))
	for name := range results {
		engines = append(engines, name)
	}
	sort.Strings(engines)
	for _, name := range engines {
		if hasContent(results[name].Result) {
			c.logger.Warn("Configured extraction engine missing, using another",
				zap.String("engine", c.engine), zap.String("used", name))
			return results[name].Result
		}
	}
	return nil
}

func hasContent(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != "{}"
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("extraction: failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("extraction: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, fmt.Errorf("extraction: %s %s returned HTTP %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, msg)
	}
	return body, nil
}
