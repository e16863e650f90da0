package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ClientConfig configures the HTTP client for the text generation service.
type ClientConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"api_key"`
	Model   string `yaml:"model" json:"model"`
	Retry   RetryConfig
}

// Client calls the text generation service over HTTP with bounded retries.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger *logrus.Entry
}

// NewClient creates a client. A nil logger falls back to the standard one.
func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger.WithField("component", "llm_client"),
	}
}

// Generate sends one generation request. The per-call timeout, retry budget
// and retry delay from the request config override the client defaults.
// A non-retryable service rejection is surfaced as Success=false rather
// than an error so callers can degrade gracefully.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil generate request")
	}

	timeout := req.Config.Timeout
	if timeout <= 0 {
		timeout = DefaultGenerateConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retryCfg := c.cfg.Retry
	if req.Config.MaxRetries > 0 {
		retryCfg.MaxRetries = req.Config.MaxRetries
	}
	if req.Config.RetryDelay > 0 {
		retryCfg.InitialDelay = req.Config.RetryDelay
	}

	body, err := json.Marshal(struct {
		*GenerateRequest
		Model string `json:"model,omitempty"`
	}{req, c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generate request: %w", err)
	}

	var out GenerateResponse
	start := time.Now()

	err = retry(ctx, retryCfg, func() (bool, error) {
		httpReq, err := http.NewRequestWithContext(
			ctx, http.MethodPost, c.cfg.BaseURL+"/v1/generate", bytes.NewReader(body),
		)
		if err != nil {
			return false, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return IsRetryableError(err), err
		}
		defer resp.Body.Close()

		if IsRetryableStatusCode(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			return true, fmt.Errorf("HTTP %d: retryable server error", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			// Terminal rejection: report as an unsuccessful response.
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			out = GenerateResponse{
				Success: false,
				Error:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(data)),
			}
			return false, nil
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return false, fmt.Errorf("failed to decode generate response: %w", err)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"success":  out.Success,
		"tokens":   out.Usage.TotalTokens,
		"duration": time.Since(start),
	}).Debug("generation call completed")

	return &out, nil
}
