package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPEngine calls a remote rule engine. The remote service is stateless;
// a failed call simply yields no advisory findings upstream.
type HTTPEngine struct {
	endpoint string
	http     *http.Client
}

// NewHTTPEngine creates a client for the rule engine at endpoint.
func NewHTTPEngine(endpoint string, timeout time.Duration) *HTTPEngine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEngine{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Check posts the request and decodes the finding list.
func (e *HTTPEngine) Check(ctx context.Context, req CheckRequest) ([]Finding, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule check request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, e.endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rule engine call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rule engine returned HTTP %d", resp.StatusCode)
	}

	var findings []Finding
	if err := json.NewDecoder(resp.Body).Decode(&findings); err != nil {
		return nil, fmt.Errorf("failed to decode rule findings: %w", err)
	}
	return findings, nil
}
