package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrTimeout indicates the model server did not answer within the configured
// bound. Fatal to the invocation; the pipeline performs no automatic retries.
var ErrTimeout = errors.New("inference request timed out")

// Config contains inference client configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxConcurrent int
}

// Client provides HTTP client functionality for acoustic model inference
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Concurrency limiting semaphore

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	timeoutRequests uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Request carries one utterance's feature tensor to the model server.
// Features is the flat mel-major tensor of shape [1, NMels, PaddedFrames];
// ValidLength is the padded frame count declared to the model.
type Request struct {
	RequestID    string    `json:"request_id"`
	NMels        int       `json:"n_mels"`
	PaddedFrames int       `json:"padded_frames"`
	ValidLength  int       `json:"valid_length"`
	Features     []float64 `json:"features"`
}

// Response is the model server's per-timestep output distribution.
// Logits is T x V; a 1 x T x V batch may arrive in BatchLogits instead.
type Response struct {
	RequestID   string        `json:"request_id"`
	Logits      [][]float64   `json:"logits,omitempty"`
	BatchLogits [][][]float64 `json:"batch_logits,omitempty"`
	Duration    float64       `json:"duration,omitempty"`
	ProcessedAt time.Time     `json:"processed_at,omitempty"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	TimeoutRequests uint64        `json:"timeout_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new inference HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Infer posts the feature tensor and returns the logits matrix. The request
// is bounded by the configured timeout on top of any deadline already on ctx;
// a deadline hit is surfaced as ErrTimeout.
func (c *Client) Infer(ctx context.Context, request *Request) (*Response, error) {
	// Acquire semaphore for concurrency limiting
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, c.classifyError(ctx.Err())
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	response, err := c.doRequest(ctx, request)
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}

	c.recordSuccess(time.Since(startTime))
	return response, nil
}

// doRequest performs a single HTTP request to the model server
func (c *Client) doRequest(ctx context.Context, request *Request) (*Response, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "asr-pipeline/1.0")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classifyError(fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("model server returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var inferResp Response
	if err := json.Unmarshal(respBody, &inferResp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if inferResp.ProcessedAt.IsZero() {
		inferResp.ProcessedAt = time.Now()
	}

	return &inferResp, nil
}

// classifyError maps deadline hits to ErrTimeout so callers can distinguish
// a hung model server from other failures.
func (c *Client) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, c.config.Timeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, c.config.Timeout, err)
	}

	return err
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) recordSuccess(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

func (c *Client) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
	if errors.Is(err, ErrTimeout) {
		c.timeoutRequests++
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		TimeoutRequests: c.timeoutRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

// Close gracefully shuts down the client
func (c *Client) Close() error {
	// Wait for all active requests to complete
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}

	return nil
}
