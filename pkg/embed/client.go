package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hypernym-ai/modelprint/pkg/retry"
)

// embeddingRequest is an OpenAI-compatible /v1/embeddings request, accepted
// by Jina and OpenAI alike.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []embeddingData `json:"data"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Option configures the embeddings client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client calls an OpenAI-compatible embeddings endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClient creates an embeddings client for the given model.
func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.jina.ai/v1",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, eris.Wrap(err, "embed: marshal request")
	}

	body, err := c.retryPost(ctx, payload)
	if err != nil {
		return nil, err
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "embed: unmarshal response")
	}
	if len(result.Data) != len(texts) {
		return nil, eris.Errorf("embed: expected %d vectors, got %d", len(texts), len(result.Data))
	}

	// The API may return vectors out of order; restore input order.
	sort.Slice(result.Data, func(i, j int) bool {
		return result.Data[i].Index < result.Data[j].Index
	})
	vectors := make([][]float64, len(result.Data))
	for i, d := range result.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// statusError carries a non-200 embeddings response for retry classification.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// retryPost executes the embeddings request with exponential backoff on
// transient failures (429, 5xx, transport errors).
func (c *Client) retryPost(ctx context.Context, payload []byte) ([]byte, error) {
	cfg := retry.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		ShouldRetry: func(err error, _ int) bool {
			var se *statusError
			if errors.As(err, &se) {
				return retryableStatusCode(se.code)
			}
			var ue *url.Error
			return errors.As(err, &ue)
		},
		Sleep: c.sleep,
	}

	res, err := retry.Do(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		return nil, eris.Wrap(err, "embed: request failed")
	}
	return res.Value, nil
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "embed: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "embed: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}
	return body, nil
}
