package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPModel talks to an inference sidecar that hosts the language model
// and the classifier:
//
//	POST /perplexity {"text": ...} -> {"perplexity": float}
//	POST /classify   {"text": ...} -> {"human_probability": float in [0,1]}
//
// It implements both LanguageModel and Classifier.
type HTTPModel struct {
	baseURL         string
	client          *http.Client
	maxRetries      uint64
	initialInterval time.Duration
}

// HTTPOption configures an HTTPModel
type HTTPOption func(*HTTPModel)

// WithHTTPClient replaces the traced default client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(m *HTTPModel) {
		if c != nil {
			m.client = c
		}
	}
}

// WithRetry sets how many times a transient failure is retried and the
// first backoff interval
func WithRetry(maxRetries uint64, initial time.Duration) HTTPOption {
	return func(m *HTTPModel) {
		m.maxRetries = maxRetries
		if initial > 0 {
			m.initialInterval = initial
		}
	}
}

// NewHTTPModel creates a sidecar client with a per-request timeout
func NewHTTPModel(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPModel {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	m := &HTTPModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries:      3,
		initialInterval: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type textRequest struct {
	Text string `json:"text"`
}

// Perplexity implements LanguageModel
func (m *HTTPModel) Perplexity(ctx context.Context, text string) (float64, error) {
	var resp struct {
		Perplexity *float64 `json:"perplexity"`
	}
	if err := m.post(ctx, "/perplexity", text, &resp); err != nil {
		return 0, err
	}
	if resp.Perplexity == nil {
		return 0, errors.New("sidecar response missing perplexity")
	}
	return *resp.Perplexity, nil
}

// HumanProbability implements Classifier
func (m *HTTPModel) HumanProbability(ctx context.Context, text string) (float64, error) {
	var resp struct {
		HumanProbability *float64 `json:"human_probability"`
	}
	if err := m.post(ctx, "/classify", text, &resp); err != nil {
		return 0, err
	}
	if resp.HumanProbability == nil {
		return 0, errors.New("sidecar response missing human_probability")
	}
	return *resp.HumanProbability, nil
}

// post sends text to path and decodes the reply into out. Network errors,
// 429 and 5xx are retried with exponential backoff; other 4xx are final.
func (m *HTTPModel) post(ctx context.Context, path, text string, out any) error {
	body, err := json.Marshal(textRequest{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("sidecar request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := fmt.Errorf("sidecar %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode sidecar response: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.initialInterval
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, m.maxRetries), ctx))
}
