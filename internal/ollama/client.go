package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultModel   = "gpt-oss:20b"
	DefaultTimeout = 360 * time.Second
)

// ErrNoJSON is returned when the model reply carries no JSON object
var ErrNoJSON = errors.New("no JSON object found in response")

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// New creates a new Ollama client
func New(ollamaURL, model string) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultModel
	}

	baseURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// WithTimeout overrides the per-request timeout
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// GenerateResponse generates a non-streamed response from the LLM
func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	slog.Debug("ollama request", "model", c.model, "timeout", c.timeout)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	result := strings.TrimSpace(response.String())
	slog.Debug("ollama response", "model", c.model, "chars", len(result))
	return result, nil
}

// AIDetectionResult is the model's judgement of who wrote a text
type AIDetectionResult struct {
	Likelihood string   `json:"likelihood"`
	Confidence string   `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Indicators []string `json:"indicators"`
	HumanScore float64  `json:"human_score"`
}

// DetectAIContent asks the model whether the text was likely written by AI
func (c *Client) DetectAIContent(ctx context.Context, text string) (*AIDetectionResult, error) {
	prompt := fmt.Sprintf(`Analyze the following text to determine if it was written by an AI or a human. Consider factors such as:

1. Predictability of word choice and phrasing
2. Variation in sentence length and rhythm
3. Generic transitions ("Furthermore", "Moreover", "In conclusion")
4. Concrete details, personal voice and sensory language
5. Natural imperfections versus uniform polish

Provide your assessment as a JSON object with:
- likelihood: "very_likely" | "likely" | "possible" | "unlikely" | "very_unlikely" (AI-generated)
- confidence: "high" | "medium" | "low"
- reasoning: 1-2 sentences explaining your assessment
- indicators: array of specific markers you found
- human_score: 0-100 where 0 = definitely AI, 100 = definitely human

Text to analyze:
%s

Return ONLY the JSON object, nothing else:`, text)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, err := parseDetection(response)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HumanProbability returns the model's human_score as a probability in [0,1]
func (c *Client) HumanProbability(ctx context.Context, text string) (float64, error) {
	result, err := c.DetectAIContent(ctx, text)
	if err != nil {
		return 0, err
	}
	p := result.HumanScore / 100
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, nil
}

// Rewrite rewrites text according to a style directive
func (c *Client) Rewrite(ctx context.Context, text, directive string) (string, error) {
	prompt := fmt.Sprintf(`%s

Return ONLY the rewritten text. Do NOT add commentary, headings or quotation marks.

Text:
%s

Rewritten text:`, directive, text)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", err
	}
	if response == "" {
		return "", fmt.Errorf("empty rewrite from model %s", c.model)
	}
	return response, nil
}

// parseDetection extracts the outermost JSON object from a model reply
func parseDetection(response string) (*AIDetectionResult, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}

	var result AIDetectionResult
	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to parse AI detection JSON: %w", err)
	}
	if result.Indicators == nil {
		result.Indicators = []string{}
	}
	return &result, nil
}
