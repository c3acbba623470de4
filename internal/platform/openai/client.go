package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rhizomelab/rhizome-backend/internal/pkg/httpx"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
	"github.com/rhizomelab/rhizome-backend/internal/utils"
)

// Client talks to the OpenAI API and implements both annotation ports:
// ingestion.Summarizer and ingestion.EmbeddingProvider.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return &Client{
		log:        log.With("client", "openai"),
		baseURL:    strings.TrimRight(utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log), "/"),
		apiKey:     apiKey,
		model:      utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log),
		embedModel: utils.GetEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small", log),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		maxRetries: utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 5, log),
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int { return e.StatusCode }

type responsesRequest struct {
	Model string `json:"model"`

	Input []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"input"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

type embeddingsRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

const summarizeSystemPrompt = "You are a precise technical summarizer. " +
	"Summarize the given text in 2-3 sentences. Plain prose, no preamble."

// Summarize produces a short summary of text. contextHint, when non-empty,
// is passed as document-level context for the passage.
func (c *Client) Summarize(ctx context.Context, text, contextHint string, maxRetries int) (string, error) {
	user := text
	if strings.TrimSpace(contextHint) != "" {
		user = "Document context:\n" + contextHint + "\n\nPassage to summarize:\n" + text
	}

	req := responsesRequest{
		Model: c.model,
		Input: []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		}{
			{Role: "system", Content: summarizeSystemPrompt},
			{Role: "user", Content: user},
		},
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp, maxRetries); err != nil {
		return "", err
	}

	out := extractOutputText(resp)
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return out, nil
}

// Embed embeds one text. model overrides the client default when non-empty;
// dimensions > 0 asks the API to project to that dimension.
func (c *Client) Embed(ctx context.Context, text, model string, dimensions, maxRetries int) ([]float32, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		input = " "
	}
	if model == "" {
		model = c.embedModel
	}

	req := embeddingsRequest{
		Model:      model,
		Input:      []string{input},
		Dimensions: dimensions,
	}

	var resp embeddingsResponse
	if err := c.do(ctx, "POST", "/v1/embeddings", req, &resp, maxRetries); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings returned no data for model %s", model)
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, f := range resp.Data[0].Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// do runs the bounded retry loop: exponential backoff, Retry-After when the
// server sends one, jitter so concurrent retries don't align. maxRetries <= 0
// uses the client default.
func (c *Client) do(ctx context.Context, method, path string, body, out any, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = c.maxRetries
	}
	backoff := 1 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == maxRetries {
			return err
		}

		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func extractOutputText(resp responsesResponse) string {
	var b strings.Builder
	for _, o := range resp.Output {
		for _, content := range o.Content {
			if content.Type == "output_text" {
				b.WriteString(content.Text)
			}
		}
	}
	return b.String()
}
