package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"healthbrief/internal/config"
	"healthbrief/internal/domain"
	"healthbrief/internal/ports"
	"healthbrief/internal/validate"
)

const (
	promptContentLimit = 500
	maxResponseBytes   = 1 << 20
)

// OpenAIClient implements ports.Summarizer backed by OpenAI-compatible
// chat completion APIs.
type OpenAIClient struct {
	endpoint    string
	model       string
	apiKey      string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

var _ ports.Summarizer = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize posts the draft's articles to the chat completions endpoint and
// returns the generated newsletter body.
func (c *OpenAIClient) Summarize(ctx context.Context, draft domain.Draft) (string, error) {
	if c == nil {
		return "", fmt.Errorf("openai client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("openai client misconfigured")
	}
	if draft.Total() == 0 {
		return "", fmt.Errorf("nothing to summarize")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(draft)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("read completion: %w", err)
	}
	if _, err := validate.JSON(raw, maxResponseBytes); err != nil {
		return "", fmt.Errorf("completion payload: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("completion returned empty content")
	}

	return content, nil
}

func buildPrompt(draft domain.Draft) string {
	var entries []string
	for _, section := range draft.Sections {
		for _, article := range section.Articles {
			entries = append(entries, fmt.Sprintf(
				"Title: %s\nCategory: %s\nContent: %s...",
				article.Article.Title, article.Category, clip(article.Article.Body, promptContentLimit),
			))
		}
	}

	return fmt.Sprintf(`Create a professional weekly healthcare newsletter summary focused on payer news and healthcare innovation.

Based on the following articles, create:
1. An executive summary (2-3 sentences)
2. Key highlights organized by category (Payer News, Innovation & Technology)
3. Notable trends or insights

Articles:
%s

Format the response as a professional newsletter with clear sections and bullet points.
Focus on actionable insights for healthcare executives and payer organizations.`,
		strings.Join(entries, "\n\n"))
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
