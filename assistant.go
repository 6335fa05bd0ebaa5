package umledit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-umledit/internal/assets"
	"github.com/alnah/go-umledit/internal/pipeline"
)

// Assistant defaults.
const (
	DefaultEndpoint         = "https://api.openai.com/v1/chat/completions"
	DefaultModel            = "gpt-3.5-turbo"
	DefaultMaxTokens        = 1000
	DefaultTemperature      = 0.7
	DefaultAssistantTimeout = 60 * time.Second

	maxResponseBytes = 1 << 20
	maxErrorBody     = 4 << 10
)

// Assistant asks a chat-completion endpoint to write diagram markup. One
// request is in flight per Assistant at a time.
type Assistant struct {
	mu          sync.Mutex
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	system      string
	client      *http.Client
	logger      *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// WithEndpoint sets the chat-completion URL.
func WithEndpoint(url string) AssistantOption {
	return func(a *Assistant) {
		if url != "" {
			a.endpoint = url
		}
	}
}

// WithModel sets the model identifier.
func WithModel(model string) AssistantOption {
	return func(a *Assistant) {
		if model != "" {
			a.model = model
		}
	}
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) AssistantOption {
	return func(a *Assistant) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) AssistantOption {
	return func(a *Assistant) {
		a.temperature = t
	}
}

// WithHTTPClient replaces the HTTP client. Its Timeout bounds each request.
func WithHTTPClient(c *http.Client) AssistantOption {
	return func(a *Assistant) {
		if c != nil {
			a.client = c
		}
	}
}

// WithSystemPrompt replaces the instruction sent ahead of the transcript.
func WithSystemPrompt(prompt string) AssistantOption {
	return func(a *Assistant) {
		if strings.TrimSpace(prompt) != "" {
			a.system = strings.TrimSpace(prompt)
		}
	}
}

// WithAssistantLogger sets the logger. A nil logger discards output.
func WithAssistantLogger(l *slog.Logger) AssistantOption {
	return func(a *Assistant) {
		a.logger = orDiscard(l)
	}
}

// NewAssistant creates an Assistant.
func NewAssistant(opts ...AssistantOption) *Assistant {
	a := &Assistant{
		endpoint:    DefaultEndpoint,
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		system:      assets.DefaultSystemPrompt(),
		client:      &http.Client{Timeout: DefaultAssistantTimeout},
		logger:      orDiscard(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Model returns the configured model identifier.
func (a *Assistant) Model() string { return a.model }

// Ask sends a single prompt without history.
func (a *Assistant) Ask(ctx context.Context, prompt, apiKey string) (string, error) {
	return a.Complete(ctx, nil, prompt, apiKey)
}

// Complete sends prompt after the conversation's transcript and returns the
// generated markup. On success the exchange is appended to conv; on failure
// conv is unchanged. A nil conv sends the prompt alone.
func (a *Assistant) Complete(ctx context.Context, conv *Conversation, prompt, apiKey string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrBlankPrompt
	}
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrNoAPIKey
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	messages := []Message{{Role: RoleSystem, Content: a.system}}
	if conv != nil {
		messages = append(messages, conv.Messages()...)
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrAssistantFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrAssistantFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistantFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		a.logger.Debug("completion rejected", "status", resp.StatusCode, "duration", time.Since(start))
		return "", &AssistantError{Status: resp.StatusCode, Body: string(snippet)}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", ErrAssistantFailed, err)
	}
	if len(payload) > maxResponseBytes {
		return "", fmt.Errorf("%w: response exceeds %d bytes", ErrMalformedResponse, maxResponseBytes)
	}

	switch result := decodeCompletion(payload).(type) {
	case completionSuccess:
		a.logger.Debug("completion received",
			"model", a.model,
			"chars", len(result.text),
			"duration", time.Since(start))
		if conv != nil {
			conv.appendExchange(prompt, result.text)
		}
		return result.text, nil
	case completionMalformed:
		return "", fmt.Errorf("%w: %s", ErrMalformedResponse, result.reason)
	default:
		return "", fmt.Errorf("%w: unexpected decode result %T", ErrMalformedResponse, result)
	}
}

// chatRequest is the wire body of a completion request.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// chatResponse is the subset of the completion response that is read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// completion is the outcome of decoding a 2xx response body.
type completion interface {
	isCompletion()
}

type completionSuccess struct {
	text string
}

type completionMalformed struct {
	reason string
}

func (completionSuccess) isCompletion()   {}
func (completionMalformed) isCompletion() {}

// decodeCompletion reads the first choice's content and extracts markup
// from it. It never yields an empty success.
func decodeCompletion(payload []byte) completion {
	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return completionMalformed{reason: "invalid JSON: " + err.Error()}
	}
	if len(resp.Choices) == 0 {
		return completionMalformed{reason: "no choices"}
	}
	content := resp.Choices[0].Message.Content
	if content == nil {
		return completionMalformed{reason: "missing message content"}
	}

	text := pipeline.ExtractMarkup(*content)
	if text == "" {
		return completionMalformed{reason: "empty message content"}
	}
	return completionSuccess{text: text}
}
