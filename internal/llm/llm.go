package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrMissingAPIKey indicates no backend credential is configured.
var ErrMissingAPIKey = errors.New("no API key configured: set CR_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY")

// Completion holds a backend response with its token usage.
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Backend performs a single prompt-completion exchange. No streaming, no
// conversation state.
type Backend interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// BackendError wraps a failed backend call, split into transient failures
// (worth retrying by hand) and fatal ones.
type BackendError struct {
	Transient bool
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("review backend: %v", e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ParseModel splits a provider/model identifier and validates the provider.
func ParseModel(identifier string) (string, error) {
	provider, model, ok := strings.Cut(identifier, "/")
	if !ok || provider == "" || model == "" {
		return "", fmt.Errorf("invalid model identifier %q: expected provider/model", identifier)
	}
	if provider != "anthropic" {
		return "", fmt.Errorf("unsupported provider %q in model identifier: only anthropic models are available", provider)
	}
	return model, nil
}

// Client implements Backend against the Anthropic API.
type Client struct {
	api         *anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

// NewClient creates a backend client. The model is the bare model name, not
// the provider/model identifier.
func NewClient(apiKey, model string, maxTokens int64, temperature float64) *Client {
	// Exactly one request per call. The SDK retries transient failures on
	// its own unless told otherwise.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:         &client,
		model:       anthropic.Model(model),
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Complete sends the instruction and content to the model and returns the
// review text. Errors come back as *BackendError so callers can distinguish
// transient failures from fatal ones.
func (c *Client) Complete(ctx context.Context, system, user string) (*Completion, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, &BackendError{Transient: transient(err), Err: err}
	}

	if msg.StopReason == "max_tokens" {
		return nil, &BackendError{
			Err: fmt.Errorf("response truncated at the %d token limit: reduce the review size or raise review.max_tokens", c.maxTokens),
		}
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &BackendError{Err: errors.New("no text content in API response")}
	}

	return &Completion{
		Text:         text,
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}

// transient reports whether an error is worth retrying by hand: timeouts,
// rate limits, server errors, and connection failures. Client errors (auth,
// unknown model) are fatal.
func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return true
	}
	if strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "504") ||
		strings.Contains(msg, "529") || strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "internal server error") ||
		strings.Contains(msg, "service unavailable") {
		return true
	}
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return true
	}

	return false
}
