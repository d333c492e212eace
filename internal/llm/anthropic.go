package llm

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const requestTimeout = 30 * time.Second

// AnthropicCompleter calls the Anthropic Messages API. SDK-level retries
// are disabled: the caller's retry policy owns backoff and model fallback.
type AnthropicCompleter struct {
	client *anthropic.Client
}

func NewAnthropicCompleter(apiKey, baseURL string) *AnthropicCompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(requestTimeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicCompleter{client: &client}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, model, prompt string, maxTokens int, temperature float64) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classify(err, model)
	}
	if len(resp.Content) == 0 {
		return "", &Error{Kind: KindAPI, Model: model, Message: "empty response"}
	}
	return resp.Content[0].Text, nil
}

// classify maps transport errors onto the ErrorKind taxonomy. Credential
// problems can surface either as 401/403 or as a generic API error whose
// message mentions an expired or exhausted key.
func classify(err error, model string) *Error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &Error{Kind: KindTimeout, Model: model, Message: err.Error()}
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		msg := apierr.Error()
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Model: model, Message: msg}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindUnauthorized, Model: model, Message: msg}
		case http.StatusNotFound:
			return &Error{Kind: KindModelUnavailable, Model: model, Message: msg}
		}
		if isCredentialMessage(msg) {
			return &Error{Kind: KindUnauthorized, Model: model, Message: msg}
		}
		return &Error{Kind: KindAPI, Model: model, Message: msg}
	}

	return &Error{Kind: KindUnknown, Model: model, Message: err.Error()}
}

func isCredentialMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"invalid x-api-key", "authentication", "credit balance", "expired"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
