// Package organize runs the LLM-backed memory workflows: summarizing
// temp logs into core memories and drafting unprompted messages. The
// engine stores and ranks; classification happens here.
package organize

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"pocketpal/internal/model"
)

// Chat roles used by the workflows.
const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleAI     = "ai"
)

// Message is one chat-completion input line.
type Message struct {
	Role    string
	Content string
}

// Options are per-call completion parameters.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatCompleter sends a messages array and returns the reply text.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// OpenAI is the ChatCompleter over an OpenAI-compatible endpoint.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds a completer from the document's API config.
func NewOpenAI(cfg model.APIConfig) *OpenAI {
	opts := []option.RequestOption{}
	if cfg.APIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	cl := openai.NewClient(opts...)
	return &OpenAI{client: &cl}
}

func (c *OpenAI) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	var params []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case RoleUser:
			params = append(params, openai.UserMessage(m.Content))
		default:
			params = append(params, openai.AssistantMessage(m.Content))
		}
	}

	req := openai.ChatCompletionNewParams{
		Messages: params,
		Model:    shared.ChatModel(opts.Model),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		req.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
