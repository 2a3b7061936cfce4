package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/vasilisp/pagechat/internal/chat"
	"github.com/vasilisp/pagechat/internal/credential"
	"github.com/vasilisp/pagechat/internal/util"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1/"

	Model       = openai.ChatModelGPT4oMini
	MaxTokens   = 1000
	Temperature = 0.7
)

type Client struct {
	client openai.Client
	log    *zap.Logger
}

// NewClient returns a client for the chat completions endpoint under
// baseURL. Every call is attempted exactly once.
func NewClient(baseURL string, log *zap.Logger) *Client {
	util.Assert(log != nil, "NewClient nil log")

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)

	return &Client{
		client: client,
		log:    log,
	}
}

func convertMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case chat.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	return converted
}

func extractGPTResponse(chatCompletion *openai.ChatCompletion) (string, error) {
	if chatCompletion == nil {
		return "", fmt.Errorf("nil chatCompletion")
	}
	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return chatCompletion.Choices[0].Message.Content, nil
}

func (c *Client) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return chat.NewError(chat.InvalidCredential, err)
		case http.StatusTooManyRequests:
			return chat.NewError(chat.RateLimited, err)
		default:
			c.log.Error("completion endpoint error",
				zap.Int("status", apiErr.StatusCode),
				zap.Error(err))
			return chat.NewError(chat.RemoteFailure, err)
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return chat.NewError(chat.Unreachable, err)
	}

	c.log.Error("completion failed", zap.Error(err))
	return chat.NewError(chat.RemoteFailure, err)
}

// Complete sends messages and returns the assistant's reply. Failures are
// *chat.Error values classified by outcome.
func (c *Client) Complete(ctx context.Context, messages []chat.Message, cred credential.Credential) (string, error) {
	util.Assert(c != nil, "Complete nil client")
	util.Assert(len(messages) > 0, "Complete empty messages")

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    convertMessages(messages),
		Model:       Model,
		MaxTokens:   openai.Int(MaxTokens),
		Temperature: openai.Float(Temperature),
	}, option.WithAPIKey(cred.APIKey))
	if err != nil {
		return "", c.classify(err)
	}

	reply, err := extractGPTResponse(chatCompletion)
	if err != nil {
		c.log.Error("unexpected completion response", zap.Error(err))
		return "", chat.NewError(chat.RemoteFailure, err)
	}

	return reply, nil
}
