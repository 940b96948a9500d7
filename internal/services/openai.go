package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// LLMParameters holds the sampling parameters shared by the language model providers. Nil fields
// leave the provider default in place.
type LLMParameters struct {
	Temperature *float32
	TopP        *float32
	MaxTokens   int
	Seed        *int
}

// OpenAI provides an implementation of the Advisor interface for OpenAI's chat completion API.
type OpenAI struct {
	apiKey       string
	model        string
	systemPrompt string

	params LLMParameters

	client *goopenai.Client

	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI instance with the specified API key, base URL, model name, and
// system prompt. An empty baseURL selects the public OpenAI endpoint; a non-empty proxyURL routes
// requests through that proxy.
func NewOpenAI(
	apiKey, baseURL, model, systemPrompt, proxyURL string,
	params LLMParameters,
	logger *slog.Logger,
) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = newHTTPClient(proxyURL)
	return OpenAI{
		apiKey:       apiKey,
		model:        model,
		systemPrompt: systemPrompt,
		params:       params,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With(slog.String("module", "openai")),
	}
}

// Name implements coordinator.Advisor.
func (o OpenAI) Name() string { return "openai" }

func openAIMessages(systemPrompt string, prompt models.Prompt) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(prompt.History)+2)
	msgs = append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleSystem,
		Content: systemMessage(systemPrompt, prompt),
	})
	for _, msg := range prompt.History {
		role := goopenai.ChatMessageRoleUser
		if msg.Role == models.RoleAssistant {
			role = goopenai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: msg.Text})
	}
	return append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt.Message,
	})
}

// Ask is a wrapper around the OpenAI chat completion API.
func (o OpenAI) Ask(ctx context.Context, prompt models.Prompt) (string, error) {
	if o.apiKey == "" {
		return "", models.ConfigurationError("OpenAI API key is missing. Please set OPENAI_API_KEY in your .env file.")
	}

	req := o.chatRequest(openAIMessages(o.systemPrompt, prompt))

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", openAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", models.FormatError(nil, "no choices found")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", models.FormatError(nil, "empty completion content")
	}

	o.logger.Debug("Completion received",
		slog.String("model", resp.Model),
		slog.Int("totalTokens", resp.Usage.TotalTokens))

	return content, nil
}

func openAIError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return models.TransportError(err, "OpenAI API error: %d %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return models.TransportError(err, "OpenAI API error: %d", reqErr.HTTPStatusCode)
	}
	return models.TransportError(err, "Error: %v", err)
}

func (o OpenAI) chatRequest(messages []goopenai.ChatCompletionMessage) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: o.params.MaxTokens,
	}

	if o.params.Temperature != nil {
		req.Temperature = *o.params.Temperature
	}
	if o.params.TopP != nil {
		req.TopP = *o.params.TopP
	}
	if o.params.Seed != nil {
		req.Seed = o.params.Seed
	}

	return req
}
