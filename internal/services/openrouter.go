package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/tmaxmax/go-sse"
)

// OpenRouter provides an implementation of the Advisor interface for interacting with OpenRouter's
// language models.
type OpenRouter struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string

	params LLMParameters

	client *http.Client

	logger *slog.Logger
}

type openRouterChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Stream      bool                `json:"stream"`
	Temperature *float32            `json:"temperature,omitempty"`
	TopP        *float32            `json:"top_p,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Seed        *int                `json:"seed,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type openRouterStreamingResponse struct {
	Choices []openRouterStreamingChoice `json:"choices"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type openRouterStreamingChoice struct {
	Delta openRouterMessage `json:"delta"`
}

const (
	openRouterAPIEndpoint = "https://openrouter.ai/api/v1"
)

// NewOpenRouter creates a new OpenRouter instance with the specified API key, model name, and system prompt.
func NewOpenRouter(
	apiKey, baseURL, model, systemPrompt, proxyURL string,
	params LLMParameters,
	logger *slog.Logger,
) OpenRouter {
	if baseURL == "" {
		baseURL = openRouterAPIEndpoint
	}
	return OpenRouter{
		apiKey:       apiKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		model:        model,
		systemPrompt: systemPrompt,
		params:       params,
		client:       newHTTPClient(proxyURL),
		logger:       logger.With(slog.String("module", "openrouter")),
	}
}

// Name implements coordinator.Advisor.
func (o OpenRouter) Name() string { return "openrouter" }

// Ask streams a completion from the OpenRouter API and returns the joined content. The context
// can be used to cancel the ongoing request.
func (o OpenRouter) Ask(ctx context.Context, prompt models.Prompt) (string, error) {
	if o.apiKey == "" {
		return "", models.ConfigurationError("OpenRouter API key is missing. Please set OPENROUTER_API_KEY in your .env file.")
	}

	resp, err := o.doRequest(ctx, prompt)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var sb strings.Builder
	for ev, err := range sse.Read(resp.Body, nil) {
		if err != nil {
			return "", models.TransportError(err, "error reading response: %v", err)
		}

		o.logger.Debug("Received event", slog.String("event", ev.Data))

		if ev.Data == "[DONE]" {
			break
		}

		var res openRouterStreamingResponse
		if err := json.Unmarshal([]byte(ev.Data), &res); err != nil {
			return "", models.FormatError(err, "error unmarshaling response: %v", err)
		}
		if res.Error != nil {
			return "", models.TransportError(nil, "OpenRouter error: %d %s", res.Error.Code, res.Error.Message)
		}
		if len(res.Choices) == 0 {
			continue
		}
		sb.WriteString(res.Choices[0].Delta.Content)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", models.FormatError(nil, "OpenRouter stream carried no content")
	}
	return text, nil
}

func (o OpenRouter) doRequest(ctx context.Context, prompt models.Prompt) (*http.Response, error) {
	msgs := make([]openRouterMessage, 0, len(prompt.History)+2)
	for _, msg := range prompt.History {
		if msg.Text != "" {
			msgs = append(msgs, openRouterMessage{Role: string(msg.Role), Content: msg.Text})
		}
	}
	msgs = append(msgs, openRouterMessage{Role: string(models.RoleUser), Content: prompt.Message})
	msgs = slices.Insert(msgs, 0, openRouterMessage{
		Role:    "system",
		Content: systemMessage(o.systemPrompt, prompt),
	})

	reqBody := openRouterChatRequest{
		Model:       o.model,
		Messages:    msgs,
		Stream:      true,
		Temperature: o.params.Temperature,
		TopP:        o.params.TopP,
		MaxTokens:   o.params.MaxTokens,
		Seed:        o.params.Seed,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/MegaGrindStone/market-web-ui/")
	req.Header.Set("X-Title", "Market Web UI")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, models.TransportError(err, "error sending request: %v", err)
	}
	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, statusError("OpenRouter API", resp)
	}

	return resp, nil
}
