package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/tmaxmax/go-sse"
)

// Anthropic provides an interface to the Anthropic API for large language model interactions. It
// implements the Advisor interface, streaming the completion and joining its text deltas.
type Anthropic struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string

	params LLMParameters

	client *http.Client

	logger *slog.Logger
}

type anthropicChatRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicStreamResponse struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	anthropicAPIEndpoint     = "https://api.anthropic.com/v1"
	anthropicDefaultMaxToken = 500
)

// NewAnthropic creates a new Anthropic instance with the specified API key, model name, system
// prompt and sampling parameters. An empty baseURL selects the public endpoint.
func NewAnthropic(
	apiKey, baseURL, model, systemPrompt, proxyURL string,
	params LLMParameters,
	logger *slog.Logger,
) Anthropic {
	if baseURL == "" {
		baseURL = anthropicAPIEndpoint
	}
	if params.MaxTokens == 0 {
		params.MaxTokens = anthropicDefaultMaxToken
	}
	return Anthropic{
		apiKey:       apiKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		model:        model,
		systemPrompt: systemPrompt,
		params:       params,
		client:       newHTTPClient(proxyURL),
		logger:       logger.With(slog.String("module", "anthropic")),
	}
}

// Name implements coordinator.Advisor.
func (a Anthropic) Name() string { return "anthropic" }

// Ask streams a reply from the Anthropic messages API and returns the joined text. The context
// can be used to cancel the ongoing request.
func (a Anthropic) Ask(ctx context.Context, prompt models.Prompt) (string, error) {
	if a.apiKey == "" {
		return "", models.ConfigurationError("Anthropic API key is missing. Please set ANTHROPIC_API_KEY in your .env file.")
	}

	msgs := make([]anthropicMessage, 0, len(prompt.History)+1)
	for _, msg := range prompt.History {
		// The messages API must open with a user turn.
		if len(msgs) == 0 && msg.Role != models.RoleUser {
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: string(msg.Role), Content: msg.Text})
	}
	msgs = append(msgs, anthropicMessage{Role: string(models.RoleUser), Content: prompt.Message})

	reqBody := anthropicChatRequest{
		Model:       a.model,
		Messages:    msgs,
		Stream:      true,
		System:      systemMessage(a.systemPrompt, prompt),
		MaxTokens:   a.params.MaxTokens,
		Temperature: a.params.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", models.TransportError(err, "error sending request: %v", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", statusError("Anthropic API", resp)
	}

	var sb strings.Builder
	for ev, err := range sse.Read(resp.Body, nil) {
		if err != nil {
			return "", models.TransportError(err, "error reading response: %v", err)
		}
		switch ev.Type {
		case "error":
			var e anthropicError
			if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
				return "", models.FormatError(err, "error unmarshaling error: %v", err)
			}
			return "", models.TransportError(nil, "Anthropic error %s: %s", e.Error.Type, e.Error.Message)
		case "message_stop":
			return a.reply(sb.String())
		case "content_block_delta":
			var res anthropicStreamResponse
			if err := json.Unmarshal([]byte(ev.Data), &res); err != nil {
				return "", models.FormatError(err, "error unmarshaling response: %v", err)
			}
			sb.WriteString(res.Delta.Text)
		default:
			continue
		}
	}
	return a.reply(sb.String())
}

func (a Anthropic) reply(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.FormatError(nil, "Anthropic stream carried no text")
	}
	a.logger.Debug("Completion received", slog.Int("length", len(text)))
	return text, nil
}
