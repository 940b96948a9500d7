package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama provides an implementation of the Advisor interface for a self-hosted Ollama server.
type Ollama struct {
	host         string
	model        string
	systemPrompt string

	params LLMParameters

	client *api.Client

	logger *slog.Logger
}

// NewOllama creates a new Ollama instance with the specified host URL and model name. The host
// parameter should be a valid URL pointing to an Ollama server.
func NewOllama(host, model, systemPrompt, proxyURL string, params LLMParameters, logger *slog.Logger) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: scheme and host are required", host)
	}

	return Ollama{
		host:         host,
		model:        model,
		systemPrompt: systemPrompt,
		params:       params,
		client:       api.NewClient(u, newHTTPClient(proxyURL)),
		logger:       logger.With(slog.String("module", "ollama")),
	}, nil
}

// Name implements coordinator.Advisor.
func (o Ollama) Name() string { return "ollama" }

// Ask sends the conversation to the Ollama model without streaming and returns the reply.
func (o Ollama) Ask(ctx context.Context, prompt models.Prompt) (string, error) {
	msgs := make([]api.Message, 0, len(prompt.History)+2)
	for _, msg := range prompt.History {
		msgs = append(msgs, api.Message{Role: string(msg.Role), Content: msg.Text})
	}
	msgs = append(msgs, api.Message{Role: string(models.RoleUser), Content: prompt.Message})
	msgs = slices.Insert(msgs, 0, api.Message{
		Role:    "system",
		Content: systemMessage(o.systemPrompt, prompt),
	})

	f := false
	req := api.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &f,
		Options:  o.options(),
	}

	var sb strings.Builder
	if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		sb.WriteString(res.Message.Content)
		return nil
	}); err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", models.TransportError(err, "Ollama error: %d %s", statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return "", models.TransportError(err, "error sending request: %v", err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", models.FormatError(nil, "Ollama returned an empty message")
	}
	o.logger.Debug("Completion received", slog.String("host", o.host), slog.Int("length", len(text)))
	return text, nil
}

func (o Ollama) options() map[string]any {
	opts := make(map[string]any)
	if o.params.Temperature != nil {
		opts["temperature"] = *o.params.Temperature
	}
	if o.params.TopP != nil {
		opts["top_p"] = *o.params.TopP
	}
	if o.params.MaxTokens > 0 {
		opts["num_predict"] = o.params.MaxTokens
	}
	if o.params.Seed != nil {
		opts["seed"] = *o.params.Seed
	}
	return opts
}
