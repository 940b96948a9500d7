package coordinator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/metrics"
	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

// SendMessage appends text to the conversation as a pending user message and asks the advisor
// for a reply. Blank input is rejected with a validation error and ErrChatPending is returned
// while an earlier message still awaits its reply; neither touches the conversation nor the
// network.
//
// On success the user message becomes delivered and the returned assistant message is appended.
// On failure the user message becomes failed with the error text attached and no assistant
// message is appended. Failed messages are never retried; sending the same text again creates a
// new message.
//
// A missing advisor credential follows the same failure path: the configuration error is
// attached to the failed user message rather than appended as an assistant reply.
func (c *Coordinator) SendMessage(ctx context.Context, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.SurfaceOutcomes.WithLabelValues(string(SurfaceChat), "rejected").Inc()
		return models.Message{}, models.ValidationError("Please type a message.")
	}

	c.mu.Lock()
	if !c.chat.begin() {
		c.mu.Unlock()
		metrics.SurfaceOutcomes.WithLabelValues(string(SurfaceChat), "busy").Inc()
		return models.Message{}, ErrChatPending
	}
	prompt := models.Prompt{
		Message:       text,
		History:       c.deliveredHistory(),
		Locale:        c.opts.Locale,
		Timestamp:     c.opts.Now(),
		ClientVersion: c.opts.ClientVersion,
	}
	if c.snapshot != nil {
		prompt.Viewing = c.snapshot.Symbol
	}
	um := models.Message{
		ID:        c.opts.NewID(),
		Text:      text,
		Role:      models.RoleUser,
		Timestamp: prompt.Timestamp,
		Status:    models.StatusPending,
	}
	c.messages = append(c.messages, um)
	// Messages are append-only and only this call appends while the surface is pending, so the
	// index stays valid until the outcome is applied.
	idx := len(c.messages) - 1
	c.mu.Unlock()
	c.notify(SurfaceChat)

	reply, err := c.ask(ctx, prompt)
	if err == nil {
		reply = strings.TrimSpace(reply)
		if reply == "" {
			err = models.FormatError(nil, "advisor returned an empty reply")
		}
	}

	if err != nil {
		fail := failure(SurfaceChat, err)

		c.mu.Lock()
		c.messages[idx].Status = models.StatusFailed
		c.messages[idx].Error = fail.Msg
		c.chat.fail(fail.Msg)
		c.mu.Unlock()

		c.logger.Error("Chat failed",
			slog.String("messageID", um.ID),
			slog.String("kind", fail.Kind.String()),
			slog.String(errLoggerKey, err.Error()))
		metrics.SurfaceOutcomes.WithLabelValues(string(SurfaceChat), fail.Kind.String()).Inc()
		c.notify(SurfaceChat)
		return models.Message{}, fail
	}

	am := models.Message{
		ID:        c.opts.NewID(),
		Text:      reply,
		Role:      models.RoleAssistant,
		Timestamp: c.opts.Now(),
		Status:    models.StatusDelivered,
	}

	c.mu.Lock()
	c.messages[idx].Status = models.StatusDelivered
	c.messages = append(c.messages, am)
	c.chat.resolve()
	c.mu.Unlock()

	metrics.SurfaceOutcomes.WithLabelValues(string(SurfaceChat), "success").Inc()
	c.notify(SurfaceChat)
	return am, nil
}

func (c *Coordinator) ask(ctx context.Context, prompt models.Prompt) (string, error) {
	if c.advisor == nil {
		return "", models.ConfigurationError("No AI advisor is configured. Set ADVISOR_PROVIDER in your .env file.")
	}

	defer metrics.ObserveCall(string(SurfaceChat), c.advisor.Name(), time.Now())
	return await(ctx, c.opts.Timeout, func(ctx context.Context) (string, error) {
		return c.advisor.Ask(ctx, prompt)
	})
}

// deliveredHistory must be called with c.mu held.
func (c *Coordinator) deliveredHistory() []models.Message {
	history := make([]models.Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Status == models.StatusDelivered {
			history = append(history, m)
		}
	}
	return history
}
