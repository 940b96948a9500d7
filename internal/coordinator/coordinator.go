// Package coordinator drives the dashboard's two interaction surfaces, ticker search and advisor
// chat. Each surface runs at most one external call at a time, bounds it with a deadline and
// turns its outcome into state the presentation layer can render.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/google/uuid"
)

// QuoteProvider fetches the snapshot of a normalized, exchange-suffixed symbol.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	Name() string
}

// Advisor produces the reply text for a user prompt. Implementations must return a
// models.Error of KindFormat rather than an empty reply when the response carries no text.
type Advisor interface {
	Ask(ctx context.Context, prompt models.Prompt) (string, error)
	Name() string
}

// Options tunes a Coordinator. Zero fields take the defaults documented on each field.
type Options struct {
	// Timeout bounds each external call. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Exchange resolves bare tickers. Defaults to NSE.
	Exchange models.Exchange
	// Locale and ClientVersion are forwarded to the advisor as request metadata.
	Locale        string
	ClientVersion string
	// Greeting, if set, opens the conversation as a delivered assistant message.
	Greeting string

	// OnChange is called after every state transition of a surface, outside the coordinator's
	// lock. It must not block for long.
	OnChange func(Surface)

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// DefaultTimeout is the deadline of an external call when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

var (
	// ErrSearchPending is returned by Search while another search is in flight.
	ErrSearchPending = errors.New("a search is already in progress")
	// ErrChatPending is returned by SendMessage while another message awaits its reply.
	ErrChatPending = errors.New("please wait for the current reply")
)

// Coordinator owns the quote snapshot and the conversation of one dashboard view. It is safe for
// concurrent use; the in-flight guard of each surface serializes its requests.
type Coordinator struct {
	quotes  QuoteProvider
	advisor Advisor
	opts    Options

	logger *slog.Logger

	mu       sync.Mutex
	search   surface
	chat     surface
	snapshot *models.Quote
	messages []models.Message
}

// New creates a Coordinator. Either provider may be nil, in which case its surface fails every
// request with a configuration error.
func New(quotes QuoteProvider, advisor Advisor, opts Options) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Exchange == "" {
		opts.Exchange = models.ExchangeNSE
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	c := &Coordinator{
		quotes:  quotes,
		advisor: advisor,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("module", "coordinator")),
		search:  newSurface(),
		chat:    newSurface(),
	}
	if opts.Greeting != "" {
		c.messages = append(c.messages, models.Message{
			ID:        opts.NewID(),
			Text:      opts.Greeting,
			Role:      models.RoleAssistant,
			Timestamp: opts.Now(),
			Status:    models.StatusDelivered,
		})
	}
	return c
}

// SearchState returns the state of the search surface.
func (c *Coordinator) SearchState() SurfaceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search.snapshot()
}

// ChatState returns the state of the chat surface.
func (c *Coordinator) ChatState() SurfaceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chat.snapshot()
}

// Snapshot returns the last successfully fetched quote, if any.
func (c *Coordinator) Snapshot() (models.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return models.Quote{}, false
	}
	return *c.snapshot, true
}

// Messages returns a copy of the conversation, oldest first.
func (c *Coordinator) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// DismissSearchError clears the search error banner. It does nothing unless the search surface
// is in StateError.
func (c *Coordinator) DismissSearchError() {
	c.mu.Lock()
	changed := c.search.state == StateError
	c.search.dismiss()
	c.mu.Unlock()

	if changed {
		c.notify(SurfaceSearch)
	}
}

func (c *Coordinator) notify(s Surface) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(s)
	}
}
