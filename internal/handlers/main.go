package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	marketwebui "github.com/MegaGrindStone/market-web-ui"
	"github.com/MegaGrindStone/market-web-ui/internal/coordinator"
	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/tmaxmax/go-sse"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
)

// Options configures Main. Zero fields take the defaults listed on each field.
type Options struct {
	// Coordinator is the template of every session's coordinator options. OnChange is
	// overwritten per session.
	Coordinator coordinator.Options

	// Suggestions are the quick prompts offered under the chat input. Defaults to
	// DefaultSuggestions.
	Suggestions []string
	// DefaultStocks are the shortlisted tickers offered next to the search form. Defaults to
	// DefaultStocks.
	DefaultStocks []string

	// SessionTTL is how long an idle session is kept. Defaults to two hours.
	SessionTTL time.Duration

	Logger *slog.Logger
}

// Main handles the dashboard: it owns one coordinator per browser session, renders the page and
// its fragments, and pushes every state change of a session over server-sent events.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	quotes  coordinator.QuoteProvider
	advisor coordinator.Advisor
	opts    Options

	sessions *sessionStore

	// ctx bounds the background calls started by the handlers; it is cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	calls  *sync.WaitGroup

	logger *slog.Logger
}

// SSE event types for live updates.
var (
	searchSSEType   = sse.Type("search")
	messagesSSEType = sse.Type("messages")
)

const (
	errLoggerKey      = "err"
	defaultSessionTTL = 2 * time.Hour
)

var (
	// DefaultSuggestions are the quick chat prompts shown when none are configured.
	DefaultSuggestions = []string{
		"Should I invest in Reliance Industries?",
		"Top performing IT stocks on NSE?",
		"Nifty 50 outlook for 2025?",
		"Best dividend paying Indian stocks?",
		"Banking sector analysis",
		"Auto sector investment opportunities",
	}
	// DefaultStocks is the shortlist shown next to the search form when none is configured.
	DefaultStocks = []string{"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK"}
)

// DefaultGreeting opens every conversation when no greeting is configured.
const DefaultGreeting = "Namaste! I'm your AI advisor for Indian stock markets. Ask me about NSE/BSE stocks, " +
	"Nifty trends, sectoral analysis, or investment strategies for Indian equities."

// NewMain creates a new Main instance serving sessions backed by the given providers. Either
// provider may be nil; its surface then reports a configuration error on use. It parses the
// HTML templates from the embedded filesystem.
func NewMain(quotes coordinator.QuoteProvider, advisor coordinator.Advisor, opts Options) (Main, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if len(opts.Suggestions) == 0 {
		opts.Suggestions = DefaultSuggestions
	}
	if len(opts.DefaultStocks) == 0 {
		opts.DefaultStocks = DefaultStocks
	}
	if opts.Coordinator.Exchange == "" {
		opts.Coordinator.Exchange = models.ExchangeNSE
	}
	if opts.Coordinator.Now == nil {
		opts.Coordinator.Now = time.Now
	}
	if opts.Coordinator.Greeting == "" {
		opts.Coordinator.Greeting = DefaultGreeting
	}
	if opts.Coordinator.Logger == nil {
		opts.Coordinator.Logger = opts.Logger
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
	)

	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.New("").Funcs(templateFuncs(md)).ParseFS(
		marketwebui.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("error parsing templates: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger.With(slog.String("module", "main"))

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				// Each browser session only receives the updates of its own coordinator.
				if id, ok := sessionID(s.Req); ok {
					topics = append(topics, sessionTopic(id))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates: tmpl,
		quotes:    quotes,
		advisor:   advisor,
		opts:      opts,
		sessions:  newSessionStore(opts.SessionTTL, opts.Coordinator.Now),
		ctx:       ctx,
		cancel:    cancel,
		calls:     &sync.WaitGroup{},
		logger:    logger,
	}, nil
}

func sessionTopic(id string) string {
	return fmt.Sprintf("session-%s", id)
}

// HandleSSE serves the event stream of the caller's session.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// Shutdown cancels the calls still in flight, waits for them to settle and then terminates the
// SSE server. It broadcasts a close message to all connected clients and waits up to 5 seconds
// for connections to terminate. After the timeout, any remaining connections are forcefully
// closed.
func (m Main) Shutdown(ctx context.Context) error {
	m.cancel()

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.calls.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Calls still running at shutdown")
	}

	e := &sse.Message{Type: sse.Type("closeSession")}
	// Events without data are not dispatched by browsers.
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	return m.sseSrv.Shutdown(ctx)
}

// goBackground runs call detached from the request, bounded by the lifetime of Main.
func (m Main) goBackground(call func(ctx context.Context)) {
	m.calls.Add(1)
	go func() {
		defer m.calls.Done()
		call(m.ctx)
	}()
}

// publish renders the fragment of surface s and pushes it to the session's subscribers.
func (m Main) publish(sess *session, s coordinator.Surface) {
	var buf bytes.Buffer
	var msg sse.Message

	switch s {
	case coordinator.SurfaceSearch:
		msg.Type = searchSSEType
		if err := m.templates.ExecuteTemplate(&buf, "search_panel", m.searchView(sess)); err != nil {
			m.logger.Error("Failed to render search panel", slog.String(errLoggerKey, err.Error()))
			return
		}
	case coordinator.SurfaceChat:
		msg.Type = messagesSSEType
		if err := m.templates.ExecuteTemplate(&buf, "chat_panel", m.chatView(sess)); err != nil {
			m.logger.Error("Failed to render chat panel", slog.String(errLoggerKey, err.Error()))
			return
		}
	default:
		return
	}

	msg.AppendData(buf.String())
	if err := m.sseSrv.Publish(&msg, sessionTopic(sess.id)); err != nil {
		m.logger.Error("Failed to publish update",
			slog.String("session", sess.id),
			slog.String("surface", string(s)),
			slog.String(errLoggerKey, err.Error()))
	}
}
