package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/analysis"
	"github.com/MegaGrindStone/market-web-ui/internal/metrics"
	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

const errLoggerKey = "err"

// Search fetches the snapshot of ticker and makes it the current one. Blank input is rejected
// with a validation error and ErrSearchPending is returned while another search is in flight;
// neither touches state nor the network. Otherwise Search blocks until the provider answers or
// the deadline passes. A failure keeps the previous snapshot and leaves the surface in
// StateError with the returned error's message.
func (c *Coordinator) Search(ctx context.Context, ticker string) (models.Quote, error) {
	symbol := models.NormalizeSymbol(ticker, c.opts.Exchange)
	if symbol == "" {
		metrics.SurfaceOutcomes.WithLabelValues(string(SurfaceSearch), "rejected").Inc()
		return models.Quote{}, models.ValidationError("Please enter a ticker symbol.")
	}

	c.mu.Lock()
	if !c.search.begin() {
		c.mu.Unlock()
		metrics.SurfaceOutcomes.WithLabelValues(string(SurfaceSearch), "busy").Inc()
		return models.Quote{}, ErrSearchPending
	}
	c.mu.Unlock()
	c.notify(SurfaceSearch)

	c.logger.Debug("Search started", slog.String("symbol", symbol))

	q, err := c.fetchQuote(ctx, symbol)
	if err != nil {
		fail := failure(SurfaceSearch, err)

		c.mu.Lock()
		c.search.fail(fail.Msg)
		c.mu.Unlock()

		c.logger.Error("Search failed",
			slog.String("symbol", symbol),
			slog.String("kind", fail.Kind.String()),
			slog.String(errLoggerKey, err.Error()))
		metrics.SurfaceOutcomes.WithLabelValues(string(SurfaceSearch), fail.Kind.String()).Inc()
		c.notify(SurfaceSearch)
		return models.Quote{}, fail
	}

	if q.Symbol == "" {
		q.Symbol = symbol
	}
	q.FetchedAt = c.opts.Now()
	q = analysis.Normalize(q)

	c.mu.Lock()
	c.snapshot = &q
	c.search.resolve()
	c.mu.Unlock()

	metrics.SurfaceOutcomes.WithLabelValues(string(SurfaceSearch), "success").Inc()
	c.notify(SurfaceSearch)
	return q, nil
}

func (c *Coordinator) fetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if c.quotes == nil {
		return models.Quote{}, models.ConfigurationError("No quote provider is configured. Set QUOTE_PROVIDER in your .env file.")
	}

	defer metrics.ObserveCall(string(SurfaceSearch), c.quotes.Name(), time.Now())
	return await(ctx, c.opts.Timeout, func(ctx context.Context) (models.Quote, error) {
		return c.quotes.Quote(ctx, symbol)
	})
}
