package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/market-web-ui/internal/coordinator"
	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

// HandleSearch starts a ticker search for the caller's session. It expects a "ticker" form
// field. Blank input is answered with 400 and a search already in flight with 409; otherwise the
// search runs in the background and the handler answers 202 with an empty body. The panel is only
// rendered by the "search" events, which carry the pending state and then the outcome in order.
func (m Main) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := m.session(w, r)

	ticker := r.FormValue("ticker")
	if models.NormalizeSymbol(ticker, m.opts.Coordinator.Exchange) == "" {
		http.Error(w, "Please enter a ticker symbol.", http.StatusBadRequest)
		return
	}
	if sess.coord.SearchState().Busy() {
		http.Error(w, coordinator.ErrSearchPending.Error(), http.StatusConflict)
		return
	}

	m.goBackground(func(ctx context.Context) {
		// Failures are logged and rendered by the coordinator's change notifications.
		if _, err := sess.coord.Search(ctx, ticker); errors.Is(err, coordinator.ErrSearchPending) {
			m.logger.Debug("Search dropped, another one is in flight", slog.String("session", sess.id))
		}
	})

	w.WriteHeader(http.StatusAccepted)
}

// HandleDismiss clears the search error banner of the caller's session. The cleared panel is
// pushed as a "search" event.
func (m Main) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := m.session(w, r)
	sess.coord.DismissSearchError()
	w.WriteHeader(http.StatusNoContent)
}
