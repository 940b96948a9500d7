package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/market-web-ui/internal/coordinator"
)

// HandleChat sends a message to the advisor on behalf of the caller's session.
//
// The handler expects a "message" form field. Blank messages are answered with 400 and a message
// sent while the previous one still awaits its reply with 409. Otherwise the advisor is asked in
// the background and the handler answers 202 with an empty body; the conversation is pushed as
// "messages" events, first with the pending user message and then with the reply or the failure.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := m.session(w, r)

	text := strings.TrimSpace(r.FormValue("message"))
	if text == "" {
		http.Error(w, "Please type a message.", http.StatusBadRequest)
		return
	}
	if sess.coord.ChatState().Busy() {
		http.Error(w, coordinator.ErrChatPending.Error(), http.StatusConflict)
		return
	}

	m.goBackground(func(ctx context.Context) {
		if _, err := sess.coord.SendMessage(ctx, text); errors.Is(err, coordinator.ErrChatPending) {
			m.logger.Debug("Message dropped, a reply is pending", slog.String("session", sess.id))
		}
	})

	w.WriteHeader(http.StatusAccepted)
}
