package handlers

import (
	"log/slog"
	"net/http"
)

type homePageData struct {
	Search   searchView
	Chat     chatView
	Market   marketStatus
	Exchange string
}

// HandleHome renders the dashboard of the caller's session, starting the session if needed.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := m.session(w, r)
	data := homePageData{
		Search:   m.searchView(sess),
		Chat:     m.chatView(sess),
		Market:   newMarketStatus(m.opts.Coordinator.Now()),
		Exchange: string(m.opts.Coordinator.Exchange),
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
