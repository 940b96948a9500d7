package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/coordinator"
	"github.com/MegaGrindStone/market-web-ui/internal/metrics"
	"github.com/google/uuid"
)

const sessionCookie = "marketwebui_session"

type session struct {
	id    string
	coord *coordinator.Coordinator

	lastSeen time.Time
}

// sessionStore keeps the coordinators of the live browser sessions in memory.
type sessionStore struct {
	mu   sync.Mutex
	byID map[string]*session

	ttl time.Duration
	now func() time.Time
}

func newSessionStore(ttl time.Duration, now func() time.Time) *sessionStore {
	return &sessionStore{
		byID: make(map[string]*session),
		ttl:  ttl,
		now:  now,
	}
}

func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

// add stores sess and drops the sessions idle for longer than the TTL.
func (s *sessionStore) add(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, old := range s.byID {
		if now.Sub(old.lastSeen) > s.ttl {
			delete(s.byID, id)
		}
	}
	sess.lastSeen = now
	s.byID[sess.id] = sess
	metrics.ActiveSessions.Set(float64(len(s.byID)))
}

func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// session returns the caller's session, starting a new one with a fresh coordinator when the
// request carries no known session cookie.
func (m Main) session(w http.ResponseWriter, r *http.Request) *session {
	if id, ok := sessionID(r); ok {
		if sess, ok := m.sessions.get(id); ok {
			return sess
		}
	}

	sess := &session{id: uuid.New().String()}
	opts := m.opts.Coordinator
	opts.OnChange = func(s coordinator.Surface) {
		m.publish(sess, s)
	}
	sess.coord = coordinator.New(m.quotes, m.advisor, opts)
	m.sessions.add(sess)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.Debug("Session started", slog.String("session", sess.id))
	return sess
}
