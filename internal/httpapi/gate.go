package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	gateCookie = "dispatch_gate"
	gateTTL    = 12 * time.Hour
)

// gate is the passcode overlay in front of the dashboard. Tokens live in
// memory only; a restart asks for the passcode again. With no hash
// configured the gate is open.
type gate struct {
	hash   []byte
	secure bool
	now    func() time.Time

	mu     sync.Mutex
	tokens map[uuid.UUID]time.Time
}

func newGate(hash string, secure bool) *gate {
	return &gate{
		hash:   []byte(strings.TrimSpace(hash)),
		secure: secure,
		now:    time.Now,
		tokens: map[uuid.UUID]time.Time{},
	}
}

func (g *gate) enabled() bool { return len(g.hash) > 0 }

func (g *gate) open(passcode string) (uuid.UUID, time.Time, bool) {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(passcode)); err != nil {
		return uuid.Nil, time.Time{}, false
	}
	id := uuid.New()
	expires := g.now().Add(gateTTL)

	g.mu.Lock()
	defer g.mu.Unlock()
	for t, exp := range g.tokens {
		if g.now().After(exp) {
			delete(g.tokens, t)
		}
	}
	g.tokens[id] = expires
	return id, expires, true
}

func (g *gate) valid(r *http.Request) bool {
	c, err := r.Cookie(gateCookie)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.tokens[id]
	if !ok {
		return false
	}
	if g.now().After(exp) {
		delete(g.tokens, id)
		return false
	}
	return true
}

func (g *gate) close(r *http.Request) {
	c, err := r.Cookie(gateCookie)
	if err != nil {
		return
	}
	if id, err := uuid.Parse(c.Value); err == nil {
		g.mu.Lock()
		delete(g.tokens, id)
		g.mu.Unlock()
	}
}

func (g *gate) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.enabled() && !g.valid(r) {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "passcode required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type gateRequest struct {
	Passcode string `json:"passcode" validate:"required,max=128"`
}

func (a *App) handleGate(w http.ResponseWriter, r *http.Request) {
	if !a.gate.enabled() {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gate": false})
		return
	}
	var body gateRequest
	if !a.decodeBody(w, r, &body) {
		return
	}
	id, expires, ok := a.gate.open(body.Passcode)
	if !ok {
		a.log.WithField("remote", r.RemoteAddr).Warn("wrong passcode")
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "wrong passcode")
		return
	}

	secure := a.gate.secure
	if !secure && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		secure = true
	}
	http.SetCookie(w, &http.Cookie{
		Name:     gateCookie,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		Expires:  expires,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gate": true})
}

func (a *App) handleGateClose(w http.ResponseWriter, r *http.Request) {
	a.gate.close(r)
	http.SetCookie(w, &http.Cookie{
		Name:     gateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
