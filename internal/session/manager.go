package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"journal-service/pkg/jwt"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool // Secure + SameSite=None, for a cross-site frontend
	TTL    time.Duration
}

// Manager ties the signed cookie to the server-side store.
type Manager struct {
	store  Store
	signer *jwt.Signer
	cookie CookieConfig
	log    *zap.Logger
}

// NewManager creates a session manager.
func NewManager(store Store, signer *jwt.Signer, cookie CookieConfig, log *zap.Logger) *Manager {
	if cookie.Name == "" {
		cookie.Name = "session"
	}
	if cookie.TTL <= 0 {
		cookie.TTL = 7 * 24 * time.Hour
	}
	return &Manager{store: store, signer: signer, cookie: cookie, log: log}
}

// Start opens a session for id and sets the cookie on w.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, id Identity) error {
	sid := uuid.New().String()
	token, err := m.signer.Sign(sid, m.cookie.TTL)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, sid, id, m.cookie.TTL); err != nil {
		return err
	}
	http.SetCookie(w, m.newCookie(token, int(m.cookie.TTL/time.Second)))
	return nil
}

// Resolve returns the identity behind the request cookie. Any failure means
// the caller is anonymous.
func (m *Manager) Resolve(r *http.Request) (Identity, bool) {
	sid, ok := m.sessionID(r)
	if !ok {
		return Identity{}, false
	}
	id, err := m.store.Load(r.Context(), sid)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Warn("session lookup failed", zap.Error(err))
		}
		return Identity{}, false
	}
	return id, true
}

// End drops the session, if any, and expires the cookie.
func (m *Manager) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if sid, ok := m.sessionID(r); ok {
		err = m.store.Delete(ctx, sid)
	}
	http.SetCookie(w, m.newCookie("", -1))
	return err
}

// AuthedHandlerFunc is a handler that runs only for a logged-in caller.
type AuthedHandlerFunc func(w http.ResponseWriter, r *http.Request, id Identity)

// Require answers 401 unless the request carries a live session.
func (m *Manager) Require(next AuthedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.Resolve(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "Not logged in"})
			return
		}
		next(w, r, id)
	}
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cookie.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	claims, err := m.signer.Parse(c.Value)
	if err != nil {
		m.log.Debug("rejected session cookie", zap.Error(err))
		return "", false
	}
	sid := claims.SessionID()
	return sid, sid != ""
}

func (m *Manager) newCookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if m.cookie.Secure {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}
