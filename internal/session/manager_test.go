package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journal-service/pkg/jwt"
)

func newTestManager(t *testing.T, secure bool) *Manager {
	t.Helper()
	signer, err := jwt.NewSigner("test-secret")
	require.NoError(t, err)
	return NewManager(NewMemoryStore(), signer, CookieConfig{Name: "session", Secure: secure, TTL: time.Hour}, zap.NewNop())
}

func startSession(t *testing.T, m *Manager, id Identity) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Start(context.Background(), rec, id))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestManager_StartResolveEnd(t *testing.T) {
	m := newTestManager(t, false)
	alice := Identity{UserID: "u1", Email: "alice@example.com"}

	c := startSession(t, m, alice)
	assert.Equal(t, "session", c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 3600, c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.False(t, c.Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	got, ok := m.Resolve(req)
	require.True(t, ok)
	assert.Equal(t, alice, got)

	rec := httptest.NewRecorder()
	require.NoError(t, m.End(context.Background(), rec, req))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.True(t, cleared[0].MaxAge < 0)

	// The old cookie no longer maps to a session.
	_, ok = m.Resolve(req)
	assert.False(t, ok)
}

func TestManager_SecureCookie(t *testing.T) {
	m := newTestManager(t, true)
	c := startSession(t, m, Identity{UserID: "u1"})
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
}

func TestManager_ResolveRejectsBadCookies(t *testing.T) {
	m := newTestManager(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := m.Resolve(req)
	assert.False(t, ok, "no cookie")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "not-a-token"})
	_, ok = m.Resolve(req)
	assert.False(t, ok, "garbage cookie")

	other, _ := jwt.NewSigner("other-secret")
	forged, err := other.Sign("sid", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: forged})
	_, ok = m.Resolve(req)
	assert.False(t, ok, "foreign signature")

	// Validly signed, but no server-side session.
	orphan, err := m.signer.Sign("unknown-sid", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: orphan})
	_, ok = m.Resolve(req)
	assert.False(t, ok, "unknown session")
}

func TestManager_EndWithoutSession(t *testing.T) {
	m := newTestManager(t, false)
	rec := httptest.NewRecorder()
	require.NoError(t, m.End(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/", nil)))
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestManager_Require(t *testing.T) {
	m := newTestManager(t, false)
	var seen Identity
	h := m.Require(func(w http.ResponseWriter, r *http.Request, id Identity) {
		seen = id
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Not logged in"}`, rec.Body.String())
	assert.Empty(t, seen.UserID)

	alice := Identity{UserID: "u1", Email: "alice@example.com"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(startSession(t, m, alice))
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, alice, seen)
}
