package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"journal-service/internal/session"
	"journal-service/internal/storage/memstore"
	"journal-service/internal/trips"
	"journal-service/internal/users"
	"journal-service/pkg/jwt"
)

type testApp struct {
	handler http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zap.NewNop()
	signer, err := jwt.NewSigner("test-secret")
	require.NoError(t, err)
	sessions := session.NewManager(session.NewMemoryStore(), signer, session.CookieConfig{TTL: time.Hour}, log)

	h := NewRouter(Deps{
		Users:       users.NewHandler(users.NewService(memstore.NewUsers(), bcrypt.MinCost, log), sessions, log),
		Trips:       trips.NewHandler(trips.NewService(memstore.NewTrips(), nil, log), sessions, 1<<20, log),
		CORSOrigins: []string{"http://localhost:5173"},
		Log:         log,
	})
	return &testApp{handler: h}
}

func (a *testApp) do(t *testing.T, method, path, contentType string, body []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) signUp(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	creds := []byte(`{"email":"` + email + `","password":"` + password + `"}`)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/api/register", "application/json", creds, nil).Code)
	rec := a.do(t, http.MethodPost, "/api/login", "application/json", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/", "/health"} {
		rec := app.do(t, http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"service":"TravelRecord backend running"}`, rec.Body.String())
	}
}

func TestProtectedRoutesWithoutSession(t *testing.T) {
	app := newTestApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/add"},
		{http.MethodPost, "/api/bulk"},
		{http.MethodGet, "/api/all"},
	} {
		rec := app.do(t, tc.method, tc.path, "application/json", []byte(`[{"a":1}]`), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
		assert.JSONEq(t, `{"ok":false,"error":"Not logged in"}`, rec.Body.String())
	}

}

func TestJournalFlow(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "Alice@Example.com", "pw-a")

	rec := app.do(t, http.MethodGet, "/api/me", "", nil, alice)
	assert.JSONEq(t, `{"ok":true,"email":"alice@example.com"}`, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/add", "application/json", []byte(`{"date":"2024-05-01","title":"Porto"}`), alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/bulk", "application/json", []byte(`[{"title":"Braga"},{"title":"Faro"}]`), alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"inserted":2}`, rec.Body.String())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "trips.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("title,city\nLisbon trip,Lisbon\n"))
	require.NoError(t, mw.Close())
	rec = app.do(t, http.MethodPost, "/api/bulk", mw.FormDataContentType(), buf.Bytes(), alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"inserted":1}`, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/all", "", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 4)
	var titles []string
	for _, r := range all {
		titles = append(titles, r["title"].(string))
		assert.Equal(t, "alice@example.com", r["email"])
		assert.Equal(t, all[0]["user_id"], r["user_id"])
		assert.NotContains(t, r, "_id")
	}
	assert.NotEmpty(t, all[0]["user_id"])
	assert.Equal(t, []string{"Porto", "Braga", "Faro", "Lisbon trip"}, titles)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `[{"date":"2024-05-01","title":"Porto","user_id":`))

	rec = app.do(t, http.MethodPost, "/api/logout", "", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodGet, "/api/all", "", nil, alice)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersAreIsolated(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice@example.com", "pw-a")
	bob := app.signUp(t, "bob@example.com", "pw-b")

	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/add", "application/json", []byte(`{"title":"alice only"}`), alice).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/add", "application/json", []byte(`{"title":"bob only"}`), bob).Code)

	rec := app.do(t, http.MethodGet, "/api/all", "", nil, alice)
	assert.Contains(t, rec.Body.String(), "alice only")
	assert.NotContains(t, rec.Body.String(), "bob only")

	rec = app.do(t, http.MethodGet, "/api/all", "", nil, bob)
	assert.Contains(t, rec.Body.String(), "bob only")
	assert.NotContains(t, rec.Body.String(), "alice only")
}

func TestBulkRejectionsStoreNothing(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice@example.com", "pw-a")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "trips.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, mw.Close())

	rec := app.do(t, http.MethodPost, "/api/bulk", mw.FormDataContentType(), buf.Bytes(), alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Unsupported file type"}`, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/bulk", "application/json", []byte(`[]`), alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"inserted":0}`, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/all", "", nil, alice)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCORS(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
