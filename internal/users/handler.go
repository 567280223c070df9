package users

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"journal-service/internal/session"
)

// clientErrors are answered with 400 and a fixed message.
var clientErrors = []struct {
	err error
	msg string
}{
	{ErrMissingCredentials, "Email and password are required"},
	{ErrEmailTaken, "Email already registered"},
	{ErrNotFound, "User not found"},
	{ErrWrongPassword, "Wrong password"},
}

// Handler exposes account HTTP endpoints.
type Handler struct {
	svc      *Service
	sessions *session.Manager
	log      *zap.Logger
}

// NewHandler wires a handler to the user service.
func NewHandler(svc *Service, sessions *session.Manager, log *zap.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, log: log}
}

// Routes registers the account routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Register(r.Context(), c)
	if err != nil {
		h.writeErr(w, "register", err)
		return
	}
	writeJSON(w, http.StatusOK, EmailResponse{OK: true, Email: &u.Email})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Login(r.Context(), c)
	if err != nil {
		h.writeErr(w, "login", err)
		return
	}
	if err := h.sessions.Start(r.Context(), w, session.Identity{UserID: u.ID, Email: u.Email}); err != nil {
		h.writeErr(w, "start session", err)
		return
	}
	writeJSON(w, http.StatusOK, EmailResponse{OK: true, Email: &u.Email})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), w, r); err != nil {
		// The cookie is already cleared; a stale store entry expires on its own.
		h.log.Warn("logout: drop session", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.Resolve(r)
	if !ok {
		writeJSON(w, http.StatusOK, EmailResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, EmailResponse{OK: true, Email: &id.Email})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (Credentials, bool) {
	var c Credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
		return c, false
	}
	return c, true
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": ce.msg})
			return
		}
	}
	h.log.Error(op, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
