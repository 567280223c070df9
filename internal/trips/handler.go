package trips

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"journal-service/internal/session"
)

const multipartMemory = 32 << 20

// Handler exposes trip HTTP endpoints.
type Handler struct {
	svc      *Service
	sessions *session.Manager
	maxBytes int64
	log      *zap.Logger
}

// NewHandler wires a handler to the trip service. maxBytes bounds request
// bodies on add and bulk.
func NewHandler(svc *Service, sessions *session.Manager, maxBytes int64, log *zap.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, maxBytes: maxBytes, log: log}
}

// Routes registers the trip routes on r. All of them need a session.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/add", h.sessions.Require(h.Add))
	r.Post("/bulk", h.sessions.Require(h.Bulk))
	r.Get("/all", h.sessions.Require(h.All))
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request, id session.Identity) {
	if h.tooLarge(w, r) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		h.writeErr(w, err)
		return
	}

	rec := NewRecord()
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(body, rec); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	if err := h.svc.Add(r.Context(), id, rec); err != nil {
		h.log.Error("add trip", zap.String("user_id", id.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, AddResponse{OK: true, Message: "Data added"})
}

func (h *Handler) Bulk(w http.ResponseWriter, r *http.Request, id session.Identity) {
	if h.tooLarge(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	u := Upload{ContentType: r.Header.Get("Content-Type"), Body: r.Body}

	if !isJSONContentType(u.ContentType) && strings.HasPrefix(strings.ToLower(u.ContentType), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.writeErr(w, err)
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		if f, fh, err := r.FormFile("file"); err == nil {
			defer f.Close()
			u.File = &FileUpload{Name: fh.Filename, Content: f}
		}
	}

	n, err := h.svc.Import(r.Context(), id, u)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkResponse{OK: true, Inserted: n})
}

func (h *Handler) All(w http.ResponseWriter, r *http.Request, id session.Identity) {
	recs, err := h.svc.List(r.Context(), id)
	if err != nil {
		h.log.Error("list trips", zap.String("user_id", id.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// tooLarge rejects a request whose declared length is over the limit.
// Undeclared lengths are caught while reading.
func (h *Handler) tooLarge(w http.ResponseWriter, r *http.Request) bool {
	if r.ContentLength > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
		return true
	}
	return false
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	var (
		tooLarge *http.MaxBytesError
		parseErr *ParseError
	)
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
	case errors.Is(err, ErrNoData):
		writeError(w, http.StatusBadRequest, "No data")
	case errors.Is(err, ErrUnsupportedFileType):
		writeError(w, http.StatusBadRequest, "Unsupported file type")
	case errors.As(err, &parseErr):
		h.log.Warn("bulk payload rejected", zap.String("source", string(parseErr.Source)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.log.Error("bulk import failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
