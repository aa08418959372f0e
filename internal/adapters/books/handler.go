// Package books serves the book collection over HTTP.
package books

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bookshelf/internal/core"
	"bookshelf/internal/logging"
	"bookshelf/pkg/domain"
)

// WelcomeMessage is served on GET /.
const WelcomeMessage = "Welcome to the Books API! Use /records to get started."

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Collection paths. /books is kept as an alias of /records.
var collectionPaths = []string{"/records", "/books"}

// Service is the set of book operations the handler needs.
type Service interface {
	List(ctx context.Context) (domain.Collection, error)
	ListAvailable(ctx context.Context) (domain.Collection, error)
	Create(ctx context.Context, req domain.CreateBookRequest) (domain.Book, error)
	Update(ctx context.Context, id int, req domain.UpdateBookRequest) (domain.Book, error)
	Delete(ctx context.Context, id int) (domain.Book, error)
}

// Handler provides HTTP access to the book collection.
type Handler struct {
	Books  Service
	Logger *zap.Logger
}

// NewHandler constructs a book HTTP handler.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{Books: svc, Logger: logging.OrNop(logger)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Books == nil {
		writeError(w, http.StatusInternalServerError, "book service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == "" {
		h.handleRoot(w, r)
		return
	}
	for _, prefix := range collectionPaths {
		switch {
		case path == prefix:
			h.handleCollection(w, r)
			return
		case strings.HasPrefix(path, prefix+"/"):
			h.handleMember(w, r, strings.TrimPrefix(path, prefix+"/"))
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, WelcomeMessage)
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		books, err := h.Books.List(r.Context())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, books)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleMember(w http.ResponseWriter, r *http.Request, segment string) {
	if strings.Contains(segment, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if segment == "available" && r.Method == http.MethodGet {
		books, err := h.Books.ListAvailable(r.Context())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, books)
		return
	}
	switch r.Method {
	case http.MethodPut, http.MethodDelete:
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.Atoi(segment)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}
	if r.Method == http.MethodPut {
		h.handleUpdate(w, r, id)
		return
	}
	removed, err := h.Books.Delete(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	req, err := domain.DecodeCreateBookRequest(body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	created, err := h.Books.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id int) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	req, err := domain.DecodeUpdateBookRequest(body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	updated, err := h.Books.Update(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return nil, false
	}
	return body, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, core.ErrStorage):
		writeError(w, http.StatusInternalServerError, core.ErrStorage.Error())
	default:
		logging.FromContext(r.Context(), h.logger()).Error("unhandled book service error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) logger() *zap.Logger {
	return logging.OrNop(h.Logger)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
