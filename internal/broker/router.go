package broker

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// buildRouter creates the HTTP router for the pre-upgrade paths.
//
// Upgrade requests become websocket connections on any path; plain
// requests are routed normally.
func (b *Broker) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(b.recoveryMiddleware)
	r.Use(b.upgradeMiddleware)
	r.Use(b.loggingMiddleware)

	r.Get("/Systems", b.handleSystems)
	if b.journal != nil {
		r.Get("/History/{entityID}", b.handleHistory)
	}

	r.NotFound(b.handleNotFound)
	r.MethodNotAllowed(b.handleNotFound)

	return r
}

// upgradeMiddleware hands websocket handshakes to the broker before any
// middleware wraps the ResponseWriter, so the connection can be hijacked.
func (b *Broker) upgradeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			b.handleWebSocket(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each plain HTTP request.
func (b *Broker) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		b.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// recoveryMiddleware catches panics in handlers and returns a 500 response.
func (b *Broker) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				b.logger.Error("panic recovered in HTTP handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeInternalError(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// handleSystems returns every registered system.
func (b *Broker) handleSystems(w http.ResponseWriter, _ *http.Request) {
	systems, err := b.codec.Encode(b.Systems())
	if err != nil {
		b.logger.Error("encoding systems failed", "error", err)
		writeInternalError(w, "failed to encode systems")
		return
	}
	writeJSON(w, http.StatusOK, systems)
}

// handleHistory returns journal rows for one entity, newest first.
// The optional limit query parameter caps the row count.
func (b *Broker) handleHistory(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	limit := b.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := b.journal.History(r.Context(), entityID, limit)
	if err != nil {
		b.logger.Error("reading journal failed", "entity_id", entityID, "error", err)
		writeInternalError(w, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleNotFound answers every unrouted plain request.
func (b *Broker) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeNotFound(w, "Path not found")
}
