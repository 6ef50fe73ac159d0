// Package handler exposes the event webhook and the operational endpoints
// over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/events"
	"github.com/FACorreiaa/visitor-arrivals/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// Dispatcher routes decoded objects.
type Dispatcher interface {
	Dispatch(ctx context.Context, objects []events.ObjectCreated) error
}

// EventsHandler accepts S3-style notifications on POST /events.
type EventsHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewEventsHandler creates the webhook handler.
func NewEventsHandler(dispatcher Dispatcher, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{dispatcher: dispatcher, logger: logger}
}

type response struct {
	Objects int    `json:"objects,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, response{Error: "request body too large"})
		return
	}

	objects, err := events.Decode(body)
	if err != nil {
		h.logger.Warn("rejecting notification", slog.Any("error", err))
		writeJSON(w, http.StatusBadRequest, response{Error: err.Error()})
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), objects); err != nil {
		h.logger.Error("notification handling failed", slog.Any("error", err))
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response{Error: "failed to process notification"})
		return
	}

	writeJSON(w, http.StatusAccepted, response{Objects: len(objects)})
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	EnableMetrics  bool
}

// New builds the server mux: the webhook, a health check and optionally the
// Prometheus endpoint, wrapped in CORS handling.
func New(dispatcher Dispatcher, opts Options, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /events", NewEventsHandler(dispatcher, logger))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.EnableMetrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})
	return c.Handler(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
