package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hairvision-ai/hairvision/internal/analysis"
	"github.com/hairvision-ai/hairvision/internal/display"
	"github.com/hairvision-ai/hairvision/internal/providers"
	"github.com/hairvision-ai/hairvision/internal/store"
	"github.com/hairvision-ai/hairvision/internal/visualize"
)

// Four photos as base64 data URIs comfortably fit.
const maxBodyBytes = 40 << 20

// Options wires the handler. Store may be nil; the session endpoints then
// answer 503 and analysis completes without a session code.
type Options struct {
	Streamer  providers.TextStreamer
	Images    providers.ImageGenerator
	Analysis  analysis.Config
	Visualize visualize.Config
	Store     store.Store

	// Credentials reports a missing upstream key before any work is done.
	Credentials func() error

	// ViewerOptions apply to every display event stream.
	ViewerOptions []display.ViewerOption
	KeepAlive     time.Duration
}

type Handler struct {
	relay       *analysis.Relay
	visualizer  *visualize.Requester
	store       store.Store
	credentials func() error
	viewerOpts  []display.ViewerOption
	keepAlive   time.Duration
	policy      *bluemonday.Policy
}

func New(opts Options) *Handler {
	var persist analysis.PersistFunc
	if opts.Store != nil {
		persist = store.ResultPersister(opts.Store, string(display.SectionScanComplete))
	}
	credentials := opts.Credentials
	if credentials == nil {
		credentials = func() error { return nil }
	}
	keepAlive := opts.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &Handler{
		relay:       analysis.NewRelay(opts.Streamer, opts.Analysis, persist),
		visualizer:  visualize.New(opts.Images, opts.Visualize),
		store:       opts.Store,
		credentials: credentials,
		viewerOpts:  opts.ViewerOptions,
		keepAlive:   keepAlive,
		policy:      bluemonday.StrictPolicy(),
	}
}

type loggerKey struct{}

// requestLogger puts a logger carrying the request id on the context.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.Default().With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger)))
		logger.Info("Request handled", "status", ww.Status(), "bytes", ww.BytesWritten(), "duration", time.Since(start))
	})
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

type errorBody struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error"`
	ValidSections []string `json:"validSections,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	log := loggerFrom(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error(message, "status", code)
	} else {
		log.Warn(message, "status", code)
	}
	h.writeJSON(w, code, errorBody{Error: message})
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		loggerFrom(r.Context()).Error("Unable to write healthcheck", "err", err)
	}
}
