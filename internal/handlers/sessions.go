package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hairvision-ai/hairvision/internal/display"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
	"github.com/hairvision-ai/hairvision/internal/sse"
	"github.com/hairvision-ai/hairvision/internal/store"
)

const (
	msgNotConfigured = "Database not configured"
	msgNotFound      = "Session not found"
	msgPatchFailed   = "Session not found or update failed"
)

type sessionResponse struct {
	Success bool                  `json:"success"`
	Data    models.SessionSummary `json:"data"`
}

// PatchRequest is the PATCH /session/{code} body. Version is optional; when
// set the write only succeeds against that version.
type PatchRequest struct {
	CurrentSection string `json:"current_section"`
	Version        *int64 `json:"version,omitempty"`
}

func codeParam(r *http.Request) string {
	return sessioncode.Normalize(chi.URLParam(r, "code"))
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	if err := store.Guard(h.store); err != nil {
		h.writeError(w, r, msgNotConfigured, http.StatusServiceUnavailable)
		return
	}

	code := codeParam(r)
	session, err := h.store.Get(r.Context(), code)
	if err != nil {
		loggerFrom(r.Context()).Debug("Session lookup failed", "session_code", code, "err", err)
		h.writeError(w, r, msgNotFound, http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, sessionResponse{Success: true, Data: session.Summary()})
}

func (h *Handler) HandlePatchSession(w http.ResponseWriter, r *http.Request) {
	if err := store.Guard(h.store); err != nil {
		h.writeError(w, r, msgNotConfigured, http.StatusServiceUnavailable)
		return
	}

	var req PatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.writeError(w, r, "Invalid JSON", http.StatusBadRequest)
		return
	}

	section, err := display.Parse(req.CurrentSection)
	if err != nil {
		loggerFrom(r.Context()).Warn("Rejected section", "section", req.CurrentSection)
		h.writeJSON(w, http.StatusBadRequest, errorBody{
			Error:         "Invalid section",
			ValidSections: display.ValidSections(),
		})
		return
	}

	var expect int64
	if req.Version != nil {
		expect = *req.Version
	}

	code := codeParam(r)
	session, err := h.store.PatchSection(r.Context(), code, string(section), expect)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrVersionConflict):
		h.writeError(w, r, "Session was changed by another controller", http.StatusConflict)
		return
	default:
		loggerFrom(r.Context()).Warn("Section update failed", "session_code", code, "err", err)
		h.writeError(w, r, msgPatchFailed, http.StatusNotFound)
		return
	}

	loggerFrom(r.Context()).Info("Section updated", "session_code", code, "section", section, "version", session.Version)
	h.writeJSON(w, http.StatusOK, sessionResponse{Success: true, Data: session.Summary()})
}

// HandleSessionEvents streams the display state for a code: one snapshot
// frame, then an update frame per change. Update frames carry the result only
// when it was replaced.
func (h *Handler) HandleSessionEvents(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context())
	code := codeParam(r)

	var src display.Source
	switch {
	case sessioncode.IsDemo(code):
		src = display.DemoSource{}
	case h.store == nil:
		h.writeError(w, r, msgNotConfigured, http.StatusServiceUnavailable)
		return
	default:
		src = h.store
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	viewer := display.NewViewer(src, code, h.viewerOpts...)
	done := make(chan error, 1)
	go func() { done <- viewer.Run(ctx) }()

	select {
	case <-viewer.Updates():
	case err := <-done:
		// Run only returns after signalling; keep the result for the loop below.
		done <- err
	case <-ctx.Done():
		return
	}

	frame := viewer.Frame()
	if frame.State == display.StateFailed {
		h.writeError(w, r, msgNotFound, http.StatusNotFound)
		return
	}

	stream := sse.NewWriter(w)
	if err := stream.Open(); err != nil {
		log.Error("Unable to open event stream", "err", err)
		return
	}
	if err := stream.Event("snapshot", frame); err != nil {
		return
	}
	lastRev := frame.ResultRev

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-done:
			if err != nil {
				log.Warn("Display feed ended", "session_code", code, "err", err)
			}
			return
		case <-keepAlive.C:
			if err := stream.Comment("keep-alive"); err != nil {
				return
			}
		case <-viewer.Updates():
			f := viewer.Frame()
			if f.ResultRev == lastRev {
				f.Result = nil
			}
			lastRev = f.ResultRev
			if err := stream.Event("update", f); err != nil {
				log.Debug("Display client went away", "session_code", code, "err", err)
				return
			}
		}
	}
}
