package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hairvision-ai/hairvision/internal/analysis"
	"github.com/hairvision-ai/hairvision/internal/sse"
)

// HandleAnalyze relays one analysis as an event stream. Requests that fail
// validation get a single error frame and no stream.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context())

	fail := func(status int, message string) {
		log.Warn("Rejected analysis request", "status", status, "error", message)
		if err := sse.WriteSingle(w, status, analysis.Failure(message)); err != nil {
			log.Error("Unable to write error frame", "err", err)
		}
	}

	if err := h.credentials(); err != nil {
		fail(http.StatusInternalServerError, err.Error())
		return
	}

	var req analysis.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		fail(http.StatusBadRequest, "Invalid JSON body")
		return
	}

	in, err := req.Prepare()
	if err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}

	stream := sse.NewWriter(w)
	if err := stream.Open(); err != nil {
		log.Error("Unable to open event stream", "err", err)
		return
	}

	log.Info("Starting analysis", "session_id", in.SessionID)
	err = h.relay.Run(r.Context(), in, func(e analysis.Event) error {
		return stream.Data(e)
	})
	switch {
	case err == nil:
	case errors.Is(err, r.Context().Err()):
		log.Info("Client disconnected before analysis finished")
	default:
		log.Warn("Analysis stream ended early", "err", err)
	}
}
