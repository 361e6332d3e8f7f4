package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hairvision-ai/hairvision/internal/datauri"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/providers"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
	"github.com/hairvision-ai/hairvision/internal/visualize"
)

type visualizeResponse struct {
	Success bool                        `json:"success"`
	Data    *models.VisualizationResult `json:"data"`
}

func (h *Handler) HandleVisualize(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context())

	var req visualize.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.visualizer.Visualize(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, visualize.ErrMissingFields),
		errors.Is(err, visualize.ErrStrength),
		errors.Is(err, visualize.ErrAngle),
		errors.Is(err, datauri.ErrMalformed):
		h.writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, providers.ErrMissingAPIKey):
		h.writeError(w, r, "GEMINI_API_KEY not configured", http.StatusInternalServerError)
		return
	default:
		h.writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}

	if req.SessionCode != "" && h.store != nil && !sessioncode.IsDemo(req.SessionCode) {
		code := sessioncode.Normalize(req.SessionCode)
		if _, err := h.store.AttachVisualization(r.Context(), code, req.RecommendationID, result.GeneratedImageURL); err != nil {
			log.Warn("Failed to attach visualization", "session_code", code, "err", err)
		}
	}

	h.writeJSON(w, http.StatusOK, visualizeResponse{Success: true, Data: result})
}
