package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hairvision-ai/hairvision/internal/datauri"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/providers"
)

const (
	previewChars = 80
	rawChars     = 500
)

var ErrMissingFields = errors.New("missing sessionId or photos")

// MissingPhotoError names the first angle without a photo.
type MissingPhotoError struct {
	Angle models.PhotoAngle
}

func (e *MissingPhotoError) Error() string {
	return fmt.Sprintf("missing photo for angle: %s", e.Angle)
}

// Request is the POST /analyze body.
type Request struct {
	SessionID string           `json:"sessionId"`
	Photos    *models.PhotoSet `json:"photos"`
}

// Input is a validated request with decoded photos in upstream order.
type Input struct {
	SessionID string
	Photos    []datauri.Image
}

// Prepare validates r and decodes its photos. Any error here is a
// validation failure reported before a stream is opened.
func (r Request) Prepare() (*Input, error) {
	if r.SessionID == "" || r.Photos == nil {
		return nil, ErrMissingFields
	}
	if angle := r.Photos.Missing(); angle != "" {
		return nil, &MissingPhotoError{Angle: angle}
	}

	in := &Input{SessionID: r.SessionID, Photos: make([]datauri.Image, 0, len(models.Angles))}
	for _, angle := range models.Angles {
		img, err := datauri.Parse(r.Photos.Get(angle))
		if err != nil {
			return nil, fmt.Errorf("invalid %s photo: %w", angle, err)
		}
		in.Photos = append(in.Photos, *img)
	}
	return in, nil
}

// Emitter writes one event to the client.
type Emitter func(Event) error

// PersistFunc stores a finished result and returns its session code.
type PersistFunc func(ctx context.Context, result *models.AnalysisResult) (string, error)

type Config struct {
	// Provider is the name shown in the first status message.
	Provider    string
	Model       string
	Temperature float64
	JSONMode    bool
}

// Relay streams one analysis call to the client and assembles the result.
type Relay struct {
	streamer providers.TextStreamer
	cfg      Config
	persist  PersistFunc
	now      func() time.Time
	newID    func() string
}

// NewRelay returns a relay. persist may be nil when no store is configured.
func NewRelay(streamer providers.TextStreamer, cfg Config, persist PersistFunc) *Relay {
	if cfg.Provider == "" {
		cfg.Provider = "Gemini"
	}
	return &Relay{
		streamer: streamer,
		cfg:      cfg,
		persist:  persist,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run emits status and chunk events followed by exactly one terminal event.
// It returns an error only when the client could not be written to or went
// away; upstream and parse failures are reported as error events.
func (r *Relay) Run(ctx context.Context, in *Input, emit Emitter) error {
	log := slog.Default().With("session_id", in.SessionID, "model", r.cfg.Model)

	send := func(e Event) error {
		if err := emit(e); err != nil {
			return fmt.Errorf("failed to write %s event: %w", e.Type, err)
		}
		return nil
	}

	if err := send(Status(fmt.Sprintf("Initializing %s...", r.cfg.Provider))); err != nil {
		return err
	}
	if err := send(Status(fmt.Sprintf("Preparing %d photos...", len(in.Photos)))); err != nil {
		return err
	}

	parts := []providers.Part{providers.TextPart(SystemPrompt), providers.TextPart(AngleLegend)}
	for _, img := range in.Photos {
		parts = append(parts, providers.BlobPart(img.MIMEType, img.Data))
	}

	if err := send(Status("Starting analysis...")); err != nil {
		return err
	}

	start := time.Now()
	stream, err := r.streamer.StreamText(ctx, providers.StreamRequest{
		Model:       r.cfg.Model,
		Temperature: r.cfg.Temperature,
		Parts:       parts,
		JSONMode:    r.cfg.JSONMode,
	})
	if err != nil {
		log.Error("Failed to start analysis stream", "err", err)
		return send(Failure(err.Error()))
	}
	defer stream.Close()

	var (
		full       strings.Builder
		chunks     int
		totalChars int
	)
	for {
		frag, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Client went away during analysis", "chunks", chunks)
				return ctx.Err()
			}
			log.Error("Analysis stream failed", "err", err, "chunks", chunks)
			return send(Failure(err.Error()))
		}
		if frag == "" {
			continue
		}

		full.WriteString(frag)
		chunks++
		totalChars += utf8.RuneCountInString(frag)
		if err := send(Event{
			Type:       EventChunk,
			ChunkNum:   chunks,
			TotalChars: totalChars,
			Preview:    strings.ReplaceAll(tail(full.String(), previewChars), "\n", " "),
		}); err != nil {
			return err
		}
	}

	usage := stream.Usage()
	log.Info("Analysis stream finished",
		"chunks", chunks,
		"chars", totalChars,
		"prompt_tokens", usage.PromptTokens,
		"candidates_tokens", usage.CandidatesTokens,
		"total_tokens", usage.TotalTokens,
		"duration", time.Since(start),
	)

	if err := send(Status("Parsing JSON response...")); err != nil {
		return err
	}

	text := full.String()
	out, err := Parse(text)
	if err != nil {
		log.Warn("Failed to parse analysis", "err", err)
		ev := Failure(err.Error())
		if !errors.Is(err, ErrTooFewRecommendations) {
			raw := head(text, rawChars)
			ev.Raw = &raw
		}
		return send(ev)
	}

	result := &models.AnalysisResult{
		ID:                   r.newID(),
		SessionID:            in.SessionID,
		GeometricAnalysis:    out.GeometricAnalysis,
		CompatibilityMatrix:  out.CompatibilityMatrix,
		Recommendations:      out.Recommendations,
		VisualizationPrompts: out.VisualizationPrompts,
		CreatedAt:            r.now().UTC(),
	}

	complete := Event{Type: EventComplete, Data: result}
	if r.persist != nil {
		code, err := r.persist(ctx, result)
		if err != nil {
			// the browser copy is authoritative; a failed insert only loses the remote display
			log.Warn("Failed to persist analysis", "err", err)
		} else {
			complete.SessionCode = code
			log.Info("Persisted analysis", "session_code", code)
		}
	}
	return send(complete)
}
