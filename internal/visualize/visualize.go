// Package visualize renders a preview of a recommended hairstyle on one of
// the captured photos.
package visualize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hairvision-ai/hairvision/internal/datauri"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/providers"
)

const (
	DefaultAspectRatio = "3:4"
	DefaultImageSize   = "1K"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrStrength      = errors.New("prompt strength must be between 0 and 1")
	ErrAngle         = errors.New("unknown photo angle")
)

// Request is the POST /visualize body. SessionCode is optional; when set the
// preview is also attached to the stored session.
type Request struct {
	RecommendationID     string                      `json:"recommendationId"`
	OriginalPhotoDataURL string                      `json:"originalPhotoDataUrl"`
	OriginalPhotoAngle   models.PhotoAngle           `json:"originalPhotoAngle"`
	Prompt               *models.VisualizationPrompt `json:"prompt"`
	SessionCode          string                      `json:"sessionCode,omitempty"`
}

// Validate checks the request shape and decodes the source photo.
func (r Request) Validate() (*datauri.Image, error) {
	if r.RecommendationID == "" || r.OriginalPhotoDataURL == "" || r.OriginalPhotoAngle == "" || r.Prompt == nil {
		return nil, ErrMissingFields
	}
	if !r.OriginalPhotoAngle.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrAngle, r.OriginalPhotoAngle)
	}
	if s := r.Prompt.Task.Strength; s < 0 || s > 1 {
		return nil, fmt.Errorf("%w, got %v", ErrStrength, s)
	}
	return datauri.Parse(r.OriginalPhotoDataURL)
}

// StrengthLabel names the band a transformation strength falls in.
func StrengthLabel(strength float64) string {
	switch {
	case strength < 0.65:
		return "subtle refinement"
	case strength < 0.75:
		return "moderate change"
	default:
		return "significant transformation"
	}
}

// BuildPrompt renders the instruction text sent alongside the photo.
func BuildPrompt(p models.VisualizationPrompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transform the subject's hair to a %s hairstyle.\n\n", p.TargetModification.HairStyle)

	b.WriteString("Key characteristics to achieve:\n")
	for _, e := range p.TargetModification.KeyElements {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	for _, d := range p.MicroDetails {
		fmt.Fprintf(&b, "- %s\n", d)
	}

	b.WriteString("\nRequirements:\n")
	b.WriteString("- Keep the face, skin tone and identity of the subject exactly as they are\n")
	b.WriteString("- Keep the lighting and background of the original photo\n")
	b.WriteString("- The hair must look natural and freshly cut by a professional\n")
	fmt.Fprintf(&b, "- Strength: %v (%s)\n", p.Task.Strength.Float64(), StrengthLabel(p.Task.Strength.Float64()))
	if scene := p.GlobalContext.SceneDescription; scene != "" {
		fmt.Fprintf(&b, "- Scene: %s\n", scene)
	}

	b.WriteString("\nDo NOT:\n")
	b.WriteString("- Change facial features or expression\n")
	b.WriteString("- Change skin tone or complexion\n")
	b.WriteString("- Change clothing or background\n")
	b.WriteString("- Use unnatural hair colors unless asked to\n")
	for _, c := range p.NegativePromptConstraints {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	return b.String()
}

type Config struct {
	Model       string
	AspectRatio string
	ImageSize   string
}

// Requester issues one image generation call per request.
type Requester struct {
	gen providers.ImageGenerator
	cfg Config
	now func() time.Time
}

func New(gen providers.ImageGenerator, cfg Config) *Requester {
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = DefaultAspectRatio
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = DefaultImageSize
	}
	return &Requester{gen: gen, cfg: cfg, now: time.Now}
}

// Visualize returns the generated preview, or the original photo unchanged
// when the model answered without an image.
func (r *Requester) Visualize(ctx context.Context, req Request) (*models.VisualizationResult, error) {
	src, err := req.Validate()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	img, err := r.gen.GenerateImage(ctx, providers.ImageRequest{
		Model:       r.cfg.Model,
		Prompt:      BuildPrompt(*req.Prompt),
		Source:      providers.BlobPart(src.MIMEType, src.Data),
		AspectRatio: r.cfg.AspectRatio,
		ImageSize:   r.cfg.ImageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	url := req.OriginalPhotoDataURL
	if img != nil {
		url = datauri.Format(img.MIMEType, img.Data)
	} else {
		slog.Warn("Image model returned no image, using original photo",
			"recommendation_id", req.RecommendationID, "angle", req.OriginalPhotoAngle)
	}
	slog.Info("Visualization finished",
		"recommendation_id", req.RecommendationID,
		"generated", img != nil,
		"duration", time.Since(start),
	)

	return &models.VisualizationResult{
		RecommendationID:   req.RecommendationID,
		OriginalPhotoAngle: req.OriginalPhotoAngle,
		GeneratedImageURL:  url,
		Prompt:             *req.Prompt,
		CreatedAt:          r.now().UTC(),
	}, nil
}
