package visualize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairvision-ai/hairvision/internal/datauri"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/providers"
)

type fakeGenerator struct {
	img *providers.Part
	err error
	got providers.ImageRequest
}

func (f *fakeGenerator) GenerateImage(_ context.Context, req providers.ImageRequest) (*providers.Part, error) {
	f.got = req
	return f.img, f.err
}

func request() Request {
	return Request{
		RecommendationID:     "rec_1",
		OriginalPhotoDataURL: datauri.Format("image/jpeg", []byte("original")),
		OriginalPhotoAngle:   models.AngleFront,
		Prompt: &models.VisualizationPrompt{
			Task:                      models.VisualizationTask{Type: "image_to_image", Strength: 0.7},
			TargetModification:        models.TargetModification{HairStyle: "Textured Crop", KeyElements: []string{"mid_fade", "4cm on top"}},
			NegativePromptConstraints: []string{"No beard changes"},
		},
	}
}

func TestStrengthLabel(t *testing.T) {
	tests := []struct {
		strength float64
		want     string
	}{
		{0, "subtle refinement"},
		{0.6, "subtle refinement"},
		{0.65, "moderate change"},
		{0.74, "moderate change"},
		{0.75, "significant transformation"},
		{1, "significant transformation"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StrengthLabel(tt.strength), "strength %v", tt.strength)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(*request().Prompt)
	assert.Contains(t, p, "Transform the subject's hair to a Textured Crop hairstyle.")
	assert.Contains(t, p, "- mid_fade\n")
	assert.Contains(t, p, "- 4cm on top\n")
	assert.Contains(t, p, "Strength: 0.7 (moderate change)")
	assert.Contains(t, p, "- No beard changes\n")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"missing id", func(r *Request) { r.RecommendationID = "" }, ErrMissingFields},
		{"missing photo", func(r *Request) { r.OriginalPhotoDataURL = "" }, ErrMissingFields},
		{"missing prompt", func(r *Request) { r.Prompt = nil }, ErrMissingFields},
		{"bad angle", func(r *Request) { r.OriginalPhotoAngle = "back" }, ErrAngle},
		{"strength high", func(r *Request) { r.Prompt.Task.Strength = 1.2 }, ErrStrength},
		{"strength negative", func(r *Request) { r.Prompt.Task.Strength = -0.1 }, ErrStrength},
		{"bad photo", func(r *Request) { r.OriginalPhotoDataURL = "data:text/plain;base64,aGk=" }, datauri.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request()
			tt.mutate(&req)
			_, err := req.Validate()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVisualizeGenerated(t *testing.T) {
	gen := &fakeGenerator{img: &providers.Part{MIMEType: "image/png", Data: []byte("new")}}
	r := New(gen, Config{Model: "image-model"})
	r.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	res, err := r.Visualize(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "rec_1", res.RecommendationID)
	assert.Equal(t, models.AngleFront, res.OriginalPhotoAngle)
	assert.Equal(t, datauri.Format("image/png", []byte("new")), res.GeneratedImageURL)
	assert.Equal(t, "Textured Crop", res.Prompt.TargetModification.HairStyle)
	assert.Equal(t, 2026, res.CreatedAt.Year())

	assert.Equal(t, "image-model", gen.got.Model)
	assert.Equal(t, "3:4", gen.got.AspectRatio)
	assert.Equal(t, "1K", gen.got.ImageSize)
	assert.Equal(t, "image/jpeg", gen.got.Source.MIMEType)
	assert.Equal(t, []byte("original"), gen.got.Source.Data)
}

func TestVisualizeFallsBackToOriginal(t *testing.T) {
	req := request()
	res, err := New(&fakeGenerator{}, Config{}).Visualize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.OriginalPhotoDataURL, res.GeneratedImageURL)
}

func TestVisualizeUpstreamError(t *testing.T) {
	gen := &fakeGenerator{err: providers.ErrMissingAPIKey}
	_, err := New(gen, Config{}).Visualize(context.Background(), request())
	assert.ErrorIs(t, err, providers.ErrMissingAPIKey)

	gen = &fakeGenerator{err: errors.New("503 overloaded")}
	_, err = New(gen, Config{}).Visualize(context.Background(), request())
	assert.ErrorContains(t, err, "503 overloaded")
}
