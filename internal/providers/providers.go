package providers

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a provider has no credential configured.
var ErrMissingAPIKey = errors.New("API key not configured")

// Part is one piece of multimodal input: either text or inline bytes.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart returns a text-only part.
func TextPart(text string) Part { return Part{Text: text} }

// BlobPart returns an inline data part.
func BlobPart(mimeType string, data []byte) Part { return Part{MIMEType: mimeType, Data: data} }

// IsBlob reports whether p carries inline data.
func (p Part) IsBlob() bool { return len(p.Data) > 0 }

// Usage reports token counts for one upstream call.
type Usage struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}

// StreamRequest represents the configuration for a streaming text call
type StreamRequest struct {
	Model       string
	Temperature float64
	Parts       []Part
	// JSONMode asks the model for application/json output when it supports it.
	JSONMode bool
}

// TextStream yields incremental text fragments. Next returns io.EOF once the
// upstream stream has finished.
type TextStream interface {
	Next() (string, error)
	Usage() Usage
	Close() error
}

// TextStreamer opens streaming text generation calls.
type TextStreamer interface {
	StreamText(ctx context.Context, req StreamRequest) (TextStream, error)
}

// ImageRequest represents the configuration for a single image generation call
type ImageRequest struct {
	Model       string
	Prompt      string
	Source      Part
	AspectRatio string
	ImageSize   string
}

// ImageGenerator issues one non-streaming image generation call. It returns
// a nil part, not an error, when the response contains no image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*Part, error)
}
