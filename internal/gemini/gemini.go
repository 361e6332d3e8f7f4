package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/hairvision-ai/hairvision/internal/providers"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customises a Gemini provider.
type Option func(*Gemini)

// WithBaseURL points the REST calls at another host (used by tests).
func WithBaseURL(u string) Option {
	return func(g *Gemini) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the client used for REST calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gemini) { g.httpClient = c }
}

// New returns a new Gemini provider
func New(apiKey string, opts ...Option) *Gemini {
	g := &Gemini{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		// image generation regularly takes longer than a minute
		httpClient: &http.Client{Timeout: 3 * time.Minute},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Configured reports whether an API key is present.
func (g *Gemini) Configured() bool { return g != nil && g.apiKey != "" }

// StreamText opens a streaming generateContent call.
func (g *Gemini) StreamText(ctx context.Context, req providers.StreamRequest) (providers.TextStream, error) {
	if !g.Configured() {
		return nil, fmt.Errorf("GEMINI_API_KEY: %w", providers.ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := client.GenerativeModel(req.Model)
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}

	return &textStream{
		client: client,
		iter:   model.GenerateContentStream(ctx, toGenaiParts(req.Parts)...),
	}, nil
}

func toGenaiParts(parts []providers.Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsBlob() {
			out = append(out, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
			continue
		}
		out = append(out, genai.Text(p.Text))
	}
	return out
}

type textStream struct {
	client *genai.Client
	iter   *genai.GenerateContentResponseIterator
	usage  providers.Usage
}

func (s *textStream) Next() (string, error) {
	resp, err := s.iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("failed to read gemini stream: %w", err)
	}
	if md := resp.UsageMetadata; md != nil {
		s.usage = providers.Usage{
			PromptTokens:     int(md.PromptTokenCount),
			CandidatesTokens: int(md.CandidatesTokenCount),
			TotalTokens:      int(md.TotalTokenCount),
		}
	}
	return responseText(resp), nil
}

func (s *textStream) Usage() providers.Usage { return s.usage }

func (s *textStream) Close() error { return s.client.Close() }

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
