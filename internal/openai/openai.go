package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hairvision-ai/hairvision/internal/providers"
	"github.com/hairvision-ai/hairvision/internal/sse"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// OpenAI is a provider for OpenAI compatible chat completion APIs
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a new OpenAI provider. An empty apiKey falls back to
// OPENAI_API_KEY; an empty baseURL to the public API.
func New(apiKey, baseURL string) *OpenAI {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenAI{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{}}
}

// Configured reports whether an API key is present.
func (o *OpenAI) Configured() bool { return o != nil && o.apiKey != "" }

// StreamText streams /chat/completions. All parts go into one user message;
// blob parts become inline image_url entries.
func (o *OpenAI) StreamText(ctx context.Context, config providers.StreamRequest) (providers.TextStream, error) {
	if !o.Configured() {
		return nil, fmt.Errorf("OPENAI_API_KEY: %w", providers.ErrMissingAPIKey)
	}

	content := make([]map[string]interface{}, 0, len(config.Parts))
	for _, p := range config.Parts {
		if p.IsBlob() {
			content = append(content, map[string]interface{}{
				"type": "image_url",
				"image_url": map[string]string{
					"url": "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data),
				},
			})
			continue
		}
		content = append(content, map[string]interface{}{"type": "text", "text": p.Text})
	}

	body := map[string]interface{}{
		"model": config.Model,
		"messages": []map[string]interface{}{
			{"role": "user", "content": content},
		},
		"temperature":    config.Temperature,
		"stream":         true,
		"stream_options": map[string]bool{"include_usage": true},
	}
	if config.JSONMode {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(b))
	}

	return &stream{body: resp.Body, r: sse.NewReader(resp.Body)}, nil
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type stream struct {
	body  io.ReadCloser
	r     *sse.Reader
	done  bool
	usage providers.Usage
}

// Next returns the content delta of one event. Events without content yield
// an empty fragment.
func (s *stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	frame, err := s.r.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return "", io.EOF
		}
		return "", fmt.Errorf("failed to read response stream: %w", err)
	}
	if string(frame.Data) == "[DONE]" {
		s.done = true
		return "", io.EOF
	}

	var c chunk
	if err := json.Unmarshal(frame.Data, &c); err != nil {
		return "", fmt.Errorf("failed to decode response chunk: %w", err)
	}
	if c.Error != nil {
		return "", fmt.Errorf("openai: %s", c.Error.Message)
	}
	if c.Usage != nil {
		s.usage = providers.Usage{
			PromptTokens:     c.Usage.PromptTokens,
			CandidatesTokens: c.Usage.CompletionTokens,
			TotalTokens:      c.Usage.TotalTokens,
		}
	}
	var text strings.Builder
	for _, choice := range c.Choices {
		text.WriteString(choice.Delta.Content)
	}
	return text.String(), nil
}

func (s *stream) Usage() providers.Usage { return s.usage }

func (s *stream) Close() error { return s.body.Close() }
