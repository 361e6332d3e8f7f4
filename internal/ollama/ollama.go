package ollama

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
)

// Ollama is a provider for Ollama
type Ollama struct {
	baseURL string
	client  *http.Client
}

// New returns a new Ollama provider. An empty baseURL falls back to
// OLLAMA_URL and then to the local default.
func New(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{}}
}

// StreamText streams /api/generate. Text parts are joined into the prompt
// and blob parts are sent as base64 images.
func (o *Ollama) StreamText(ctx context.Context, config providers.StreamRequest) (providers.TextStream, error) {
	var prompt strings.Builder
	images := []string{}
	for _, p := range config.Parts {
		if p.IsBlob() {
			images = append(images, base64.StdEncoding.EncodeToString(p.Data))
			continue
		}
		if prompt.Len() > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(p.Text)
	}

	body := map[string]interface{}{
		"model":  config.Model,
		"prompt": prompt.String(),
		"images": images,
		"stream": true,
		"options": map[string]interface{}{
			"temperature": config.Temperature,
		},
	}
	if config.JSONMode {
		body["format"] = "json"
	}
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(b))
	}

	return &stream{body: resp.Body, dec: json.NewDecoder(resp.Body)}, nil
}

type chunk struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type stream struct {
	body  io.ReadCloser
	dec   *json.Decoder
	done  bool
	usage providers.Usage
}

// Next decodes one NDJSON object per call.
func (s *stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	var c chunk
	if err := s.dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return "", io.EOF
		}
		return "", fmt.Errorf("failed to decode response chunk: %w", err)
	}
	if c.Error != "" {
		return "", fmt.Errorf("ollama: %s", c.Error)
	}
	if c.Done {
		s.done = true
		s.usage = providers.Usage{
			PromptTokens:     c.PromptEvalCount,
			CandidatesTokens: c.EvalCount,
			TotalTokens:      c.PromptEvalCount + c.EvalCount,
		}
	}
	return c.Response, nil
}

func (s *stream) Usage() providers.Usage { return s.usage }

func (s *stream) Close() error { return s.body.Close() }
