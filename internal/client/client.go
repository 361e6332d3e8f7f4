// Package client talks to a running hairvision server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hairvision-ai/hairvision/internal/analysis"
	"github.com/hairvision-ai/hairvision/internal/display"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/sse"
	"github.com/hairvision-ai/hairvision/internal/visualize"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// Client represents a hairvision API client
type Client struct {
	BaseURL    string
	httpClient *http.Client
	// streams have no overall timeout; they end with the context
	streamClient *http.Client
}

// NewClient creates a new client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
	}
}

func (c *Client) sessionURL(code string) string {
	return c.BaseURL + "/session/" + url.PathEscape(code)
}

// Analyze posts four photos and calls onEvent for every frame. It returns the
// terminal event.
func (c *Client) Analyze(ctx context.Context, req analysis.Request, onEvent func(analysis.Event)) (*analysis.Event, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	r := sse.NewReader(resp.Body)
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("stream ended without a result (status %d)", resp.StatusCode)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event stream: %w", err)
		}

		var e analysis.Event
		if err := json.Unmarshal(frame.Data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		if onEvent != nil {
			onEvent(e)
		}
		if e.Terminal() {
			if resp.StatusCode != http.StatusOK {
				return &e, &APIError{Status: resp.StatusCode, Message: e.Error}
			}
			return &e, nil
		}
	}
}

type sessionEnvelope struct {
	Success bool                  `json:"success"`
	Data    models.SessionSummary `json:"data"`
	Error   string                `json:"error"`
}

// GetSession fetches the public projection of a session.
func (c *Client) GetSession(ctx context.Context, code string) (*models.SessionSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionURL(code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.doSession(req)
}

// SetSection moves a session's cursor. A version of 0 skips the
// concurrency check.
func (c *Client) SetSection(ctx context.Context, code string, section display.Section, version int64) (*models.SessionSummary, error) {
	payload := map[string]interface{}{"current_section": section}
	if version > 0 {
		payload["version"] = version
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.sessionURL(code), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doSession(req)
}

// PatchSection satisfies display.Patcher.
func (c *Client) PatchSection(ctx context.Context, code string, section display.Section) error {
	_, err := c.SetSection(ctx, code, section, 0)
	return err
}

func (c *Client) doSession(req *http.Request) (*models.SessionSummary, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var env sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	return &env.Data, nil
}

type visualizeEnvelope struct {
	Success bool                        `json:"success"`
	Data    *models.VisualizationResult `json:"data"`
	Error   string                      `json:"error"`
}

// Visualize requests a preview of one recommendation. With req.SessionCode
// set the server also attaches the image to that session.
func (c *Client) Visualize(ctx context.Context, req visualize.Request) (*models.VisualizationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/visualize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// image generation can outlast the short client timeout
	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var env visualizeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if env.Data == nil {
		return nil, fmt.Errorf("response carried no visualization")
	}
	return env.Data, nil
}

// Follow reads the display feed for code and calls fn for every frame until
// ctx ends, the stream closes or fn returns an error.
func (c *Client) Follow(ctx context.Context, code string, fn func(event string, f display.Frame) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionURL(code)+"/events", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env sessionEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}

	r := sse.NewReader(resp.Body)
	for {
		frame, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read event stream: %w", err)
		}
		var f display.Frame
		if err := json.Unmarshal(frame.Data, &f); err != nil {
			return fmt.Errorf("failed to decode frame: %w", err)
		}
		if err := fn(frame.Event, f); err != nil {
			return err
		}
	}
}
