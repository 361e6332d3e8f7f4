package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairvision-ai/hairvision/internal/providers"
)

func drain(t *testing.T, s providers.TextStream) string {
	t.Helper()
	var text string
	for {
		frag, err := s.Next()
		if err == io.EOF {
			return text
		}
		require.NoError(t, err)
		text += frag
	}
}

func TestStreamText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"{\"a\":"}}]}

data: {"choices":[{"delta":{"content":"1}"}}]}

data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}

data: [DONE]

`)
	}))
	defer srv.Close()

	s, err := New("sk-test", srv.URL+"/v1/").StreamText(context.Background(), providers.StreamRequest{
		Model:    "gpt-4o",
		JSONMode: true,
		Parts: []providers.Part{
			providers.TextPart("analyze"),
			providers.BlobPart("image/png", []byte("img")),
		},
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, `{"a":1}`, drain(t, s))
	assert.Equal(t, providers.Usage{PromptTokens: 12, CandidatesTokens: 3, TotalTokens: 15}, s.Usage())

	assert.Equal(t, "gpt-4o", got["model"])
	assert.Equal(t, true, got["stream"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	content := got["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "analyze", content[0].(map[string]any)["text"])
	image := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,aW1n", image["url"])
}

func TestStreamTextErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {\"error\":{\"message\":\"rate limited\"}}\n\n")
	}))
	defer srv.Close()

	s, err := New("sk-test", srv.URL).StreamText(context.Background(), providers.StreamRequest{Model: "x"})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Next()
	assert.ErrorContains(t, err, "rate limited")
}

func TestStreamTextNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New("sk-test", srv.URL).StreamText(context.Background(), providers.StreamRequest{Model: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestStreamTextWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New("", "").StreamText(context.Background(), providers.StreamRequest{Model: "x"})
	assert.True(t, errors.Is(err, providers.ErrMissingAPIKey))
}
