package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.NotEmpty(t, req.Model)

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func TestCompleteOK(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "generated text")
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL))
	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "generated text", out)
}

func TestCompleteNotConfigured(t *testing.T) {
	c := New("")
	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestCompleteNon2xx(t *testing.T) {
	srv := completionServer(t, http.StatusBadGateway, "")
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL))
	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err, "missing content is an empty string, not an error")
	require.Equal(t, "", out)
}

func TestCompleteVisionMessageShape(t *testing.T) {
	var req chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithModels("", "vision-model"))
	img := Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	out, err := c.CompleteVision(context.Background(), "what is this", img)
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, "vision-model", req.Model)

	// Content must be a list mixing a text part and an inline image part.
	parts, ok := req.Messages[0].Content.([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	text := parts[0].(map[string]any)
	require.Equal(t, "text", text["type"])
	image := parts[1].(map[string]any)
	require.Equal(t, "image_url", image["type"])
	url := image["image_url"].(map[string]any)["url"].(string)
	require.Contains(t, url, "data:image/jpeg;base64,")
}
