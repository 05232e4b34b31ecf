package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/capsule/pkg/adapters/openai"
	"github.com/aretw0/capsule/pkg/narrative"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := openai.NewClient(openai.Config{})
	assert.ErrorIs(t, err, openai.ErrNoAPIKey)
}

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"本周很充实。"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := openai.NewClient(openai.Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	assert.Equal(t, openai.DefaultModel, c.Model())

	text, err := c.Complete(context.Background(), narrative.Request{
		Messages:    []narrative.Message{{Role: "user", Content: "hi"}},
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "本周很充实。", text)
	assert.Equal(t, openai.DefaultModel, body["model"])
	assert.InDelta(t, 0.7, body["temperature"], 0.0001)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"auth"}}`))
	}))
	defer srv.Close()

	c, err := openai.NewClient(openai.Config{
		APIKey:           "bad",
		BaseURL:          srv.URL,
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
	})
	require.NoError(t, err)

	req := narrative.Request{Messages: []narrative.Message{{Role: "user", Content: "hi"}}}
	for range 2 {
		_, err := c.Complete(context.Background(), req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid key")
	}
	assert.Equal(t, "open", c.BreakerState())

	_, err = c.Complete(context.Background(), req)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, openai.DefaultTranscriptionModel, r.FormValue("model"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"明天上午十点开会"}`))
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "note.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0644))

	c, err := openai.NewClient(openai.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	text, err := c.Transcribe(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "明天上午十点开会", text)
}
