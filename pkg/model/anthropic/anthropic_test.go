package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/debater/pkg/model"
)

func TestBuildRequest_LiftsSystem(t *testing.T) {
	temp, maxTok := 1.4, 350
	req := buildRequest(slog.Default(), []model.Message{
		{Role: model.RoleSystem, Content: "You are Debater A."},
		{Role: model.RoleUser, Content: "Please begin"},
	}, model.GenerateOptions{Model: "claude-sonnet-4-20250514", Temperature: &temp, MaxTokens: &maxTok}, true)

	assert.Equal(t, "You are Debater A.", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, 350, req.MaxTokens)
	assert.Equal(t, 1.0, *req.Temperature)
}

func TestBuildRequest_ClampLogged(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	inRange := 0.7
	req := buildRequest(log, nil, model.GenerateOptions{Model: "m", Temperature: &inRange}, false)
	assert.Equal(t, 0.7, *req.Temperature)
	assert.Empty(t, buf.String())

	over := 1.8
	req = buildRequest(log, nil, model.GenerateOptions{Model: "m", Temperature: &over}, false)
	assert.Equal(t, 1.0, *req.Temperature)
	assert.Contains(t, buf.String(), "Temperature clamped")
	assert.Contains(t, buf.String(), "requested=1.8")
	assert.Contains(t, buf.String(), "sent=1")
}

func TestBuildRequest_DefaultMaxTokens(t *testing.T) {
	req := buildRequest(slog.Default(), nil, model.GenerateOptions{Model: "m"}, false)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
	assert.Nil(t, req.Temperature)
}

func TestGenerate_NotConfigured(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Available(context.Background()))

	text, err := model.Collect(c.Generate(context.Background(), nil, model.GenerateOptions{}, true))
	require.NoError(t, err)
	assert.Equal(t, "Error: Anthropic API key not configured", text)
}

func TestGenerate_Streaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req messageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		for _, piece := range []string{"Cats ", "are ", "better."} {
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", piece)
		}
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", BaseURL: srv.URL})
	var fragments []string
	for fragment, err := range c.Generate(context.Background(), nil, model.GenerateOptions{Model: "claude"}, true) {
		require.NoError(t, err)
		fragments = append(fragments, fragment)
	}
	assert.Equal(t, []string{"Cats ", "are ", "better."}, fragments)
}

func TestGenerate_NonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Dogs win."}]}`))
	}))
	defer srv.Close()

	text, err := model.Collect(New(Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), nil, model.GenerateOptions{Model: "claude"}, false))
	require.NoError(t, err)
	assert.Equal(t, "Dogs win.", text)
}

func TestGenerate_StreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	}))
	defer srv.Close()

	_, err := model.Collect(New(Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), nil, model.GenerateOptions{Model: "claude"}, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrGeneration)
	assert.Contains(t, err.Error(), "Overloaded")
}
