package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/debater/pkg/model"
)

type fakeOllama struct {
	tagsHits atomic.Int32
	lastChat chatRequest
	chat     func(w http.ResponseWriter, req chatRequest)
}

func (f *fakeOllama) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		f.tagsHits.Add(1)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest","size":2019393189},{"name":"qwen3:8b","size":0}]}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastChat))
		f.chat(w, f.lastChat)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAvailable_CachesResult(t *testing.T) {
	f := &fakeOllama{}
	c := New(Config{BaseURL: f.server(t).URL})

	assert.True(t, c.Available(context.Background()))
	assert.True(t, c.Available(context.Background()))
	assert.Equal(t, int32(1), f.tagsHits.Load())
}

func TestAvailable_CanceledCallerDoesNotPoisonCache(t *testing.T) {
	f := &fakeOllama{chat: func(w http.ResponseWriter, req chatRequest) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hello."},"done":true}`)
	}}
	c := New(Config{BaseURL: f.server(t).URL})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	c.Available(canceled)

	assert.True(t, c.Available(context.Background()))
	text, err := model.Collect(c.Generate(context.Background(), nil, model.GenerateOptions{Model: "llama3.2"}, true))
	require.NoError(t, err)
	assert.Equal(t, "Hello.", text)
}

func TestGenerate_CanceledContextIsAnError(t *testing.T) {
	f := &fakeOllama{}
	c := New(Config{BaseURL: f.server(t).URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text, err := model.Collect(c.Generate(ctx, nil, model.GenerateOptions{Model: "llama3.2"}, true))
	assert.ErrorIs(t, err, model.ErrGeneration)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, text)
}

func TestAvailable_ConcurrentCallersShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL})

	results := make(chan bool, 8)
	for range 8 {
		go func() { results <- c.Available(context.Background()) }()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	for range 8 {
		assert.True(t, <-results)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestAvailable_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url})
	assert.False(t, c.Available(context.Background()))

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, models)

	text, err := model.Collect(c.Generate(context.Background(), nil, model.GenerateOptions{Model: "llama3.2"}, true))
	require.NoError(t, err)
	assert.Equal(t, unavailableText, text)
}

func TestListModels(t *testing.T) {
	f := &fakeOllama{}
	c := New(Config{BaseURL: f.server(t).URL})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3.2:latest", models[0].ID)
	assert.Equal(t, model.ProviderOllama, models[0].Provider)
	assert.Equal(t, "Local model: 2.0 GB", models[0].Description)
	assert.Equal(t, "Local model: unknown size", models[1].Description)
}

func TestGenerate_StreamingSkipsThinking(t *testing.T) {
	f := &fakeOllama{chat: func(w http.ResponseWriter, req chatRequest) {
		lines := []string{
			`{"message":{"role":"assistant","content":"","thinking":"hmm"},"done":false}`,
			`{"message":{"role":"assistant","content":"Tabs "},"done":false}`,
			`not json`,
			`{"message":{"role":"assistant","content":"win."},"done":false}`,
			`{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}}
	c := New(Config{BaseURL: f.server(t).URL})

	temp, maxTok := 0.5, 350
	var fragments []string
	for fragment, err := range c.Generate(context.Background(),
		[]model.Message{{Role: model.RoleUser, Content: "go"}},
		model.GenerateOptions{Model: "qwen3:8b", Temperature: &temp, MaxTokens: &maxTok}, true) {
		require.NoError(t, err)
		fragments = append(fragments, fragment)
	}

	assert.Equal(t, []string{"Tabs ", "win."}, fragments)
	assert.True(t, f.lastChat.Stream)
	assert.Equal(t, 0.5, f.lastChat.Options["temperature"])
	assert.Equal(t, float64(3500), f.lastChat.Options["num_predict"])
}

func TestGenerate_NonStreamingEmpty(t *testing.T) {
	f := &fakeOllama{chat: func(w http.ResponseWriter, req chatRequest) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"","thinking":"..."},"done":true}`))
	}}
	c := New(Config{BaseURL: f.server(t).URL})

	text, err := model.Collect(c.Generate(context.Background(), nil, model.GenerateOptions{Model: "m"}, false))
	require.NoError(t, err)
	assert.Equal(t, emptyResponseText, text)
}

func TestGenerate_ErrorLine(t *testing.T) {
	f := &fakeOllama{chat: func(w http.ResponseWriter, req chatRequest) {
		fmt.Fprintln(w, `{"error":"model \"nope\" not found"}`)
	}}
	c := New(Config{BaseURL: f.server(t).URL})

	_, err := model.Collect(c.Generate(context.Background(), nil, model.GenerateOptions{Model: "nope"}, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrGeneration)
	assert.Contains(t, err.Error(), "not found")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "unknown size", formatSize(0))
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "4.7 GB", formatSize(4_700_000_000))
}
