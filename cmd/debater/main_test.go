package main

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/debater/pkg/debate"
	"github.com/kadirpekel/debater/pkg/model"
	"github.com/kadirpekel/debater/pkg/provider"
)

func TestDebaterFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    debaterFlag
		wantErr bool
	}{
		{in: "openai:gpt-4o-mini:For", want: debaterFlag{"openai", "gpt-4o-mini", "For"}},
		{in: "ollama:llama3.2:latest:Against", want: debaterFlag{"ollama", "llama3.2:latest", "Against"}},
		{in: " anthropic : claude-3-5-haiku : Pineapple belongs on pizza ", want: debaterFlag{"anthropic", "claude-3-5-haiku", "Pineapple belongs on pizza"}},
		{in: "openai:gpt-4o", wantErr: true},
		{in: "openai", wantErr: true},
		{in: "openai::For", wantErr: true},
		{in: ":gpt-4o:For", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f debaterFlag
			err := f.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestRunCmd_DebateConfig(t *testing.T) {
	c := &RunCmd{
		Topic:       "Remote work",
		A:           debaterFlag{"openai", "gpt-4o-mini", "For"},
		B:           debaterFlag{"ollama", "llama3.2", "Against"},
		Mode:        "auto",
		Turns:       4,
		Delay:       0.5,
		Temperature: 0.3,
		MaxTokens:   200,
	}
	require.NoError(t, c.Validate())

	cfg := c.debateConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, debate.ModeAuto, cfg.Mode)
	assert.Equal(t, 4, cfg.MaxTurns)
	assert.Equal(t, "llama3.2", cfg.DebaterB.Model)
	assert.Equal(t, 0.3, cfg.DebaterA.Temperature)
	assert.Equal(t, 200, cfg.DebaterB.MaxTokens)
}

func TestRunCmd_Validate(t *testing.T) {
	assert.Error(t, (&RunCmd{}).Validate())
	assert.Error(t, (&RunCmd{Topic: "x", A: debaterFlag{"openai", "m", "p"}}).Validate())
	assert.NoError(t, (&RunCmd{Import: "debate.json"}).Validate())
}

func TestPrinter_Text(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf}

	events := []debate.Event{
		{Type: debate.EventDebateStarted, DebateID: "d1"},
		{Type: debate.EventTurnStarted, Debater: debate.SpeakerA, TurnNumber: 1},
		{Type: debate.EventContentChunk, Debater: debate.SpeakerA, Chunk: "Hello "},
		{Type: debate.EventContentChunk, Debater: debate.SpeakerA, Chunk: "world"},
		{Type: debate.EventTurnCompleted, Debater: debate.SpeakerA, TurnNumber: 1, Content: "Hello world"},
		{Type: debate.EventWaitingForTrigger, NextDebater: debate.SpeakerB},
		{Type: debate.EventDebateCompleted, TotalTurns: 1},
	}
	for _, ev := range events {
		require.NoError(t, p.print(ev))
	}

	out := buf.String()
	assert.Contains(t, out, "Debate d1 started")
	assert.Contains(t, out, "[Turn 1] Debater A:\nHello world\n")
	assert.Contains(t, out, "Next up: Debater B")
	assert.Contains(t, out, "Debate completed after 1 turns")
	assert.Empty(t, p.failed)
}

func TestPrinter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf, json: true}

	require.NoError(t, p.print(debate.Event{Type: debate.EventContentChunk, Debater: debate.SpeakerB, Chunk: "hi"}))
	require.NoError(t, p.print(debate.Event{Type: debate.EventError, Error: "boom"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "content_chunk", first["type"])
	assert.Equal(t, "hi", first["chunk"])
	assert.Equal(t, "boom", p.failed)
}

func TestPrintProviders(t *testing.T) {
	var buf bytes.Buffer
	report := map[string]provider.Status{
		"ollama": {Available: true, Models: []model.ModelInfo{{ID: "llama3.2"}, {ID: "mistral"}}},
		"openai": {Models: []model.ModelInfo{}},
	}

	require.NoError(t, printProviders(&buf, []string{"ollama", "openai"}, report))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "llama3.2 (+1 more)")
	assert.Contains(t, lines[1], "true")
	assert.Contains(t, lines[2], "false")
	assert.Contains(t, lines[2], "-")
}

func TestSchemaCmd(t *testing.T) {
	s := (&SchemaCmd{Debate: true}).build()
	assert.Equal(t, "Debate Configuration", s.Title)
	_, ok := s.Properties.Get("debater_a")
	assert.True(t, ok)

	s = (&SchemaCmd{}).build()
	_, ok = s.Properties.Get("server")
	assert.True(t, ok)
}

func TestWriteExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debate.json")
	exp := debate.Export{
		Config: debate.Config{Topic: "Tabs vs spaces"},
		Turns:  []debate.Turn{{Debater: debate.SpeakerA, Content: "Tabs.", TurnNumber: 1}},
	}

	require.NoError(t, writeExport(path, exp))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got debate.Export
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Tabs vs spaces", got.Config.Topic)
	require.Len(t, got.Turns, 1)
	assert.Equal(t, "Tabs.", got.Turns[0].Content)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestValidateCmd_Debate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"topic": "Cats vs dogs",
		"debater_a": {"provider": "openai", "model": "gpt-4o-mini", "position": "Cats"},
		"debater_b": {"provider": "ollama", "model": "llama3.2", "position": "Dogs"}
	}`), 0o644))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"topic": ""}`), 0o644))

	cfg, err := (&ValidateCmd{Path: good, Debate: true}).load()
	require.NoError(t, err)
	assert.Equal(t, debate.DefaultMaxTurns, cfg.(debate.Config).MaxTurns)

	_, err = (&ValidateCmd{Path: bad, Debate: true}).load()
	assert.ErrorIs(t, err, debate.ErrInvalidConfig)
}

// hangingCapability blocks every generation until its context ends.
type hangingCapability struct{ entered chan struct{} }

func (h *hangingCapability) Provider() model.Provider { return model.ProviderOllama }

func (h *hangingCapability) Generate(ctx context.Context, _ []model.Message, _ model.GenerateOptions, _ bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		close(h.entered)
		<-ctx.Done()
		yield("", ctx.Err())
	}
}

func (h *hangingCapability) Available(context.Context) bool { return true }

func (h *hangingCapability) ListModels(context.Context) ([]model.ModelInfo, error) { return nil, nil }

func TestDrive_InterruptCompletesDebate(t *testing.T) {
	hc := &hangingCapability{entered: make(chan struct{})}
	providers := provider.New(map[string]provider.Factory{
		"ollama": func() (model.Capability, error) { return hc, nil },
	})
	c := &RunCmd{
		Topic: "Remote work",
		A:     debaterFlag{"ollama", "llama3.2", "For"},
		B:     debaterFlag{"ollama", "llama3.2", "Against"},
		Mode:  "auto",
		Turns: 2,
	}
	o, err := debate.New(c.debateConfig(), providers)
	require.NoError(t, err)

	ctx, interrupt := context.WithCancel(context.Background())
	go func() {
		<-hc.entered
		interrupt()
	}()

	var buf bytes.Buffer
	p := &printer{out: &buf, json: true}
	done := make(chan error, 1)
	go func() { done <- drive(ctx, o, p, nil) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("drive did not return after interrupt")
	}

	assert.Equal(t, debate.StatusCompleted, o.Status())
	assert.Empty(t, o.State().Turns)
	assert.Contains(t, buf.String(), `"type":"debate_completed"`)
	assert.Empty(t, p.failed)
}
