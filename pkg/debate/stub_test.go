package debate

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/kadirpekel/debater/pkg/model"
)

// stubCapability replays fixed fragments, optionally followed by an error.
type stubCapability struct {
	fragments []string
	err       error
	panicMsg  string
	gate      chan struct{}

	mu    sync.Mutex
	convs [][]model.Message
	opts  []model.GenerateOptions
}

func (s *stubCapability) Provider() model.Provider { return "stub" }

func (s *stubCapability) Available(context.Context) bool { return true }

func (s *stubCapability) ListModels(context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{}, nil
}

func (s *stubCapability) Generate(ctx context.Context, conv []model.Message, opts model.GenerateOptions, _ bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.mu.Lock()
		s.convs = append(s.convs, conv)
		s.opts = append(s.opts, opts)
		s.mu.Unlock()

		if s.gate != nil {
			select {
			case <-s.gate:
			case <-ctx.Done():
				yield("", model.NewGenerationError("stub", opts.Model, ctx.Err()))
				return
			}
		}
		if s.panicMsg != "" {
			panic(s.panicMsg)
		}
		for _, f := range s.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if s.err != nil {
			yield("", model.NewGenerationError("stub", opts.Model, s.err))
		}
	}
}

func (s *stubCapability) conversations() [][]model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]model.Message(nil), s.convs...)
}

type stubResolver map[string]model.Capability

func (r stubResolver) Get(id string) (model.Capability, error) {
	c, ok := r[id]
	if !ok {
		return nil, errors.New("unknown provider " + id)
	}
	return c, nil
}

func testConfig(mode Mode, maxTurns int) Config {
	return Config{
		Topic: "Tabs are better than spaces",
		DebaterA: DebaterConfig{
			Provider: "stub", Model: "model-a", Position: "Tabs win", Temperature: 0.7, MaxTokens: 100,
		},
		DebaterB: DebaterConfig{
			Provider: "stub", Model: "model-b", Position: "Spaces win", Temperature: 0.3, MaxTokens: 200,
		},
		Mode:             mode,
		MaxTurns:         maxTurns,
		AutoDelaySeconds: 0,
	}
}

func newTestOrchestrator(t *testing.T, cfg Config, c model.Capability) *Orchestrator {
	t.Helper()
	o, err := New(cfg, stubResolver{"stub": c}, WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

// start consumes Run on its own goroutine.
func start(ctx context.Context, o *Orchestrator) <-chan Event {
	ch := make(chan Event, 256)
	go func() {
		defer close(ch)
		for e := range o.Run(ctx) {
			ch <- e
		}
	}()
	return ch
}

// readUntil collects events up to and including the first of type typ.
func readUntil(t *testing.T, ch <-chan Event, typ EventType) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed before %s; got %v", typ, eventTypes(got))
			}
			got = append(got, e)
			if e.Type == typ {
				return got
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s; got %v", typ, eventTypes(got))
		}
	}
}

func drain(o *Orchestrator) []Event {
	var events []Event
	for e := range o.Run(context.Background()) {
		events = append(events, e)
	}
	return events
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func countType(events []Event, typ EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
