// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package debate runs two-speaker debates between text generation backends.
//
// An Orchestrator owns one debate. Its Run method drives the turn loop and
// returns the events as an iterator:
//   - Speakers alternate strictly, A opens
//   - Pause, Resume and Stop are intents observed at checkpoints
//   - Manual mode pauses after every turn until resumed
//   - Auto mode waits AutoDelaySeconds between turns
//   - A generation failure ends the run with a single error event
//
// Abandoning the iterator pauses the debate; a later Run continues from the
// same state.
package debate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/debater/pkg/model"
)

const (
	// EmptyResponseText replaces a turn that produced no text.
	EmptyResponseText = "[No response generated]"

	// DefaultPollInterval bounds how long a paused loop sleeps between
	// checks of its intents.
	DefaultPollInterval = 500 * time.Millisecond

	tracerName = "github.com/kadirpekel/debater/pkg/debate"
	spanTurn   = "debate.turn"
)

var (
	// ErrAlreadyRunning is reported when Run is called while another Run
	// of the same debate is active.
	ErrAlreadyRunning = errors.New("debate already running")
	// ErrCompleted is reported when Run is called on a finished debate.
	ErrCompleted = errors.New("debate already completed")
)

// Resolver returns the shared capability for a provider id.
// *provider.Registry implements it.
type Resolver interface {
	Get(id string) (model.Capability, error)
}

// Recorder receives debate measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	DebateStarted(ctx context.Context)
	DebateCompleted(ctx context.Context, turns int)
	TurnGenerated(ctx context.Context, provider, model string, elapsed time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) DebateStarted(context.Context)                                       {}
func (noopRecorder) DebateCompleted(context.Context, int)                                {}
func (noopRecorder) TurnGenerated(context.Context, string, string, time.Duration, error) {}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPollInterval sets the pause polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.poll = d
		}
	}
}

// WithLogger sets the logger. A nil logger keeps slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTracer sets the tracer used for per-turn spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithRecorder sets the sink for debate measurements.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock overrides the source of turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithID sets the debate id instead of generating one.
func WithID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.state.ID = id
		}
	}
}

// Orchestrator drives a single debate.
type Orchestrator struct {
	cfg          Config
	capabilities map[Speaker]model.Capability

	mu    sync.Mutex
	state State

	paused  atomic.Bool
	stopped atomic.Bool
	running atomic.Bool
	wake    chan struct{}

	cancelMu  sync.Mutex
	cancelRun context.CancelFunc

	poll     time.Duration
	now      func() time.Time
	log      *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// New validates cfg and resolves both speakers' capabilities. Availability
// is not checked here; an unconfigured backend fails at generation time.
func New(cfg Config, providers Resolver, opts ...Option) (*Orchestrator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	caps := make(map[Speaker]model.Capability, 2)
	for _, s := range []Speaker{SpeakerA, SpeakerB} {
		c, err := providers.Get(cfg.Debater(s).Provider)
		if err != nil {
			return nil, fmt.Errorf("debater %s: %w", s, err)
		}
		caps[s] = c
	}

	o := &Orchestrator{
		cfg:          cfg,
		capabilities: caps,
		state: State{
			ID:             uuid.NewString(),
			Config:         cfg,
			Status:         StatusIdle,
			Turns:          []Turn{},
			CurrentDebater: Opener,
		},
		wake:     make(chan struct{}, 1),
		poll:     DefaultPollInterval,
		now:      func() time.Time { return time.Now().UTC() },
		log:      slog.Default(),
		tracer:   otel.Tracer(tracerName),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("debate_id", o.state.ID)
	return o, nil
}

func (o *Orchestrator) ID() string { return o.state.ID }

func (o *Orchestrator) Config() Config { return o.cfg }

// State returns a snapshot of the debate.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Status
}

// Running reports whether a Run is currently driving the loop.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// Pause sets the pause intent. The loop stops before the next turn.
func (o *Orchestrator) Pause() {
	o.paused.Store(true)
	o.transition(StatusRunning, StatusPaused)
}

// Resume clears the pause intent and wakes a waiting loop.
func (o *Orchestrator) Resume() {
	o.paused.Store(false)
	if o.running.Load() {
		o.transition(StatusPaused, StatusRunning)
	}
	o.signal()
}

// Stop ends the debate. A running loop exits at its next checkpoint and
// aborts any in-flight generation; an idle or paused debate completes
// immediately.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
	o.signal()

	o.cancelMu.Lock()
	cancel := o.cancelRun
	o.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	if !o.running.Load() {
		o.complete(context.Background())
	}
}

// Run drives the turn loop and yields its events. Only one Run may be
// active at a time. Breaking out of the range pauses the debate.
func (o *Orchestrator) Run(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if !o.running.CompareAndSwap(false, true) {
			yield(Event{Type: EventError, Error: ErrAlreadyRunning.Error()})
			return
		}
		defer func() {
			o.running.Store(false)
			// A Stop that raced with the loop's exit still completes the debate.
			if o.stopped.Load() {
				o.complete(context.Background())
			}
		}()

		if o.Status() == StatusCompleted {
			yield(Event{Type: EventError, Error: ErrCompleted.Error()})
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		o.setCancel(cancel)
		defer func() {
			o.setCancel(nil)
			cancel()
		}()
		if o.stopped.Load() {
			cancel()
		}

		o.loop(runCtx, ctx, yield)
	}
}

type waitResult int

const (
	waitContinue waitResult = iota
	waitStopped
	waitAbandoned
)

func (o *Orchestrator) loop(ctx, parent context.Context, yield func(Event) bool) {
	if o.enter() {
		o.log.Info("Debate started", "topic", o.cfg.Topic, "mode", o.cfg.Mode, "max_turns", o.cfg.MaxTurns)
		o.recorder.DebateStarted(ctx)
		if !yield(Event{Type: EventDebateStarted, DebateID: o.state.ID}) {
			o.abandon()
			return
		}
	}

	for !o.stopped.Load() && o.currentTurn() < o.cfg.MaxTurns {
		if o.paused.Load() {
			o.transition(StatusRunning, StatusPaused)
			if !yield(Event{Type: EventDebatePaused}) {
				o.abandon()
				return
			}
			o.log.Debug("Debate paused")

			switch o.waitWhilePaused(ctx) {
			case waitStopped:
				continue
			case waitAbandoned:
				o.abandon()
				return
			}

			o.transition(StatusPaused, StatusRunning)
			o.log.Debug("Debate resumed")
			if !yield(Event{Type: EventDebateResumed}) {
				o.abandon()
				return
			}
		}

		turn, res, err := o.takeTurn(ctx, parent, yield)
		switch {
		case res == waitStopped:
			continue
		case res == waitAbandoned:
			o.abandon()
			return
		case err != nil:
			if !yield(Event{Type: EventError, Error: err.Error()}) {
				o.complete(ctx)
				return
			}
			o.finish(ctx, yield)
			return
		}

		if !yield(Event{Type: EventTurnCompleted, Debater: turn.Debater, TurnNumber: turn.TurnNumber, Content: turn.Content}) {
			o.abandon()
			return
		}

		if o.cfg.Mode == ModeManual {
			o.paused.Store(true)
			o.transition(StatusRunning, StatusPaused)
			if !yield(Event{Type: EventWaitingForTrigger, NextDebater: turn.Debater.Other()}) {
				o.abandon()
				return
			}
			continue
		}

		if o.currentTurn() < o.cfg.MaxTurns {
			if o.sleep(ctx, o.cfg.AutoDelay()) == waitAbandoned {
				o.abandon()
				return
			}
		}
	}

	o.finish(ctx, yield)
}

// takeTurn generates and records the next turn. A non-nil error is a fatal
// generation failure; nothing is recorded in that case.
func (o *Orchestrator) takeTurn(ctx, parent context.Context, yield func(Event) bool) (Turn, waitResult, error) {
	o.mu.Lock()
	speaker := o.state.CurrentDebater
	number := o.state.CurrentTurn + 1
	conv := BuildConversation(&o.cfg, o.state.Turns, speaker)
	o.mu.Unlock()

	dc := o.cfg.Debater(speaker)
	capability := o.capabilities[speaker]

	if !yield(Event{Type: EventTurnStarted, Debater: speaker, TurnNumber: number}) {
		return Turn{}, waitAbandoned, nil
	}

	ctx, span := o.tracer.Start(ctx, spanTurn, trace.WithAttributes(
		attribute.String("debate.id", o.state.ID),
		attribute.Int("debate.turn", number),
		attribute.String("debate.debater", string(speaker)),
		attribute.String("llm.provider", dc.Provider),
		attribute.String("llm.model", dc.Model),
	))
	defer span.End()

	start := time.Now()
	next, stop := iter.Pull2(capability.Generate(ctx, conv, dc.Options(), true))
	defer stop()

	var content strings.Builder
	for {
		fragment, err, ok := pull(next)
		if !ok {
			break
		}
		if err != nil {
			switch {
			case o.stopped.Load():
				return Turn{}, waitStopped, nil
			case parent.Err() != nil:
				return Turn{}, waitAbandoned, nil
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.recorder.TurnGenerated(ctx, dc.Provider, dc.Model, time.Since(start), err)
			o.log.Error("Generation failed", "debater", speaker, "turn", number, "provider", dc.Provider, "model", dc.Model, "error", err)
			return Turn{}, waitContinue, err
		}
		if o.stopped.Load() {
			return Turn{}, waitStopped, nil
		}
		content.WriteString(fragment)
		if !yield(Event{Type: EventContentChunk, Debater: speaker, Chunk: fragment}) {
			return Turn{}, waitAbandoned, nil
		}
	}
	o.recorder.TurnGenerated(ctx, dc.Provider, dc.Model, time.Since(start), nil)

	text := content.String()
	if text == "" {
		text = EmptyResponseText
	}
	turn := Turn{Debater: speaker, Content: text, Timestamp: o.now(), TurnNumber: number}

	o.mu.Lock()
	o.state.Turns = append(o.state.Turns, turn)
	o.state.CurrentTurn = len(o.state.Turns)
	o.state.CurrentDebater = speaker.Other()
	o.mu.Unlock()

	span.SetAttributes(attribute.Int("debate.content_length", len(text)))
	o.log.Info("Turn completed", "debater", speaker, "turn", number, "chars", len(text))
	return turn, waitContinue, nil
}

// pull calls next and turns a capability panic into an error.
func pull(next func() (string, error, bool)) (fragment string, err error, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			fragment, err, ok = "", fmt.Errorf("%w: capability panicked: %v", model.ErrGeneration, r), true
		}
	}()
	return next()
}

func (o *Orchestrator) waitWhilePaused(ctx context.Context) waitResult {
	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	for {
		if o.stopped.Load() {
			return waitStopped
		}
		if !o.paused.Load() {
			return waitContinue
		}
		select {
		case <-o.wake:
		case <-ticker.C:
		case <-ctx.Done():
			if o.stopped.Load() {
				return waitStopped
			}
			return waitAbandoned
		}
	}
}

// sleep waits d between auto-mode turns. Stop cuts it short.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) waitResult {
	if d <= 0 {
		return waitContinue
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return waitContinue
		case <-o.wake:
			if o.stopped.Load() {
				return waitStopped
			}
		case <-ctx.Done():
			if o.stopped.Load() {
				return waitStopped
			}
			return waitAbandoned
		}
	}
}

func (o *Orchestrator) finish(ctx context.Context, yield func(Event) bool) {
	turns := o.complete(ctx)
	yield(Event{Type: EventDebateCompleted, TotalTurns: len(turns), Turns: turns})
}

// complete moves the debate to COMPLETED and returns the transcript.
func (o *Orchestrator) complete(ctx context.Context) []Turn {
	o.mu.Lock()
	first := o.state.Status != StatusCompleted
	o.state.Status = StatusCompleted
	turns := o.state.clone().Turns
	o.mu.Unlock()

	if first {
		o.recorder.DebateCompleted(context.WithoutCancel(ctx), len(turns))
		o.log.Info("Debate completed", "turns", len(turns))
	}
	return turns
}

// abandon handles a consumer that stopped reading. The debate is paused
// so a later Run can pick it up, unless it was stopped meanwhile.
func (o *Orchestrator) abandon() {
	if o.stopped.Load() {
		o.complete(context.Background())
		return
	}
	o.paused.Store(true)
	o.transition(StatusRunning, StatusPaused)
	o.log.Info("Event consumer went away, debate paused")
}

// enter marks the debate RUNNING and reports whether it was IDLE.
func (o *Orchestrator) enter() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	idle := o.state.Status == StatusIdle
	if idle || o.state.Status == StatusPaused {
		o.state.Status = StatusRunning
	}
	return idle
}

func (o *Orchestrator) transition(from, to Status) {
	o.mu.Lock()
	if o.state.Status == from {
		o.state.Status = to
	}
	o.mu.Unlock()
}

func (o *Orchestrator) currentTurn() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.CurrentTurn
}

func (o *Orchestrator) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) setCancel(cancel context.CancelFunc) {
	o.cancelMu.Lock()
	o.cancelRun = cancel
	o.cancelMu.Unlock()
}
