package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/kadirpekel/debater/pkg/debate"
	"github.com/kadirpekel/debater/pkg/provider"
)

// debaterFlag parses "provider:model:position". The model may contain
// colons (ollama tags); the position is everything after the last one.
type debaterFlag struct {
	Provider string
	Model    string
	Position string
}

func (f *debaterFlag) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	first := strings.Index(s, ":")
	last := strings.LastIndex(s, ":")
	if first < 0 || first == last {
		return fmt.Errorf("expected provider:model:position, got %q", s)
	}
	f.Provider = strings.TrimSpace(s[:first])
	f.Model = strings.TrimSpace(s[first+1 : last])
	f.Position = strings.TrimSpace(s[last+1:])
	if f.Provider == "" || f.Model == "" || f.Position == "" {
		return fmt.Errorf("expected provider:model:position, got %q", s)
	}
	return nil
}

// RunCmd runs one debate in the terminal.
type RunCmd struct {
	Topic       string      `help:"Debate topic." xor:"source"`
	A           debaterFlag `name:"a" help:"Debater A as provider:model:position." placeholder:"PROVIDER:MODEL:POSITION"`
	B           debaterFlag `name:"b" help:"Debater B as provider:model:position." placeholder:"PROVIDER:MODEL:POSITION"`
	Mode        string      `help:"Turn mode." enum:"manual,auto" default:"manual"`
	Turns       int         `help:"Total turns." default:"10"`
	Delay       float64     `help:"Seconds between turns in auto mode." default:"2"`
	Temperature float64     `help:"Sampling temperature for both debaters." default:"0.7"`
	MaxTokens   int         `name:"max-tokens" help:"Token limit per turn." default:"350"`
	Import      string      `help:"Continue a debate from an export file." type:"existingfile" xor:"source"`
	Export      string      `help:"Write the finished debate to this file." type:"path"`
	JSON        bool        `name:"json" help:"Print events as JSON lines."`
}

// Validate is called by kong after parsing.
func (c *RunCmd) Validate() error {
	if c.Import != "" {
		return nil
	}
	if c.Topic == "" {
		return fmt.Errorf("--topic or --import is required")
	}
	if c.A.Provider == "" || c.B.Provider == "" {
		return fmt.Errorf("--a and --b are required")
	}
	return nil
}

func (c *RunCmd) debateConfig() debate.Config {
	side := func(f debaterFlag) debate.DebaterConfig {
		return debate.DebaterConfig{
			Provider:    f.Provider,
			Model:       f.Model,
			Position:    f.Position,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
		}
	}
	return debate.Config{
		Topic:            c.Topic,
		DebaterA:         side(c.A),
		DebaterB:         side(c.B),
		Mode:             debate.Mode(c.Mode),
		MaxTurns:         c.Turns,
		AutoDelaySeconds: c.Delay,
	}
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	cleanup, err := initLoggerFromConfig(cli, &cfg.Logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	providers := provider.NewFromConfig(cfg)
	o, err := c.open(providers)
	if err != nil {
		return err
	}

	var trigger func() bool
	if o.Config().Mode == debate.ModeManual {
		trigger = stdinTrigger(ctx, os.Stdin, os.Stderr)
	}
	p := &printer{out: os.Stdout, json: c.JSON}
	if !c.JSON {
		fmt.Printf("Topic: %s\n", o.Config().Topic)
	}
	if err := drive(ctx, o, p, trigger); err != nil {
		return err
	}

	if c.Export != "" {
		if err := writeExport(c.Export, o.Export()); err != nil {
			return err
		}
		slog.Info("Debate exported", "path", c.Export)
	}
	if p.failed != "" {
		return fmt.Errorf("debate ended with error: %s", p.failed)
	}
	return nil
}

// drive prints o's events until the debate ends. Ending ctx stops the
// debate, which still emits its completion event. The run itself is not
// bound to ctx because a canceled run would only pause.
func drive(ctx context.Context, o *debate.Orchestrator, p *printer, trigger func() bool) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			o.Stop()
		case <-done:
		}
	}()

	for ev := range o.Run(context.Background()) {
		if err := p.print(ev); err != nil {
			return err
		}
		if ev.Type == debate.EventWaitingForTrigger && trigger != nil && !lastTurn(o) {
			if trigger() {
				o.Resume()
			} else {
				o.Stop()
			}
		}
	}
	return nil
}

func (c *RunCmd) open(providers *provider.Registry) (*debate.Orchestrator, error) {
	if c.Import == "" {
		return debate.New(c.debateConfig(), providers)
	}
	data, err := os.ReadFile(c.Import)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	var exp debate.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("failed to parse export %s: %w", c.Import, err)
	}
	return debate.Import(exp, providers)
}

func lastTurn(o *debate.Orchestrator) bool {
	st := o.State()
	return st.CurrentTurn >= st.Config.MaxTurns
}

func writeExport(path string, exp debate.Export) error {
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// stdinTrigger returns a function that blocks until the user presses Enter.
// It returns false when ctx ends or input is exhausted. Without a terminal
// every call returns true at once, so piped runs advance on their own.
func stdinTrigger(ctx context.Context, in *os.File, prompt io.Writer) func() bool {
	if !term.IsTerminal(int(in.Fd())) {
		return func() bool { return true }
	}

	lines := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() bool {
		fmt.Fprint(prompt, "Press Enter for the next turn... ")
		select {
		case _, ok := <-lines:
			return ok
		case <-ctx.Done():
			return false
		}
	}
}

// printer renders events for a terminal, or as JSON lines.
type printer struct {
	out    io.Writer
	json   bool
	failed string
}

func (p *printer) print(ev debate.Event) error {
	if ev.Type == debate.EventError {
		p.failed = ev.Error
	}
	if p.json {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.out, "%s\n", data)
		return err
	}

	switch ev.Type {
	case debate.EventDebateStarted:
		fmt.Fprintf(p.out, "Debate %s started\n", ev.DebateID)
	case debate.EventTurnStarted:
		fmt.Fprintf(p.out, "\n[Turn %d] Debater %s:\n", ev.TurnNumber, ev.Debater)
	case debate.EventContentChunk:
		fmt.Fprint(p.out, ev.Chunk)
	case debate.EventTurnCompleted:
		fmt.Fprintln(p.out)
	case debate.EventDebatePaused:
		fmt.Fprintln(p.out, "(paused)")
	case debate.EventDebateResumed:
		fmt.Fprintln(p.out, "(resumed)")
	case debate.EventWaitingForTrigger:
		fmt.Fprintf(p.out, "\nNext up: Debater %s\n", ev.NextDebater)
	case debate.EventError:
		fmt.Fprintf(p.out, "\nError: %s\n", ev.Error)
	case debate.EventDebateCompleted:
		fmt.Fprintf(p.out, "\nDebate completed after %d turns\n", ev.TotalTurns)
	}
	return nil
}
