package debate

import (
	"fmt"
	"time"
)

// Export is the portable form of a debate.
type Export struct {
	Config     Config    `json:"config"`
	Turns      []Turn    `json:"turns"`
	ExportedAt time.Time `json:"exported_at"`
}

// Export snapshots the config and transcript.
func (o *Orchestrator) Export() Export {
	st := o.State()
	return Export{Config: st.Config, Turns: st.Turns, ExportedAt: o.now()}
}

// Import builds a new IDLE debate from exp. The transcript is restored as
// is; the next speaker is the opponent of the last one. Nothing runs until
// the caller starts it.
func Import(exp Export, providers Resolver, opts ...Option) (*Orchestrator, error) {
	if err := validateTranscript(exp.Turns); err != nil {
		return nil, err
	}

	o, err := New(exp.Config, providers, opts...)
	if err != nil {
		return nil, err
	}

	turns := make([]Turn, len(exp.Turns))
	copy(turns, exp.Turns)

	o.mu.Lock()
	o.state.Turns = turns
	o.state.CurrentTurn = len(turns)
	if n := len(turns); n > 0 {
		o.state.CurrentDebater = turns[n-1].Debater.Other()
	}
	o.mu.Unlock()

	o.log.Info("Debate imported", "turns", len(turns))
	return o, nil
}

func validateTranscript(turns []Turn) error {
	for i, t := range turns {
		if !t.Debater.Valid() {
			return fmt.Errorf("%w: turn %d has unknown debater %q", ErrInvalidConfig, i+1, t.Debater)
		}
		if t.TurnNumber != i+1 {
			return fmt.Errorf("%w: turn at position %d is numbered %d", ErrInvalidConfig, i+1, t.TurnNumber)
		}
	}
	return nil
}
