package debate

import (
	"encoding/json"
	"fmt"
)

// EventType names an orchestrator event.
type EventType string

const (
	EventDebateStarted     EventType = "debate_started"
	EventDebatePaused      EventType = "debate_paused"
	EventDebateResumed     EventType = "debate_resumed"
	EventTurnStarted       EventType = "turn_started"
	EventContentChunk      EventType = "content_chunk"
	EventTurnCompleted     EventType = "turn_completed"
	EventWaitingForTrigger EventType = "waiting_for_trigger"
	EventDebateCompleted   EventType = "debate_completed"
	EventError             EventType = "error"
)

// Event is one notification emitted by a running debate. Only the fields
// relevant to Type are set; MarshalJSON writes exactly those.
type Event struct {
	Type        EventType
	DebateID    string
	Debater     Speaker
	TurnNumber  int
	Chunk       string
	Content     string
	NextDebater Speaker
	Error       string
	TotalTurns  int
	Turns       []Turn
}

// Terminal reports whether no further events follow e in the same run.
func (e Event) Terminal() bool {
	return e.Type == EventDebateCompleted || e.Type == EventError
}

type eventWire struct {
	Type        EventType `json:"type"`
	DebateID    string    `json:"debate_id,omitempty"`
	Debater     Speaker   `json:"debater,omitempty"`
	TurnNumber  *int      `json:"turn_number,omitempty"`
	Chunk       *string   `json:"chunk,omitempty"`
	Content     *string   `json:"content,omitempty"`
	NextDebater Speaker   `json:"next_debater,omitempty"`
	Error       *string   `json:"error,omitempty"`
	TotalTurns  *int      `json:"total_turns,omitempty"`
	Turns       []Turn    `json:"turns,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	w := eventWire{Type: e.Type}
	switch e.Type {
	case EventDebateStarted:
		w.DebateID = e.DebateID
	case EventDebatePaused, EventDebateResumed:
	case EventTurnStarted:
		w.Debater, w.TurnNumber = e.Debater, &e.TurnNumber
	case EventContentChunk:
		w.Debater, w.Chunk = e.Debater, &e.Chunk
	case EventTurnCompleted:
		w.Debater, w.TurnNumber, w.Content = e.Debater, &e.TurnNumber, &e.Content
	case EventWaitingForTrigger:
		w.NextDebater = e.NextDebater
	case EventError:
		w.Error = &e.Error
	case EventDebateCompleted:
		turns := e.Turns
		if turns == nil {
			turns = []Turn{}
		}
		// turns is always present, even when empty.
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			TotalTurns int       `json:"total_turns"`
			Turns      []Turn    `json:"turns"`
		}{e.Type, e.TotalTurns, turns})
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return json.Marshal(w)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{
		Type:        w.Type,
		DebateID:    w.DebateID,
		Debater:     w.Debater,
		NextDebater: w.NextDebater,
		Turns:       w.Turns,
	}
	if w.TurnNumber != nil {
		e.TurnNumber = *w.TurnNumber
	}
	if w.Chunk != nil {
		e.Chunk = *w.Chunk
	}
	if w.Content != nil {
		e.Content = *w.Content
	}
	if w.Error != nil {
		e.Error = *w.Error
	}
	if w.TotalTurns != nil {
		e.TotalTurns = *w.TotalTurns
	}
	return nil
}
