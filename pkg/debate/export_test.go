package debate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImport_RoundTrip(t *testing.T) {
	stub := &stubCapability{fragments: []string{"said ", "things"}}
	o := newTestOrchestrator(t, testConfig(ModeAuto, 3), stub)
	drain(o)

	data, err := json.Marshal(o.Export())
	require.NoError(t, err)

	var exp Export
	require.NoError(t, json.Unmarshal(data, &exp))

	imported, err := Import(exp, stubResolver{"stub": stub})
	require.NoError(t, err)

	orig, got := o.State(), imported.State()
	require.Len(t, got.Turns, len(orig.Turns))
	for i := range orig.Turns {
		assert.Equal(t, orig.Turns[i].Debater, got.Turns[i].Debater)
		assert.Equal(t, orig.Turns[i].Content, got.Turns[i].Content)
		assert.Equal(t, orig.Turns[i].TurnNumber, got.Turns[i].TurnNumber)
		assert.True(t, orig.Turns[i].Timestamp.Equal(got.Turns[i].Timestamp), "timestamp of turn %d", i+1)
	}
	assert.Equal(t, SpeakerB, got.CurrentDebater, "last speaker was A")
	assert.Equal(t, 3, got.CurrentTurn)
	assert.Equal(t, StatusIdle, got.Status)
	assert.NotEqual(t, orig.ID, got.ID)
	assert.Equal(t, orig.Config, got.Config)
	assert.False(t, imported.Running(), "import must not auto-run")
}

func TestImport_ContinuesTheDebate(t *testing.T) {
	stub := &stubCapability{fragments: []string{"more"}}
	exp := Export{
		Config: testConfig(ModeAuto, 3),
		Turns: []Turn{
			{Debater: SpeakerA, Content: "one", TurnNumber: 1, Timestamp: time.Now().UTC()},
			{Debater: SpeakerB, Content: "two", TurnNumber: 2, Timestamp: time.Now().UTC()},
		},
	}

	o, err := Import(exp, stubResolver{"stub": stub})
	require.NoError(t, err)
	assert.Equal(t, SpeakerA, o.State().CurrentDebater)

	drain(o)

	st := o.State()
	require.Len(t, st.Turns, 3)
	assert.Equal(t, Turn{Debater: SpeakerA, Content: "more", TurnNumber: 3, Timestamp: st.Turns[2].Timestamp}, st.Turns[2])
	require.Len(t, stub.conversations(), 1)
	assert.Len(t, stub.conversations()[0], 3, "system plus two history messages, no kickoff")
}

func TestImport_EmptyTranscript(t *testing.T) {
	o, err := Import(Export{Config: testConfig(ModeManual, 2)}, stubResolver{"stub": &stubCapability{}})
	require.NoError(t, err)

	st := o.State()
	assert.Equal(t, SpeakerA, st.CurrentDebater)
	assert.Equal(t, 0, st.CurrentTurn)
	assert.NotNil(t, st.Turns)
}

func TestImport_RejectsBadTranscript(t *testing.T) {
	tests := []struct {
		name  string
		turns []Turn
	}{
		{"gap in numbering", []Turn{{Debater: SpeakerA, TurnNumber: 1}, {Debater: SpeakerB, TurnNumber: 3}}},
		{"starts at zero", []Turn{{Debater: SpeakerA, TurnNumber: 0}}},
		{"unknown debater", []Turn{{Debater: "C", TurnNumber: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(Export{Config: testConfig(ModeAuto, 4), Turns: tt.turns}, stubResolver{"stub": &stubCapability{}})
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestExport_JSONShape(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(ModeAuto, 1), &stubCapability{})

	data, err := json.Marshal(o.Export())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "config")
	assert.Contains(t, raw, "exported_at")
	assert.JSONEq(t, `[]`, string(raw["turns"]))
}
