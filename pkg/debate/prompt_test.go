package debate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/debater/pkg/model"
)

func TestSystemPrompt(t *testing.T) {
	cfg := testConfig(ModeAuto, 2)

	want := `You are participating in a debate on the topic: "Tabs are better than spaces"

Your position: Spaces win

Rules:
1. Argue strongly for your position with logic and evidence
2. Respond directly to your opponent's points
3. Be persuasive but respectful
4. Keep responses concise (2-3 paragraphs max)
5. Do not break character or acknowledge you are an AI

You are Debater B. Your opponent is Debater A.`

	assert.Equal(t, want, SystemPrompt(&cfg, SpeakerB))
	assert.Contains(t, SystemPrompt(&cfg, SpeakerA), "You are Debater A. Your opponent is Debater B.")
}

func TestBuildConversation_Opening(t *testing.T) {
	cfg := testConfig(ModeAuto, 2)

	conv := BuildConversation(&cfg, nil, SpeakerA)

	require.Len(t, conv, 2)
	assert.Equal(t, model.RoleSystem, conv[0].Role)
	assert.Equal(t, model.RoleUser, conv[1].Role)
	assert.Equal(t, "Please begin the debate by presenting your opening argument for: Tabs win", conv[1].Content)

	// Only the opener gets the kickoff.
	conv = BuildConversation(&cfg, nil, SpeakerB)
	assert.Len(t, conv, 1)
}

func TestBuildConversation_RetagsHistoryPerSpeaker(t *testing.T) {
	cfg := testConfig(ModeAuto, 4)
	turns := []Turn{
		{Debater: SpeakerA, Content: "x", TurnNumber: 1, Timestamp: time.Now()},
		{Debater: SpeakerB, Content: "y", TurnNumber: 2, Timestamp: time.Now()},
	}

	forA := BuildConversation(&cfg, turns, SpeakerA)
	require.Len(t, forA, 3)
	assert.Equal(t, model.Message{Role: model.RoleAssistant, Content: "x"}, forA[1])
	assert.Equal(t, model.Message{Role: model.RoleUser, Content: "y"}, forA[2])

	forB := BuildConversation(&cfg, turns, SpeakerB)
	require.Len(t, forB, 3)
	assert.Equal(t, model.Message{Role: model.RoleUser, Content: "x"}, forB[1])
	assert.Equal(t, model.Message{Role: model.RoleAssistant, Content: "y"}, forB[2])

	assert.Contains(t, forA[0].Content, "Your position: Tabs win")
	assert.Contains(t, forB[0].Content, "Your position: Spaces win")
}

func TestRun_SecondSpeakerSeesOpenerAsUser(t *testing.T) {
	stub := &stubCapability{fragments: []string{"opening"}}
	o := newTestOrchestrator(t, testConfig(ModeAuto, 2), stub)

	drain(o)

	convs := stub.conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, model.RoleUser, convs[0][len(convs[0])-1].Role)
	require.Len(t, convs[1], 2)
	assert.Equal(t, model.Message{Role: model.RoleUser, Content: "opening"}, convs[1][1])
}
