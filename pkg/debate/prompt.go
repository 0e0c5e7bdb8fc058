package debate

import (
	"fmt"

	"github.com/kadirpekel/debater/pkg/model"
)

const systemPromptTemplate = `You are participating in a debate on the topic: "%s"

Your position: %s

Rules:
1. Argue strongly for your position with logic and evidence
2. Respond directly to your opponent's points
3. Be persuasive but respectful
4. Keep responses concise (2-3 paragraphs max)
5. Do not break character or acknowledge you are an AI

You are Debater %s. Your opponent is Debater %s.`

const openingTemplate = "Please begin the debate by presenting your opening argument for: %s"

// SystemPrompt renders the instruction given to speaker s.
func SystemPrompt(cfg *Config, s Speaker) string {
	d := cfg.Debater(s)
	return fmt.Sprintf(systemPromptTemplate, cfg.Topic, d.Position, s, s.Other())
}

// BuildConversation assembles the messages sent to the backend for the next
// turn of speaker s. Earlier turns by s are replayed as assistant messages
// and the opponent's as user messages. The opener gets a kickoff prompt when
// the transcript is empty.
func BuildConversation(cfg *Config, turns []Turn, s Speaker) []model.Message {
	conv := make([]model.Message, 0, len(turns)+2)
	conv = append(conv, model.Message{Role: model.RoleSystem, Content: SystemPrompt(cfg, s)})

	for _, t := range turns {
		role := model.RoleUser
		if t.Debater == s {
			role = model.RoleAssistant
		}
		conv = append(conv, model.Message{Role: role, Content: t.Content})
	}

	if len(turns) == 0 && s == Opener {
		conv = append(conv, model.Message{
			Role:    model.RoleUser,
			Content: fmt.Sprintf(openingTemplate, cfg.Debater(Opener).Position),
		})
	}
	return conv
}
