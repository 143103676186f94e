package service

import (
	"neuratalk/internal/domain"
	"neuratalk/internal/llm"
)

// BuildCompletionMessages arma el payload saliente: system opcional, historial
// opcional y el mensaje nuevo al final. chat debe reflejar el estado previo al
// mensaje nuevo.
func BuildCompletionMessages(chat domain.Chat, text string, includeHistory, includeSystemMessage bool) []llm.Message {
	out := make([]llm.Message, 0, len(chat.Messages)+2)

	// Los modelos restringidos nunca reciben system, sin importar el toggle.
	if includeSystemMessage && !domain.IsRestrictedModel(chat.Model) {
		out = append(out, llm.Message{Role: domain.RoleSystem, Content: chat.SystemMessage})
	}

	if includeHistory {
		for _, m := range chat.Messages {
			if m.Role == domain.RoleSystem {
				continue
			}
			out = append(out, llm.Message{Role: m.Role, Content: m.Content})
		}
	}

	return append(out, llm.Message{Role: domain.RoleUser, Content: text})
}
