package domain

import "time"

// Chat agrupa un transcript ordenado con su propio modelo y system prompt.
type Chat struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"created_at"`
	SystemMessage string    `json:"system_message"`
	Model         string    `json:"model"`
}

// Clone devuelve una copia que no comparte el slice de mensajes.
func (c Chat) Clone() Chat {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// Snapshot es el subconjunto persistido del estado. Nunca incluye la credencial.
type Snapshot struct {
	Chats                []Chat `json:"chats"`
	IncludeHistory       bool   `json:"include_history"`
	IncludeSystemMessage bool   `json:"include_system_message"`
}
