package model

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single turn sent to a language model.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body accepted by the chat endpoint.
type ChatRequest struct {
	Message        string        `json:"message"`
	History        []ChatMessage `json:"history"`
	ConversationID string        `json:"conversationId,omitempty"`
}

// ChatReply is a successful chat response.
type ChatReply struct {
	Reply    string `json:"reply"`
	Provider string `json:"provider"`
}
