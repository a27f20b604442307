package entity

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message metadata keys written by the chat workflow
const (
	MetaIntent          = "intent"
	MetaAction          = "action"
	MetaSources         = "sources"
	MetaRetrievedChunks = "retrieved_chunks"
)

type ConversationMessage struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewMessage(role Role, content string, metadata map[string]any) ConversationMessage {
	return ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

type ConversationSession struct {
	ID           string                `json:"session_id"`
	Messages     []ConversationMessage `json:"messages"`
	CreatedAt    time.Time             `json:"created_at"`
	LastActivity time.Time             `json:"last_activity"`
}

type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Summary      string    `json:"summary"`
}

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	UseRAG    *bool  `json:"use_rag,omitempty"`
}

// RAGEnabled defaults to true when the caller did not say otherwise
func (r *ChatRequest) RAGEnabled() bool {
	return r.UseRAG == nil || *r.UseRAG
}

type ChatResponse struct {
	SessionID      string   `json:"session_id"`
	Response       string   `json:"response"`
	Sources        []string `json:"sources,omitempty"`
	Intent         string   `json:"intent,omitempty"`
	ResponseTimeMs int64    `json:"response_time_ms"`
}

type HistoryResponse struct {
	SessionID string                `json:"session_id"`
	Messages  []ConversationMessage `json:"messages"`
}

type SessionsResponse struct {
	Sessions []string `json:"sessions"`
	Count    int      `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
