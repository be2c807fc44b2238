// Package models defines the conversation data model shared by the client,
// the pipeline and the proxy server.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Source is a citation attached to an assistant message.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Attachment is an inline binary payload, base64-encoded.
type Attachment struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// MindMapNode is one node of a mind-map tree produced by the assistant.
type MindMapNode struct {
	Title    string        `json:"title"`
	Children []MindMapNode `json:"children,omitempty"`
}

// CalendarEvent is a scheduled event produced by the assistant.
type CalendarEvent struct {
	Title           string    `json:"title"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"duration"`
}

// Message represents a single message in a conversation.
//
// A message created as a streaming placeholder starts with empty Text and is
// mutated in place while its stream is active; it becomes immutable once the
// stream ends.
type Message struct {
	ID            string         `json:"id"`
	Sender        Sender         `json:"sender"`
	Text          string         `json:"text"`
	Sources       []Source       `json:"sources,omitempty"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
	MindMap       *MindMapNode   `json:"mindMapData,omitempty"`
	CalendarEvent *CalendarEvent `json:"calendarEventData,omitempty"`
}

// Conversation is an ordered message log with a stable id.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessageID returns a unique message id.
func NewMessageID() string {
	return uuid.NewString()
}

// NewConversation creates a fresh conversation seeded with the assistant's
// greeting message.
func NewConversation() *Conversation {
	return &Conversation{
		ID:    "convo-" + uuid.NewString(),
		Title: DefaultTitle,
		Messages: []Message{{
			ID:     SeedMessageID,
			Sender: SenderAssistant,
			Text:   SeedMessageText,
		}},
		CreatedAt: time.Now(),
	}
}

// HasRealExchange reports whether the conversation holds anything beyond the
// seed message.
func (c *Conversation) HasRealExchange() bool {
	return len(c.Messages) > 1
}

// LastMessage returns a pointer to the trailing message, or nil when empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
