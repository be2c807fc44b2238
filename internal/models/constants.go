package models

// API paths served by the proxy and consumed by the client.
const (
	PathGenerateContent = "/api/generateContent"
	PathGenerateTitle   = "/api/generateTitle"
	PathGenerateAvatar  = "/api/generateAvatar"
)

// Seed message planted in every new conversation.
const (
	SeedMessageID   = "initial-message"
	SeedMessageText = "Hey Asha, It's me, Dude!"
	DefaultTitle    = "New Chat"
)

// ErrorReplyText is the user-facing text a placeholder message is finalized
// with when the send fails mid-stream.
const ErrorReplyText = "Apologies, I've hit a snag. Could you try that again?"

// Storage keys. DraftKeyPrefix is followed by the conversation id.
const (
	KeyConversations = "conversations"
	KeyLegacyHistory = "chat-history"
	KeyAvatarURL     = "avatar-url"
	DraftKeyPrefix   = "draft-"
)

// DraftKey returns the storage key holding the unsent draft for a
// conversation.
func DraftKey(conversationID string) string {
	return DraftKeyPrefix + conversationID
}
