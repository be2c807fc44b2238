package history

import (
	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/storage"
)

// Drafts persists per-conversation unsent input text.
type Drafts struct {
	kv storage.KV
}

// NewDrafts creates a draft store over kv.
func NewDrafts(kv storage.KV) *Drafts {
	return &Drafts{kv: kv}
}

// Load returns the saved draft for a conversation, or empty.
func (d *Drafts) Load(conversationID string) string {
	text, _ := d.kv.Get(models.DraftKey(conversationID))
	return text
}

// Save persists non-empty draft text; empty text removes the key so no
// empty-string entries linger.
func (d *Drafts) Save(conversationID, text string) error {
	if text == "" {
		return d.kv.Remove(models.DraftKey(conversationID))
	}
	return d.kv.Set(models.DraftKey(conversationID), text)
}

// Clear removes the draft for a conversation.
func (d *Drafts) Clear(conversationID string) error {
	return d.kv.Remove(models.DraftKey(conversationID))
}
