// Package history provides local conversation storage.
package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asha/dude/internal/logging"
	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/storage"
)

// Store owns the conversation collection and the active-conversation id.
//
// The collection is never empty: deleting or pruning the last conversation
// immediately recreates a fresh default one. Every mutating operation
// persists the full collection synchronously; the key/value store is the
// source of truth on cold start.
type Store struct {
	kv storage.KV

	mu            sync.Mutex
	conversations []*models.Conversation
	activeID      string
}

// NewStore loads the conversation collection from kv, migrating any legacy
// single-history record and recovering from corrupt data by starting fresh.
func NewStore(kv storage.KV) (*Store, error) {
	s := &Store{kv: kv}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, ok := s.kv.Get(models.KeyConversations)
	if ok {
		var convos []*models.Conversation
		if err := json.Unmarshal([]byte(raw), &convos); err != nil {
			// Corrupt collection: discard and start fresh.
			logging.Get().Error("discarding corrupt conversation collection: %v", err)
			convos = nil
		}
		if len(convos) > 0 {
			s.conversations = convos
			s.activeID = newestOf(convos).ID
			return nil
		}
	}

	// One-time migration from the legacy single-history key. Only a history
	// holding more than the seed message is worth wrapping.
	if legacy, ok := s.kv.Get(models.KeyLegacyHistory); ok {
		var messages []models.Message
		if err := json.Unmarshal([]byte(legacy), &messages); err == nil && len(messages) > 1 {
			migrated := &models.Conversation{
				ID:        "migrated-" + uuid.NewString(),
				Title:     "Previous Chat",
				Messages:  messages,
				CreatedAt: time.Now(),
			}
			s.conversations = []*models.Conversation{migrated}
			s.activeID = migrated.ID
			if err := s.kv.Remove(models.KeyLegacyHistory); err != nil {
				return err
			}
			return s.persist()
		}
		_ = s.kv.Remove(models.KeyLegacyHistory)
	}

	convo := models.NewConversation()
	s.conversations = []*models.Conversation{convo}
	s.activeID = convo.ID
	return s.persist()
}

// persist writes the full collection. Callers must hold s.mu.
func (s *Store) persist() error {
	data, err := json.Marshal(s.conversations)
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}
	if err := s.kv.Set(models.KeyConversations, string(data)); err != nil {
		return fmt.Errorf("failed to persist conversations: %w", err)
	}
	return nil
}

func newestOf(convos []*models.Conversation) *models.Conversation {
	newest := convos[0]
	for _, c := range convos[1:] {
		if c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	return newest
}

func (s *Store) findLocked(id string) *models.Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Create starts a new conversation, inserts it at the front of the ordering
// and makes it active.
func (s *Store) Create() (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo := models.NewConversation()
	s.conversations = append([]*models.Conversation{convo}, s.conversations...)
	s.activeID = convo.ID
	if err := s.persist(); err != nil {
		return nil, err
	}
	return convo, nil
}

// Select makes id the active conversation. Unknown ids are a silent no-op;
// it reports whether the selection took effect.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(id) == nil {
		return false
	}
	s.activeID = id
	return true
}

// Delete removes a conversation. If it was active, the most recently created
// survivor becomes active; deleting the last conversation recreates a fresh
// default one. The conversation's draft is cleared as well.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(id) == nil {
		return fmt.Errorf("conversation not found: %s", id)
	}

	remaining := s.conversations[:0:0]
	for _, c := range s.conversations {
		if c.ID != id {
			remaining = append(remaining, c)
		}
	}
	s.conversations = remaining

	if err := s.kv.Remove(models.DraftKey(id)); err != nil {
		return err
	}

	if len(s.conversations) == 0 {
		convo := models.NewConversation()
		s.conversations = []*models.Conversation{convo}
		s.activeID = convo.ID
	} else if s.activeID == id {
		s.activeID = newestOf(s.conversations).ID
	}

	return s.persist()
}

// Rename updates a conversation's title. Empty titles are tolerated.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo := s.findLocked(id)
	if convo == nil {
		return fmt.Errorf("conversation not found: %s", id)
	}
	convo.Title = title
	return s.persist()
}

// PruneOlderThan removes conversations created before now-threshold and
// returns how many were removed. It never prunes below one conversation:
// if every conversation is old, the single most recent one is kept. If the
// active conversation is pruned, the newest survivor becomes active.
func (s *Store) PruneOlderThan(threshold time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conversations) <= 1 {
		return 0, nil
	}

	cutoff := time.Now().Add(-threshold)
	kept := s.conversations[:0:0]
	for _, c := range s.conversations {
		if !c.CreatedAt.Before(cutoff) {
			kept = append(kept, c)
		}
	}

	if len(kept) == len(s.conversations) {
		return 0, nil
	}

	if len(kept) == 0 {
		kept = []*models.Conversation{newestOf(s.conversations)}
	}

	removed := len(s.conversations) - len(kept)
	s.conversations = kept

	if s.findLocked(s.activeID) == nil {
		s.activeID = newestOf(s.conversations).ID
	}

	return removed, s.persist()
}

// Get returns the conversation with the given id.
func (s *Store) Get(id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo := s.findLocked(id)
	if convo == nil {
		return nil, fmt.Errorf("conversation not found: %s", id)
	}
	return convo, nil
}

// Active returns the active conversation.
func (s *Store) Active() *models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(s.activeID)
}

// ActiveID returns the active conversation id.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// List returns all conversations sorted by creation time, newest first.
func (s *Store) List() []*models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Conversation, len(s.conversations))
	copy(out, s.conversations)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// AppendMessages appends messages to a conversation and persists.
func (s *Store) AppendMessages(id string, msgs ...models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo := s.findLocked(id)
	if convo == nil {
		return fmt.Errorf("conversation not found: %s", id)
	}
	convo.Messages = append(convo.Messages, msgs...)
	return s.persist()
}

// UpdateMessage replaces the message with snapshot.ID inside the
// conversation and persists. This is how the in-flight placeholder is
// advanced after every fragment.
func (s *Store) UpdateMessage(id string, snapshot models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo := s.findLocked(id)
	if convo == nil {
		return fmt.Errorf("conversation not found: %s", id)
	}
	for i := range convo.Messages {
		if convo.Messages[i].ID == snapshot.ID {
			convo.Messages[i] = snapshot
			return s.persist()
		}
	}
	return fmt.Errorf("message not found: %s", snapshot.ID)
}
