package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.MemStore) {
	t.Helper()
	kv := storage.NewMemStore()
	store, err := NewStore(kv)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, kv
}

func TestFreshStoreSeedsDefaultConversation(t *testing.T) {
	store, kv := newTestStore(t)

	if store.Len() != 1 {
		t.Fatalf("expected 1 conversation, got %d", store.Len())
	}

	convo := store.Active()
	if convo == nil {
		t.Fatal("no active conversation")
	}
	if convo.Title != models.DefaultTitle {
		t.Errorf("title = %q, want %q", convo.Title, models.DefaultTitle)
	}
	if len(convo.Messages) != 1 || convo.Messages[0].ID != models.SeedMessageID {
		t.Errorf("expected only the seed message, got %+v", convo.Messages)
	}
	if convo.Messages[0].Text != models.SeedMessageText {
		t.Errorf("seed text = %q", convo.Messages[0].Text)
	}

	// The fresh collection is persisted immediately.
	if _, ok := kv.Get(models.KeyConversations); !ok {
		t.Error("fresh collection not persisted")
	}
}

func TestStoreReloadsPersistedCollection(t *testing.T) {
	store, kv := newTestStore(t)

	convo, err := store.Create()
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.Rename(convo.ID, "Groceries"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if err := store.AppendMessages(convo.ID, models.Message{
		ID: models.NewMessageID(), Sender: models.SenderUser, Text: "milk and eggs",
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	reloaded, err := NewStore(kv)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	got, err := reloaded.Get(convo.ID)
	if err != nil {
		t.Fatalf("conversation lost on reload: %v", err)
	}
	if got.Title != "Groceries" || len(got.Messages) != 2 {
		t.Errorf("reloaded conversation mismatch: %+v", got)
	}
}

func TestCorruptCollectionStartsFresh(t *testing.T) {
	kv := storage.NewMemStore()
	if err := kv.Set(models.KeyConversations, "{not json"); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(kv)
	if err != nil {
		t.Fatalf("corrupt data should not be fatal: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected a fresh default conversation, got %d", store.Len())
	}
	if store.Active() == nil {
		t.Error("no active conversation after recovery")
	}
}

func TestLegacyHistoryMigration(t *testing.T) {
	kv := storage.NewMemStore()

	legacy := []models.Message{
		{ID: models.SeedMessageID, Sender: models.SenderAssistant, Text: models.SeedMessageText},
		{ID: "u1", Sender: models.SenderUser, Text: "remember this"},
		{ID: "a1", Sender: models.SenderAssistant, Text: "noted"},
	}
	data, _ := json.Marshal(legacy)
	if err := kv.Set(models.KeyLegacyHistory, string(data)); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(kv)
	if err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	convo := store.Active()
	if convo.Title != "Previous Chat" {
		t.Errorf("migrated title = %q", convo.Title)
	}
	if len(convo.Messages) != 3 {
		t.Errorf("migrated messages = %d", len(convo.Messages))
	}

	if _, ok := kv.Get(models.KeyLegacyHistory); ok {
		t.Error("legacy key not removed after migration")
	}
	if _, ok := kv.Get(models.KeyConversations); !ok {
		t.Error("migrated collection not persisted")
	}
}

func TestLegacySeedOnlyHistoryIsDiscarded(t *testing.T) {
	kv := storage.NewMemStore()

	legacy := []models.Message{
		{ID: models.SeedMessageID, Sender: models.SenderAssistant, Text: models.SeedMessageText},
	}
	data, _ := json.Marshal(legacy)
	if err := kv.Set(models.KeyLegacyHistory, string(data)); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(kv)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if store.Active().Title == "Previous Chat" {
		t.Error("a seed-only history should not be migrated")
	}
	if _, ok := kv.Get(models.KeyLegacyHistory); ok {
		t.Error("legacy key should be removed even when not migrated")
	}
}

func TestCreateActivatesAndOrdersFirst(t *testing.T) {
	store, _ := newTestStore(t)

	convo, err := store.Create()
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if store.ActiveID() != convo.ID {
		t.Error("new conversation not active")
	}
	if list := store.List(); list[0].ID != convo.ID {
		t.Error("new conversation not first in listing")
	}
}

func TestSelectUnknownIDIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)
	active := store.ActiveID()

	if store.Select("no-such-id") {
		t.Error("selecting an unknown id should report false")
	}
	if store.ActiveID() != active {
		t.Error("active id changed by failed select")
	}
}

func TestDeleteLastConversationRecreatesDefault(t *testing.T) {
	store, _ := newTestStore(t)
	originalID := store.ActiveID()

	if err := store.Delete(originalID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("expected the collection to stay non-empty, got %d", store.Len())
	}
	fresh := store.Active()
	if fresh == nil || fresh.ID == originalID {
		t.Error("expected a fresh replacement conversation")
	}
	if fresh.Title != models.DefaultTitle || len(fresh.Messages) != 1 {
		t.Errorf("replacement is not a default conversation: %+v", fresh)
	}
}

func TestDeleteActivePromotesNewestSurvivor(t *testing.T) {
	store, _ := newTestStore(t)

	older, _ := store.Create()
	time.Sleep(2 * time.Millisecond)
	newer, _ := store.Create()
	time.Sleep(2 * time.Millisecond)
	newest, _ := store.Create()

	if err := store.Delete(newest.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if store.ActiveID() != newer.ID {
		t.Errorf("active = %s, want newest survivor %s", store.ActiveID(), newer.ID)
	}
	_ = older
}

func TestDeleteInactiveKeepsActive(t *testing.T) {
	store, _ := newTestStore(t)

	other, _ := store.Create()
	active, _ := store.Create()

	if err := store.Delete(other.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if store.ActiveID() != active.ID {
		t.Error("deleting an inactive conversation changed the selection")
	}
}

func TestDeleteClearsDraft(t *testing.T) {
	store, kv := newTestStore(t)
	drafts := NewDrafts(kv)

	convo, _ := store.Create()
	if err := drafts.Save(convo.ID, "unfinished"); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(convo.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if draft := drafts.Load(convo.ID); draft != "" {
		t.Errorf("draft survived deletion: %q", draft)
	}
}

func TestPruneSingleConversationIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)

	// Backdate the only conversation far past any cutoff.
	store.Active().CreatedAt = time.Now().Add(-90 * 24 * time.Hour)

	removed, err := store.PruneOlderThan(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 0 || store.Len() != 1 {
		t.Errorf("prune should never empty the collection: removed=%d len=%d", removed, store.Len())
	}
}

func TestPruneRemovesOldConversations(t *testing.T) {
	store, _ := newTestStore(t)

	old, _ := store.Create()
	old.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)
	recent, _ := store.Create()

	removed, err := store.PruneOlderThan(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	// The seed conversation is recent, so only the backdated one goes.
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := store.Get(old.ID); err == nil {
		t.Error("old conversation survived prune")
	}
	if _, err := store.Get(recent.ID); err != nil {
		t.Error("recent conversation was pruned")
	}
}

func TestPruneTotalWipeKeepsNewest(t *testing.T) {
	store, _ := newTestStore(t)

	// Backdate everything, with distinct ages.
	store.Active().CreatedAt = time.Now().Add(-100 * 24 * time.Hour)
	second, _ := store.Create()
	second.CreatedAt = time.Now().Add(-80 * 24 * time.Hour)
	newest, _ := store.Create()
	newest.CreatedAt = time.Now().Add(-40 * 24 * time.Hour)

	removed, err := store.PruneOlderThan(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}

	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one survivor, got %d", store.Len())
	}
	if store.ActiveID() != newest.ID {
		t.Errorf("survivor should be the newest conversation, active = %s", store.ActiveID())
	}
}

func TestRenamePersists(t *testing.T) {
	store, kv := newTestStore(t)
	convo := store.Active()

	if err := store.Rename(convo.ID, "Trip Planning"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	reloaded, err := NewStore(kv)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Active().Title != "Trip Planning" {
		t.Errorf("rename not persisted, got %q", reloaded.Active().Title)
	}
}

func TestUpdateMessageReplacesByID(t *testing.T) {
	store, _ := newTestStore(t)
	convo := store.Active()

	placeholder := models.Message{ID: "p1", Sender: models.SenderAssistant}
	if err := store.AppendMessages(convo.ID, placeholder); err != nil {
		t.Fatal(err)
	}

	placeholder.Text = "streamed so far"
	if err := store.UpdateMessage(convo.ID, placeholder); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if got := convo.LastMessage().Text; got != "streamed so far" {
		t.Errorf("message not updated, got %q", got)
	}

	if err := store.UpdateMessage(convo.ID, models.Message{ID: "ghost"}); err == nil {
		t.Error("updating an unknown message should fail")
	}
}

func TestListIsNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)

	store.Active().CreatedAt = time.Now().Add(-time.Hour)
	mid, _ := store.Create()
	mid.CreatedAt = time.Now().Add(-time.Minute)
	newest, _ := store.Create()

	list := store.List()
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].ID != newest.ID || list[1].ID != mid.ID {
		t.Errorf("unexpected ordering: %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}
