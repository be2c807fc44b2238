package storage

import (
	"sort"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.Set("greeting", "hello"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, ok := store.Get("greeting")
	if !ok || got != "hello" {
		t.Errorf("get = %q, %v", got, ok)
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("missing key reported as present")
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set("conversations", `[{"id":"c1"}]`); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reopened.Get("conversations")
	if !ok || got != `[{"id":"c1"}]` {
		t.Errorf("value lost across reopen: %q, %v", got, ok)
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// Keys with path separators and spaces must not escape the base dir.
	weird := []string{"draft-convo/123", "../escape", "a key with spaces"}
	for _, key := range weird {
		if err := store.Set(key, "v:"+key); err != nil {
			t.Fatalf("set %q failed: %v", key, err)
		}
	}
	for _, key := range weird {
		got, ok := store.Get(key)
		if !ok || got != "v:"+key {
			t.Errorf("get %q = %q, %v", key, got, ok)
		}
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	sort.Strings(keys)
	want := append([]string(nil), weird...)
	sort.Strings(want)
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range keys {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestFileStoreRemove(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove("k"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := store.Get("k"); ok {
		t.Error("key survived removal")
	}

	// Removing a missing key is not an error.
	if err := store.Remove("never-there"); err != nil {
		t.Errorf("removing a missing key errored: %v", err)
	}
}

func TestMemStoreBehavesLikeFileStore(t *testing.T) {
	store := NewMemStore()

	if err := store.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if got, ok := store.Get("k"); !ok || got != "v" {
		t.Errorf("get = %q, %v", got, ok)
	}
	if err := store.Remove("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("k"); ok {
		t.Error("key survived removal")
	}
	if err := store.Remove("missing"); err != nil {
		t.Errorf("removing a missing key errored: %v", err)
	}
}
