package chat

import (
	"testing"

	"github.com/asha/dude/internal/models"
)

func TestFoldAppendsTextDeltas(t *testing.T) {
	snapshot := models.Message{ID: "m1", Sender: models.SenderAssistant}

	snapshot = Fold(snapshot, models.Fragment{Text: "Hello"})
	snapshot = Fold(snapshot, models.Fragment{Text: ", "})
	snapshot = Fold(snapshot, models.Fragment{Text: "Asha!"})

	if snapshot.Text != "Hello, Asha!" {
		t.Errorf("expected accumulated text, got %q", snapshot.Text)
	}
}

func TestFoldReplacesSources(t *testing.T) {
	snapshot := models.Message{ID: "m1"}

	snapshot = Fold(snapshot, models.Fragment{
		Sources: []models.Source{{URI: "https://a.example", Title: "A"}},
	})
	snapshot = Fold(snapshot, models.Fragment{
		Sources: []models.Source{
			{URI: "https://b.example", Title: "B"},
			{URI: "https://c.example", Title: "C"},
		},
	})

	if len(snapshot.Sources) != 2 {
		t.Fatalf("expected 2 sources after replacement, got %d", len(snapshot.Sources))
	}
	if snapshot.Sources[0].URI != "https://b.example" {
		t.Errorf("expected replaced source list, got %+v", snapshot.Sources)
	}
}

func TestFoldAppendsAttachmentsInOrder(t *testing.T) {
	snapshot := models.Message{ID: "m1"}

	first := models.Attachment{MimeType: "image/png", Data: "aaa"}
	second := models.Attachment{MimeType: "image/png", Data: "aaa"}

	snapshot = Fold(snapshot, models.Fragment{Attachment: &first})
	snapshot = Fold(snapshot, models.Fragment{Attachment: &second})

	// Duplicates are kept; appending never deduplicates.
	if len(snapshot.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(snapshot.Attachments))
	}
}

func TestFoldOverwritesToolPayloads(t *testing.T) {
	snapshot := models.Message{ID: "m1"}

	snapshot = Fold(snapshot, models.Fragment{
		MindMap: &models.MindMapNode{Title: "first"},
	})
	snapshot = Fold(snapshot, models.Fragment{
		MindMap: &models.MindMapNode{Title: "second"},
	})

	if snapshot.MindMap == nil || snapshot.MindMap.Title != "second" {
		t.Errorf("expected most recent mind map to win, got %+v", snapshot.MindMap)
	}
}

func TestFoldNeverClearsFields(t *testing.T) {
	snapshot := models.Message{ID: "m1"}

	snapshot = Fold(snapshot, models.Fragment{
		Text:    "hello",
		Sources: []models.Source{{URI: "https://a.example"}},
		MindMap: &models.MindMapNode{Title: "root"},
		CalendarEvent: &models.CalendarEvent{
			Title:           "Standup",
			DurationMinutes: 15,
		},
	})

	// A later fragment that lacks a field leaves it untouched.
	snapshot = Fold(snapshot, models.Fragment{Text: " again"})

	if snapshot.Text != "hello again" {
		t.Errorf("unexpected text %q", snapshot.Text)
	}
	if len(snapshot.Sources) != 1 {
		t.Errorf("sources were cleared: %+v", snapshot.Sources)
	}
	if snapshot.MindMap == nil {
		t.Error("mind map was cleared")
	}
	if snapshot.CalendarEvent == nil {
		t.Error("calendar event was cleared")
	}
}

func TestFoldMixedFragment(t *testing.T) {
	snapshot := models.Message{ID: "m1"}

	snapshot = Fold(snapshot, models.Fragment{
		Text:    "grounded answer",
		Sources: []models.Source{{URI: "https://a.example", Title: "A"}},
	})

	if snapshot.Text != "grounded answer" || len(snapshot.Sources) != 1 {
		t.Errorf("mixed fragment not applied: %+v", snapshot)
	}
}

func TestFoldDoesNotAliasPriorSnapshot(t *testing.T) {
	base := models.Message{ID: "m1"}
	base = Fold(base, models.Fragment{
		Attachment: &models.Attachment{MimeType: "image/png", Data: "a"},
	})

	next := Fold(base, models.Fragment{
		Attachment: &models.Attachment{MimeType: "image/png", Data: "b"},
	})

	if len(base.Attachments) != 1 {
		t.Errorf("folding mutated the prior snapshot: %+v", base.Attachments)
	}
	if len(next.Attachments) != 2 {
		t.Errorf("expected 2 attachments in new snapshot, got %d", len(next.Attachments))
	}
}
