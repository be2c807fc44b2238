// Package chat holds the streaming reducer and the send pipeline.
package chat

import "github.com/asha/dude/internal/models"

// Fold applies one stream fragment to a message snapshot and returns the
// next snapshot. It is a pure function; persisting the result is the
// caller's job.
//
// Field semantics within one turn:
//   - text is a delta, appended to the accumulated text
//   - sources is a complete list per emission and replaces the previous one
//   - attachment is appended, order preserved, no deduplication
//   - mindMapData / calendarEventData overwrite; the most recent of each
//     kind wins
//
// Fields already set are never cleared by a fragment lacking them.
func Fold(snapshot models.Message, frag models.Fragment) models.Message {
	if frag.Text != "" {
		snapshot.Text += frag.Text
	}

	if len(frag.Sources) > 0 {
		sources := make([]models.Source, len(frag.Sources))
		copy(sources, frag.Sources)
		snapshot.Sources = sources
	}

	if frag.Attachment != nil {
		attachments := make([]models.Attachment, len(snapshot.Attachments), len(snapshot.Attachments)+1)
		copy(attachments, snapshot.Attachments)
		snapshot.Attachments = append(attachments, *frag.Attachment)
	}

	if frag.MindMap != nil {
		mm := *frag.MindMap
		snapshot.MindMap = &mm
	}

	if frag.CalendarEvent != nil {
		ev := *frag.CalendarEvent
		snapshot.CalendarEvent = &ev
	}

	return snapshot
}
