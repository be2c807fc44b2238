package models

// Fragment is one wire-level chunk of a streamed assistant reply.
//
// Fields are not mutually exclusive: a single fragment may carry text and
// sources at the same time. There is no end-of-turn marker; the stream's
// closure is the only termination signal.
type Fragment struct {
	// Text is an incremental delta to append to the accumulated reply.
	Text string `json:"text,omitempty"`
	// Sources is the complete citation list as of this emission; it replaces
	// any previously received list.
	Sources []Source `json:"sources,omitempty"`
	// Attachment is one inline payload to append.
	Attachment *Attachment `json:"attachment,omitempty"`
	// MindMap and CalendarEvent are tool-call payloads; only the most recent
	// of each kind is retained.
	MindMap       *MindMapNode   `json:"mindMapData,omitempty"`
	CalendarEvent *CalendarEvent `json:"calendarEventData,omitempty"`
}

// IsEmpty reports whether the fragment carries no payload at all.
func (f *Fragment) IsEmpty() bool {
	return f.Text == "" && len(f.Sources) == 0 && f.Attachment == nil &&
		f.MindMap == nil && f.CalendarEvent == nil
}
