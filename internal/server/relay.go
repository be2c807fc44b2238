package server

import (
	"bufio"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/asha/dude/internal/models"
)

// upstreamReader converts the upstream SSE event stream into fragments. Each
// "data:" event may carry text deltas, grounding sources, inline images and
// tool calls at once; they all land on the same fragment.
type upstreamReader struct {
	r *bufio.Reader
}

func newUpstreamReader(body io.Reader) *upstreamReader {
	return &upstreamReader{r: bufio.NewReader(body)}
}

// Next returns the fragment for the next data event, or io.EOF when the
// upstream stream ends. Non-data lines (comments, blank keep-alives) are
// skipped.
func (u *upstreamReader) Next() (*models.Fragment, error) {
	for {
		line, err := u.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}

		trimmed := strings.TrimSpace(line)
		if payload, ok := strings.CutPrefix(trimmed, "data:"); ok {
			payload = strings.TrimSpace(payload)
			if payload != "" && payload != "[DONE]" && gjson.Valid(payload) {
				return translateEvent(payload), nil
			}
		}

		if err == io.EOF {
			return nil, io.EOF
		}
	}
}

// translateEvent maps one upstream response chunk onto the wire fragment
// shape the client understands.
func translateEvent(payload string) *models.Fragment {
	frag := &models.Fragment{}
	candidate := gjson.Get(payload, "candidates.0")

	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		if text := part.Get("text"); text.Exists() {
			frag.Text += text.String()
		}
		if inline := part.Get("inlineData"); inline.Exists() {
			frag.Attachment = &models.Attachment{
				MimeType: inline.Get("mimeType").String(),
				Data:     inline.Get("data").String(),
			}
		}
		if call := part.Get("functionCall"); call.Exists() {
			translateToolCall(frag, call)
		}
		return true
	})

	candidate.Get("groundingMetadata.groundingChunks").ForEach(func(_, chunk gjson.Result) bool {
		web := chunk.Get("web")
		if uri := web.Get("uri").String(); uri != "" {
			frag.Sources = append(frag.Sources, models.Source{
				URI:   uri,
				Title: web.Get("title").String(),
			})
		}
		return true
	})

	return frag
}

func translateToolCall(frag *models.Fragment, call gjson.Result) {
	args := call.Get("args")
	switch call.Get("name").String() {
	case toolCreateMindMap:
		frag.MindMap = parseMindMapNode(args.Get("root"))
	case toolScheduleEvent:
		event := &models.CalendarEvent{
			Title:           args.Get("title").String(),
			DurationMinutes: int(args.Get("durationMinutes").Int()),
		}
		if ts, err := parseEventTime(args.Get("startTime").String()); err == nil {
			event.StartTime = ts
			frag.CalendarEvent = event
		}
	}
}

func parseMindMapNode(node gjson.Result) *models.MindMapNode {
	if !node.Exists() {
		return nil
	}
	out := &models.MindMapNode{Title: node.Get("title").String()}
	node.Get("children").ForEach(func(_, child gjson.Result) bool {
		if parsed := parseMindMapNode(child); parsed != nil {
			out.Children = append(out.Children, *parsed)
		}
		return true
	})
	return out
}
