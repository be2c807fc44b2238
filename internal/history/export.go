package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/asha/dude/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ExportToMarkdown exports a conversation to Markdown format
func (s *Store) ExportToMarkdown(id string) (string, error) {
	conv, err := s.Get(id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(conv.Title)
	sb.WriteString("\n\n")

	sb.WriteString("**Created:** ")
	sb.WriteString(conv.CreatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Messages:** ")
	sb.WriteString(fmt.Sprintf("%d", len(conv.Messages)))
	sb.WriteString("\n\n---\n\n")

	for i, msg := range conv.Messages {
		role := "User"
		if msg.Sender == models.SenderAssistant {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")

		sb.WriteString(msg.Text)
		sb.WriteString("\n")

		if len(msg.Sources) > 0 {
			sb.WriteString("\nSources:\n")
			for _, src := range msg.Sources {
				sb.WriteString(fmt.Sprintf("- [%s](%s)\n", src.Title, src.URI))
			}
		}

		if len(msg.Attachments) > 0 {
			sb.WriteString(fmt.Sprintf("\n*%d attachment(s)*\n", len(msg.Attachments)))
		}

		if msg.CalendarEvent != nil {
			sb.WriteString(fmt.Sprintf("\n📅 **%s** — %s (%d min)\n",
				msg.CalendarEvent.Title,
				msg.CalendarEvent.StartTime.Format(time.RFC3339),
				msg.CalendarEvent.DurationMinutes))
		}

		if msg.MindMap != nil {
			sb.WriteString("\n")
			writeMindMap(&sb, msg.MindMap, 0)
		}

		if i < len(conv.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String(), nil
}

func writeMindMap(sb *strings.Builder, node *models.MindMapNode, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("- ")
	sb.WriteString(node.Title)
	sb.WriteString("\n")
	for i := range node.Children {
		writeMindMap(sb, &node.Children[i], depth+1)
	}
}

// ExportToJSON exports a conversation to indented JSON format
func (s *Store) ExportToJSON(id string) ([]byte, error) {
	conv, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(conv, "", "  ")
}

// Export serializes a conversation in the requested format.
func (s *Store) Export(id string, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return s.ExportToJSON(id)
	case ExportFormatMarkdown:
		md, err := s.ExportToMarkdown(id)
		if err != nil {
			return nil, err
		}
		return []byte(md), nil
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}
