package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/asha/dude/internal/models"
)

// drawerState holds the conversation drawer overlay state.
type drawerState struct {
	open     bool
	cursor   int
	filter   string
	renaming bool
	rename   string
}

func (m *Model) openDrawer() {
	m.drawer = drawerState{open: true}
}

func (m *Model) closeDrawer() {
	m.drawer = drawerState{}
}

// filteredConversations returns the conversation list filtered by the
// drawer filter, newest first.
func (m Model) filteredConversations() []*models.Conversation {
	list := m.store.List()
	if m.drawer.filter == "" {
		return list
	}

	filter := strings.ToLower(m.drawer.filter)
	var filtered []*models.Conversation
	for _, convo := range list {
		if strings.Contains(strings.ToLower(convo.Title), filter) {
			filtered = append(filtered, convo)
		}
	}
	return filtered
}

// updateDrawer handles updates while the conversation drawer is open
func (m Model) updateDrawer(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if m.drawer.renaming {
			return m.updateRename(msg)
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			m.closeDrawer()

		case "up", "k":
			if n := len(m.filteredConversations()); n > 0 {
				m.drawer.cursor--
				if m.drawer.cursor < 0 {
					m.drawer.cursor = n - 1
				}
			}

		case "down", "j":
			if n := len(m.filteredConversations()); n > 0 {
				m.drawer.cursor++
				if m.drawer.cursor >= n {
					m.drawer.cursor = 0
				}
			}

		case "enter":
			filtered := m.filteredConversations()
			if len(filtered) > 0 && m.drawer.cursor < len(filtered) {
				selected := filtered[m.drawer.cursor]
				if m.pipeline.Select(selected.ID) {
					m.textarea.Reset()
					if m.drafts != nil {
						if draft := m.drafts.Load(selected.ID); draft != "" {
							m.textarea.SetValue(draft)
						}
					}
					m.err = nil
					m.updateViewport()
					m.viewport.GotoBottom()
				}
				m.closeDrawer()
			}

		case "ctrl+n":
			if _, err := m.pipeline.NewChat(); err != nil {
				m.err = err
			} else {
				m.textarea.Reset()
				m.updateViewport()
			}
			m.closeDrawer()

		case "ctrl+d":
			filtered := m.filteredConversations()
			if len(filtered) > 0 && m.drawer.cursor < len(filtered) {
				if err := m.pipeline.Delete(filtered[m.drawer.cursor].ID); err != nil {
					m.err = err
				}
				if m.drawer.cursor >= len(m.filteredConversations()) && m.drawer.cursor > 0 {
					m.drawer.cursor--
				}
				m.updateViewport()
			}

		case "ctrl+r":
			filtered := m.filteredConversations()
			if len(filtered) > 0 && m.drawer.cursor < len(filtered) {
				m.drawer.renaming = true
				m.drawer.rename = filtered[m.drawer.cursor].Title
			}

		case "backspace":
			if len(m.drawer.filter) > 0 {
				m.drawer.filter = m.drawer.filter[:len(m.drawer.filter)-1]
				m.drawer.cursor = 0
			}

		default:
			// Printable characters extend the filter
			if len(msg.String()) == 1 {
				r := []rune(msg.String())[0]
				if r >= ' ' && r <= '~' {
					m.drawer.filter += msg.String()
					m.drawer.cursor = 0
				}
			}
		}
	}

	return m, nil
}

// updateRename handles keys while renaming the selected conversation
func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.drawer.renaming = false
		m.drawer.rename = ""

	case "enter":
		filtered := m.filteredConversations()
		title := strings.TrimSpace(m.drawer.rename)
		if title != "" && len(filtered) > 0 && m.drawer.cursor < len(filtered) {
			if err := m.store.Rename(filtered[m.drawer.cursor].ID, title); err != nil {
				m.err = err
			}
		}
		m.drawer.renaming = false
		m.drawer.rename = ""

	case "backspace":
		if len(m.drawer.rename) > 0 {
			m.drawer.rename = m.drawer.rename[:len(m.drawer.rename)-1]
		}

	default:
		if len(msg.String()) == 1 {
			r := []rune(msg.String())[0]
			if r >= ' ' && r <= '~' {
				m.drawer.rename += msg.String()
			}
		}
	}

	return m, nil
}

// renderDrawer renders the conversation drawer overlay
func (m Model) renderDrawer() string {
	width := m.width - 8
	if width < 40 {
		width = 40
	}

	var content strings.Builder

	content.WriteString(drawerTitleStyle.Render("💬 Conversations"))
	content.WriteString("\n\n")

	if m.drawer.filter != "" {
		content.WriteString(inputLabelStyle.Render("🔍 ") + m.drawer.filter + "_")
		content.WriteString("\n\n")
	}

	filtered := m.filteredConversations()
	switch {
	case len(filtered) == 0 && m.drawer.filter != "":
		content.WriteString(hintStyle.Render("  No conversations match filter"))
		content.WriteString("\n")
	case len(filtered) == 0:
		content.WriteString(hintStyle.Render("  No conversations yet"))
		content.WriteString("\n")
	default:
		maxItems := 8
		startIdx := 0
		if m.drawer.cursor >= maxItems {
			startIdx = m.drawer.cursor - maxItems + 1
		}
		endIdx := startIdx + maxItems
		if endIdx > len(filtered) {
			endIdx = len(filtered)
		}

		if startIdx > 0 {
			content.WriteString(hintStyle.Render("  ↑ more above"))
			content.WriteString("\n")
		}

		activeID := m.store.ActiveID()
		for i := startIdx; i < endIdx; i++ {
			convo := filtered[i]

			if i == m.drawer.cursor && m.drawer.renaming {
				line := drawerCursorStyle.Render("▸ ") + drawerSelectedStyle.Render(m.drawer.rename+"_")
				content.WriteString(line)
				content.WriteString("\n")
				continue
			}

			cursor := "  "
			nameStyle := drawerItemStyle
			if i == m.drawer.cursor {
				cursor = drawerCursorStyle.Render("▸ ")
				nameStyle = drawerSelectedStyle
			}

			marker := "  "
			if convo.ID == activeID {
				marker = drawerValueStyle.Render("● ")
			}

			meta := drawerValueStyle.Render(fmt.Sprintf(" (%d msgs, %s)",
				len(convo.Messages),
				convo.CreatedAt.Format("Jan 2"),
			))

			content.WriteString(cursor + marker + nameStyle.Render(convo.Title) + meta)
			content.WriteString("\n")
		}

		if endIdx < len(filtered) {
			content.WriteString(hintStyle.Render("  ↓ more below"))
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")

	shortcuts := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Open"),
		statusKeyStyle.Render("^N") + statusDescStyle.Render(" New"),
		statusKeyStyle.Render("^R") + statusDescStyle.Render(" Rename"),
		statusKeyStyle.Render("^D") + statusDescStyle.Render(" Delete"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Close"),
	}
	content.WriteString(strings.Join(shortcuts, "  │  "))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2).
		Width(width)

	return boxStyle.Render(content.String())
}
