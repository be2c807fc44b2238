package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/asha/dude/internal/chat"
	"github.com/asha/dude/internal/history"
	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/render"
)

// Animation tick message
type animationTickMsg time.Time

// Message types for the TUI
type (
	// streamUpdateMsg fires whenever the pipeline persists a new snapshot.
	streamUpdateMsg struct{}
	// sendDoneMsg fires when a send finishes, successfully or not.
	sendDoneMsg struct {
		err error
	}
)

// Model represents the TUI state
type Model struct {
	pipeline *chat.Pipeline
	store    *history.Store
	drafts   *history.Drafts

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	loading        bool
	ready          bool
	err            error
	animationFrame int
	voiceOutput    bool

	// Conversation drawer state
	drawer drawerState

	// updates carries pipeline notifications into the bubbletea loop.
	updates chan struct{}

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model
func NewChatModel(pipeline *chat.Pipeline, store *history.Store, drafts *history.Drafts) Model {
	ta := textarea.New()
	ta.Placeholder = "Message Dude..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		pipeline:    pipeline,
		store:       store,
		drafts:      drafts,
		textarea:    ta,
		spinner:     s,
		voiceOutput: pipeline.VoiceOutput,
		updates:     make(chan struct{}, 64),
	}

	// Restore the unsent draft of the active conversation.
	if drafts != nil {
		if draft := drafts.Load(store.ActiveID()); draft != "" {
			m.textarea.SetValue(draft)
		}
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.waitForUpdate(),
	)
}

// animationTick returns a command that sends animation tick messages
func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// waitForUpdate blocks on the pipeline notification channel. It re-arms
// itself from Update, so exactly one listener is alive at a time.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.updates
		return streamUpdateMsg{}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.drawer.open {
		return m.updateDrawer(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.textarea.SetWidth(contentWidth - 4)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
			m.textarea.SetWidth(contentWidth - 4)
		}
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.saveDraft()
			return m, tea.Quit

		case "esc":
			if m.loading {
				// The stream keeps folding in the background; esc only
				// dismisses the animation.
				m.loading = false
			} else {
				m.saveDraft()
				return m, tea.Quit
			}

		case "ctrl+n":
			if !m.loading {
				m.saveDraft()
				if _, err := m.pipeline.NewChat(); err != nil {
					m.err = err
				} else {
					m.textarea.Reset()
					m.err = nil
					m.updateViewport()
				}
			}

		case "ctrl+v":
			m.voiceOutput = !m.voiceOutput
			m.pipeline.VoiceOutput = m.voiceOutput

		case "ctrl+o":
			if !m.loading {
				m.saveDraft()
				m.openDrawer()
			}

		case "enter":
			if !m.loading && strings.TrimSpace(m.textarea.Value()) != "" {
				input := strings.TrimSpace(m.textarea.Value())
				if input == "exit" || input == "quit" || input == "/exit" || input == "/quit" {
					m.saveDraft()
					return m, tea.Quit
				}

				if input == "/chats" || input == "/history" {
					m.textarea.Reset()
					m.openDrawer()
					return m, nil
				}

				m.loading = true
				m.err = nil
				m.animationFrame = 0
				m.textarea.Reset()

				return m, tea.Batch(
					m.sendMessage(input),
					m.spinner.Tick,
					animationTick(),
				)
			}
		}

	case streamUpdateMsg:
		m.updateViewport()
		m.viewport.GotoBottom()
		cmds = append(cmds, m.waitForUpdate())

	case sendDoneMsg:
		m.loading = false
		m.err = msg.err
		m.updateViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.loading {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Only pass KeyMsg to the textarea to prevent escape sequence leaks
	if !m.loading {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// sendMessage runs one pipeline turn off the UI goroutine. Snapshot
// notifications are forwarded through the updates channel; a full channel
// drops the notification since a newer one is already pending.
func (m Model) sendMessage(text string) tea.Cmd {
	updates := m.updates
	pipeline := m.pipeline
	return func() tea.Msg {
		err := pipeline.Send(context.Background(), text, nil, func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		})
		return sendDoneMsg{err: err}
	}
}

// saveDraft stashes the unsent input for the active conversation.
func (m Model) saveDraft() {
	if m.drafts == nil {
		return
	}
	_ = m.drafts.Save(m.store.ActiveID(), m.textarea.Value())
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	if m.drawer.open {
		return m.renderDrawer()
	}

	var sections []string
	contentWidth := m.width - 4

	convo := m.store.Active()
	title := models.DefaultTitle
	if convo != nil {
		title = convo.Title
	}

	headerParts := []string{
		titleStyle.Render("✦ Dude"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(title),
	}
	if m.voiceOutput {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			drawerValueStyle.Render("🔊 voice"),
		)
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center, headerParts...)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	var messagesContent string
	if convo == nil || !convo.HasRealExchange() && len(convo.Messages) <= 1 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}

	messagesPanel := messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent)
	sections = append(sections, messagesPanel)

	var inputContent string
	if m.loading {
		inputContent = m.renderLoadingAnimation()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the welcome screen when no real exchange exists yet
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	icon := welcomeIconStyle.Width(width).Render("✦")
	title := welcomeTitleStyle.Width(width).Render(models.SeedMessageText)
	subtitle := welcomeStyle.Width(width).Render("Ask me anything, brainstorm a mind map, or plan your day")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		icon,
		"",
		title,
		"",
		subtitle,
		"",
	)

	contentHeight := lipgloss.Height(content)
	topPadding := (height - contentHeight) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders a colorful animated loading indicator
func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spinIdx := frame % len(chars)
	spinColor := gradientColors[frame%len(gradientColors)]
	spin := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 20
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)

		style := lipgloss.NewStyle().Foreground(gradientColors[colorIdx])
		bar.WriteString(style.Render(barChars[charIdx]))
	}

	dots := ""
	numDots := (frame / 3) % 4
	for i := 0; i < numDots; i++ {
		dotColor := gradientColors[(frame+i)%len(gradientColors)]
		dots += lipgloss.NewStyle().Foreground(dotColor).Render("●")
	}
	for i := numDots; i < 3; i++ {
		dots += lipgloss.NewStyle().Foreground(colorTextMute).Render("○")
	}

	text := lipgloss.NewStyle().Foreground(colorText).Render(" Dude is thinking ")

	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, dots)
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"^N", "New chat"},
		{"^O", "Chats"},
		{"^V", "Voice"},
		{"Esc", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		item := lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		)
		items = append(items, item)
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(items, "  │  "))
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content with the active
// conversation's messages.
func (m *Model) updateViewport() {
	convo := m.store.Active()
	if convo == nil {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range convo.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Sender == models.SenderUser {
			label := userLabelStyle.Render("⬤ You")
			text := msg.Text
			if n := len(msg.Attachments); n > 0 {
				text += hintStyle.Render(fmt.Sprintf("\n📎 %d attachment(s)", n))
			}
			bubble := userBubbleStyle.Width(bubbleWidth).Render(text)
			content.WriteString(label + "\n" + bubble)
		} else {
			label := assistantLabelStyle.Render("✦ Dude")
			content.WriteString(label + "\n")
			content.WriteString(m.renderAssistantBubble(msg, bubbleWidth))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// renderAssistantBubble renders one assistant message, including sources
// and tool payloads.
func (m *Model) renderAssistantBubble(msg models.Message, bubbleWidth int) string {
	body := msg.Text
	if body == "" {
		body = "…"
	}

	rendered, err := render.MarkdownWithWidth(body, bubbleWidth-4)
	if err != nil {
		rendered = body
	}
	rendered = strings.TrimRight(rendered, "\n")

	var parts []string
	parts = append(parts, rendered)

	if msg.MindMap != nil {
		var mind strings.Builder
		mind.WriteString("🧠 Mind map\n")
		writeMindMapBranch(&mind, msg.MindMap, 0)
		parts = append(parts, toolCardStyle.Render(strings.TrimRight(mind.String(), "\n")))
	}

	if msg.CalendarEvent != nil {
		event := fmt.Sprintf("📅 %s — %s (%d min)",
			msg.CalendarEvent.Title,
			msg.CalendarEvent.StartTime.Format("Mon Jan 2 15:04"),
			msg.CalendarEvent.DurationMinutes,
		)
		parts = append(parts, toolCardStyle.Render(event))
	}

	if len(msg.Sources) > 0 {
		var srcs strings.Builder
		srcs.WriteString("Sources:")
		for _, src := range msg.Sources {
			title := src.Title
			if title == "" {
				title = src.URI
			}
			srcs.WriteString("\n  • " + title)
		}
		parts = append(parts, sourcesStyle.Render(srcs.String()))
	}

	joined := strings.Join(parts, "\n")
	return assistantBubbleStyle.Width(bubbleWidth).Render(joined)
}

func writeMindMapBranch(sb *strings.Builder, node *models.MindMapNode, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("• ")
	sb.WriteString(node.Title)
	sb.WriteString("\n")
	for i := range node.Children {
		writeMindMapBranch(sb, &node.Children[i], depth+1)
	}
}

// RunChat starts the chat TUI
func RunChat(pipeline *chat.Pipeline, store *history.Store, drafts *history.Drafts) error {
	m := NewChatModel(pipeline, store, drafts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
