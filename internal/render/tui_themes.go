package render

import (
	"github.com/charmbracelet/lipgloss"
)

// TUITheme defines the color scheme for the terminal interface.
type TUITheme struct {
	Name        string
	Description string

	Background lipgloss.Color
	Surface    lipgloss.Color
	Border     lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

// Built-in TUI themes
var (
	// TokyoNightTheme is the default dark theme.
	TokyoNightTheme = TUITheme{
		Name:        "tokyonight",
		Description: "Tokyo Night - Dark theme with blue accents",

		Background: lipgloss.Color("#1a1b26"),
		Surface:    lipgloss.Color("#24283b"),
		Border:     lipgloss.Color("#414868"),

		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Accent:    lipgloss.Color("#bb9af7"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#f7768e"),

		Text:     lipgloss.Color("#c0caf5"),
		TextDim:  lipgloss.Color("#565f89"),
		TextMute: lipgloss.Color("#3b4261"),
	}

	// LavenderTheme is a softer purple variant.
	LavenderTheme = TUITheme{
		Name:        "lavender",
		Description: "Lavender - Calm purple theme",

		Background: lipgloss.Color("#1e1b2e"),
		Surface:    lipgloss.Color("#2a2640"),
		Border:     lipgloss.Color("#4a4368"),

		Primary:   lipgloss.Color("#a78bfa"),
		Secondary: lipgloss.Color("#7dd3fc"),
		Accent:    lipgloss.Color("#f0abfc"),
		Warning:   lipgloss.Color("#fbbf24"),
		Error:     lipgloss.Color("#fb7185"),

		Text:     lipgloss.Color("#e0def4"),
		TextDim:  lipgloss.Color("#6e6a86"),
		TextMute: lipgloss.Color("#44415a"),
	}
)

// GetTUITheme returns the theme with the given name, falling back to
// Tokyo Night for unknown names.
func GetTUITheme(name string) TUITheme {
	switch name {
	case LavenderTheme.Name:
		return LavenderTheme
	default:
		return TokyoNightTheme
	}
}

// TUIThemeNames returns the names of the available themes.
func TUIThemeNames() []string {
	return []string{TokyoNightTheme.Name, LavenderTheme.Name}
}
