package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	colorUser      = lipgloss.Color("#7C3AED")
	colorAssistant = lipgloss.Color("#0EA5E9")
	colorMuted     = lipgloss.Color("#6B7280")
	colorBorder    = lipgloss.Color("#374151")
)

// Styles groups the lipgloss styles used by a Renderer.
type Styles struct {
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	PendingBubble   lipgloss.Style
	UserAvatar      lipgloss.Style
	AssistantAvatar lipgloss.Style
	Meta            lipgloss.Style
	PanelTitle      lipgloss.Style
	PanelItem       lipgloss.Style
	Panel           lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	bubble := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	avatar := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)

	return Styles{
		UserBubble:      bubble.BorderForeground(colorUser),
		AssistantBubble: bubble.BorderForeground(colorAssistant),
		PendingBubble:   bubble.BorderForeground(colorMuted).Italic(true),
		UserAvatar:      avatar.Foreground(colorUser),
		AssistantAvatar: avatar.Foreground(colorAssistant),
		Meta:            lipgloss.NewStyle().Foreground(colorMuted),
		PanelTitle:      lipgloss.NewStyle().Bold(true).MarginBottom(1),
		PanelItem:       lipgloss.NewStyle().Foreground(colorMuted),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorBorder).
			PaddingLeft(1),
	}
}

// DisableColor switches lipgloss to plain ASCII output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
