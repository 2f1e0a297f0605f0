package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/hookchat/pkg/chat"
)

const (
	// HistoryItemLen bounds each entry of the history panel.
	HistoryItemLen = 120

	timeLayout   = "Jan 2 15:04"
	minWidth     = 20
	avatarUser   = "YOU"
	avatarAssist = "CB"
)

// Renderer draws transcripts and history panels at a fixed width.
type Renderer struct {
	width    int
	styles   Styles
	markdown *glamour.TermRenderer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyles replaces the default styles.
func WithStyles(styles Styles) Option {
	return func(r *Renderer) {
		r.styles = styles
	}
}

// WithMarkdown renders assistant text as markdown with the named glamour
// style ("dark", "light", "notty", ...). Falls back to plain text if the
// style cannot be loaded.
func WithMarkdown(style string) Option {
	return func(r *Renderer) {
		if style == "" {
			style = "dark"
		}
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(r.bubbleWidth()-4),
		)
		if err == nil {
			r.markdown = tr
		}
	}
}

// New creates a Renderer for the given terminal width.
func New(width int, opts ...Option) *Renderer {
	if width < minWidth {
		width = minWidth
	}
	r := &Renderer{
		width:  width,
		styles: DefaultStyles(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Width returns the render width.
func (r *Renderer) Width() int {
	return r.width
}

// Transcript renders messages oldest first. isPending marks the typing
// placeholder, which is drawn muted; it may be nil.
func (r *Renderer) Transcript(messages []chat.Message, isPending func(chat.Message) bool) string {
	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		pending := isPending != nil && isPending(m)
		blocks = append(blocks, r.message(m, pending))
	}
	return strings.Join(blocks, "\n")
}

func (r *Renderer) message(m chat.Message, pending bool) string {
	text := Sanitize(m.Text)

	bubbleStyle := r.styles.AssistantBubble
	avatar := r.styles.AssistantAvatar.Render(avatarAssist)
	align := lipgloss.Left
	if m.Role == chat.RoleUser {
		bubbleStyle = r.styles.UserBubble
		avatar = r.styles.UserAvatar.Render(avatarUser)
		align = lipgloss.Right
	}
	if pending {
		bubbleStyle = r.styles.PendingBubble
	}

	if r.markdown != nil && m.Role == chat.RoleAssistant && !pending {
		if out, err := r.markdown.Render(text); err == nil {
			text = strings.Trim(out, "\n")
		}
	}

	maxWidth := r.bubbleWidth()
	textWidth := lipgloss.Width(text) + 2
	if textWidth > maxWidth {
		textWidth = maxWidth
	}
	bubble := bubbleStyle.Width(textWidth).Render(text)

	meta := r.styles.Meta.Render(m.Role.Label() + " • " + m.CreatedAt.Local().Format(timeLayout))
	column := lipgloss.JoinVertical(align, bubble, meta)

	var row string
	if m.Role == chat.RoleUser {
		row = lipgloss.JoinHorizontal(lipgloss.Top, column, avatar)
	} else {
		row = lipgloss.JoinHorizontal(lipgloss.Top, avatar, column)
	}

	return lipgloss.PlaceHorizontal(r.width, align, row)
}

// HistoryPanel renders history entries (already newest first), one line each.
func (r *Renderer) HistoryPanel(history []chat.Message) string {
	itemWidth := r.width - 2
	lines := make([]string, 0, len(history)+1)
	lines = append(lines, r.styles.PanelTitle.Render("History"))

	if len(history) == 0 {
		lines = append(lines, r.styles.PanelItem.Render("(empty)"))
	}
	for _, m := range history {
		text := strings.Join(strings.Fields(Sanitize(m.Text)), " ")
		text = chat.Truncate(text, HistoryItemLen)
		lines = append(lines, r.styles.PanelItem.Width(itemWidth).MaxHeight(1).Render(chat.Truncate(text, itemWidth)))
	}

	return r.styles.Panel.Render(strings.Join(lines, "\n"))
}

// HistoryLines renders history entries as plain lines for non-interactive output.
func HistoryLines(history []chat.Message) []string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		text := strings.Join(strings.Fields(Sanitize(m.Text)), " ")
		lines = append(lines, m.Role.Label()+": "+chat.Truncate(text, HistoryItemLen))
	}
	return lines
}

func (r *Renderer) bubbleWidth() int {
	w := r.width * 3 / 4
	if w < minWidth-4 {
		w = minWidth - 4
	}
	return w
}
