// Package tui is the interactive chat screen: a transcript viewport, a
// history side panel and a single input line.
package tui

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/papercomputeco/hookchat/pkg/chat"
	"github.com/papercomputeco/hookchat/pkg/conversation"
	"github.com/papercomputeco/hookchat/pkg/render"
	"github.com/papercomputeco/hookchat/pkg/webhook"
)

type mode int

const (
	modeChat mode = iota
	modeConfirmClear
)

const (
	panelWidth         = 34
	minWidthForPanel   = 90
	chromeHeight       = 4 // title, status, input, help
	defaultPrompt      = "> "
	confirmClearPrompt = "Clear all messages? [y/N] "
)

// Conversation is the part of the conversation store the screen uses.
type Conversation interface {
	Messages() []chat.Message
	History(limit int) []chat.Message
	IsPlaceholder(m chat.Message) bool
	Clear(ctx context.Context, confirm func() bool) error
	ExportSnapshot() ([]byte, error)
}

// Submitter sends one user turn to the webhook.
type Submitter interface {
	Submit(ctx context.Context, text string, attachment *webhook.Attachment) (webhook.Outcome, error)
	Endpoint() string
}

// Options tune the screen.
type Options struct {
	// Markdown renders assistant replies with glamour using MarkdownStyle.
	Markdown      bool
	MarkdownStyle string

	// HistoryLimit caps the side panel; zero uses the conversation default.
	HistoryLimit int
}

// changedMsg is sent whenever the store mutates.
type changedMsg struct{}

// submittedMsg reports the end of one submission.
type submittedMsg struct {
	outcome webhook.Outcome
	err     error
}

// statusMsg replaces the status line.
type statusMsg struct {
	text  string
	isErr bool
}

type Model struct {
	ctx    context.Context
	conv   Conversation
	sender Submitter
	logger *zap.Logger
	opts   Options

	transcript *render.Renderer
	panel      *render.Renderer
	viewport   viewport.Model
	input      textinput.Model

	width     int
	height    int
	mode      mode
	showPanel bool

	attachment string // path attached to the next submission
	inFlight   int
	status     statusMsg
	quitting   bool
}

func NewModel(ctx context.Context, conv Conversation, sender Submitter, logger *zap.Logger, opts Options) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = conversation.DefaultHistoryLimit
	}

	ti := textinput.New()
	ti.Prompt = defaultPrompt
	ti.Placeholder = "Type a message or /help"
	ti.CharLimit = 4000
	ti.Focus()

	m := Model{
		ctx:      ctx,
		conv:     conv,
		sender:   sender,
		logger:   logger,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(80, 20),
	}
	m.resize(100, 30)
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case changedMsg:
		m.refresh()
		return m, nil

	case submittedMsg:
		m.inFlight--
		if msg.err != nil {
			m.logger.Warn("submission failed", zap.Error(msg.err))
			m.status = statusMsg{text: msg.err.Error(), isErr: true}
		}
		m.refresh()
		return m, nil

	case statusMsg:
		m.status = msg
		m.refresh()
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		switch m.mode {
		case modeConfirmClear:
			return m.updateConfirmClear(msg)
		default:
			return m.updateChat(msg)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if strings.HasPrefix(value, "/") {
			return m.runCommand(value)
		}
		return m.submit(value)

	case "esc":
		if m.attachment != "" {
			m.attachment = ""
			m.status = statusMsg{text: "Attachment removed."}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirmClear(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.endConfirm()
		m.status = statusMsg{text: "Clear cancelled."}
		return m, nil

	case "enter":
		answer := strings.ToLower(strings.TrimSpace(m.input.Value()))
		m.endConfirm()
		confirmed := answer == "y" || answer == "yes"
		return m, clearCmd(m.ctx, m.conv, confirmed)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) endConfirm() {
	m.mode = modeChat
	m.input.Reset()
	m.input.Prompt = defaultPrompt
}

// submit starts one request. The store renders the user entry and the
// placeholder as the request begins, so nothing is drawn here.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if text == "" && m.attachment == "" {
		return m, nil
	}

	path := m.attachment
	m.attachment = ""
	m.inFlight++
	m.status = statusMsg{}
	return m, submitCmd(m.ctx, m.sender, text, path)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.showPanel = width >= minWidthForPanel

	transcriptWidth := width
	if m.showPanel {
		transcriptWidth = width - panelWidth
	}

	var opts []render.Option
	if m.opts.Markdown {
		opts = append(opts, render.WithMarkdown(m.opts.MarkdownStyle))
	}
	m.transcript = render.New(transcriptWidth, opts...)
	m.panel = render.New(panelWidth - 2)

	m.viewport.Width = transcriptWidth
	m.viewport.Height = max(1, height-chromeHeight)
	m.input.Width = max(10, width-lipgloss.Width(m.input.Prompt)-2)
	m.refresh()
}

// refresh redraws the transcript and keeps the newest message in view.
func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript.Transcript(m.conv.Messages(), m.conv.IsPlaceholder))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := titleStyle.Render("hookchat")
	endpoint := dimStyle.Render(render.Sanitize(m.sender.Endpoint()))
	b.WriteString(title + " " + endpoint + "\n")

	body := m.viewport.View()
	if m.showPanel {
		panel := lipgloss.NewStyle().
			Width(panelWidth).
			Height(m.viewport.Height).
			MaxHeight(m.viewport.Height).
			Render(m.panel.HistoryPanel(m.conv.History(m.opts.HistoryLimit)))
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, panel)
	}
	b.WriteString(body + "\n")

	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(helpStyle.Render("  Enter: send  PgUp/PgDn: scroll  /help: commands  Ctrl+C: quit"))

	return b.String()
}

func (m Model) renderStatus() string {
	var parts []string
	if m.attachment != "" {
		parts = append(parts, attachmentStyle.Render("📎 "+filepath.Base(m.attachment)))
	}
	if m.inFlight > 0 {
		parts = append(parts, dimStyle.Render("waiting for webhook..."))
	}
	if m.status.text != "" {
		style := statusBarStyle
		if m.status.isErr {
			style = errorStyle
		}
		parts = append(parts, style.Render(render.Sanitize(m.status.text)))
	}
	return strings.Join(parts, " ")
}
