package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papercomputeco/hookchat/pkg/conversation"
	"github.com/papercomputeco/hookchat/pkg/webhook"
)

const helpText = "/attach <path>  /detach  /clear  /export [path]  /quit"

// runCommand handles a slash command typed into the input line.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "attach":
		if arg == "" {
			m.status = statusMsg{text: "usage: /attach <path>", isErr: true}
			return m, nil
		}
		info, err := os.Stat(arg)
		if err != nil {
			m.status = statusMsg{text: fmt.Sprintf("could not attach %s: %v", arg, err), isErr: true}
			return m, nil
		}
		if info.IsDir() {
			m.status = statusMsg{text: fmt.Sprintf("could not attach %s: is a directory", arg), isErr: true}
			return m, nil
		}
		m.attachment = arg
		m.status = statusMsg{text: fmt.Sprintf("Attached %s. It will be sent with your next message.", filepath.Base(arg))}
		return m, nil

	case "detach":
		m.attachment = ""
		m.status = statusMsg{text: "Attachment removed."}
		return m, nil

	case "clear":
		m.mode = modeConfirmClear
		m.input.Prompt = confirmClearPrompt
		m.status = statusMsg{}
		return m, nil

	case "export":
		if arg == "" {
			arg = conversation.ExportFileName
		}
		return m, exportCmd(m.conv, arg)

	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit

	case "help":
		m.status = statusMsg{text: helpText}
		return m, nil

	default:
		m.status = statusMsg{text: fmt.Sprintf("unknown command /%s (try /help)", name), isErr: true}
		return m, nil
	}
}

func submitCmd(ctx context.Context, sender Submitter, text, path string) tea.Cmd {
	return func() tea.Msg {
		var attachment *webhook.Attachment
		if path != "" {
			a, err := webhook.OpenAttachment(path)
			if err != nil {
				return submittedMsg{err: err}
			}
			defer a.Close()
			attachment = a
		}

		outcome, err := sender.Submit(ctx, text, attachment)
		return submittedMsg{outcome: outcome, err: err}
	}
}

func clearCmd(ctx context.Context, conv Conversation, confirmed bool) tea.Cmd {
	return func() tea.Msg {
		err := conv.Clear(ctx, func() bool { return confirmed })
		switch {
		case errors.Is(err, conversation.ErrNotConfirmed):
			return statusMsg{text: "Clear cancelled."}
		case err != nil:
			return statusMsg{text: fmt.Sprintf("could not clear conversation: %v", err), isErr: true}
		}
		return statusMsg{text: "Conversation cleared."}
	}
}

func exportCmd(conv Conversation, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := conv.ExportSnapshot()
		if err != nil {
			return statusMsg{text: err.Error(), isErr: true}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return statusMsg{text: fmt.Sprintf("could not write export %s: %v", path, err), isErr: true}
		}
		return statusMsg{text: fmt.Sprintf("Exported %d bytes to %s", len(data), path)}
	}
}
