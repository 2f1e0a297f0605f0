package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/papercomputeco/hookchat/pkg/chat"
	"github.com/papercomputeco/hookchat/pkg/conversation"
)

// Run shows the chat screen until the user quits or ctx is cancelled.
// Every store mutation redraws the screen.
func Run(ctx context.Context, store *conversation.Store, sender Submitter, logger *zap.Logger, opts Options) error {
	m := NewModel(ctx, store, sender, logger, opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	// Send blocks until the program reads the message, and mutations can
	// happen while Update is running.
	store.OnChange(func([]chat.Message) {
		go p.Send(changedMsg{})
	})
	defer store.OnChange(nil)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("could not run chat screen: %w", err)
	}
	return nil
}
