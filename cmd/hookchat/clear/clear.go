package clearcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/hookchat/cmd/hookchat/session"
	"github.com/papercomputeco/hookchat/pkg/conversation"
)

const clearLongDesc string = `Delete every stored message.

Asks for confirmation when run in a terminal. Without a terminal,
--yes is required.

Examples:
  hookchat clear
  hookchat clear --yes`

const clearShortDesc string = "Delete the stored conversation"

// ErrNotInteractive is returned when confirmation is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("refusing to clear without --yes: stdin is not a terminal")

type clearCommander struct {
	yes        bool
	isTerminal func() bool
}

func NewClearCmd() *cobra.Command {
	return newClearCmd(&clearCommander{
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	})
}

func newClearCmd(cmder *clearCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: clearShortDesc,
		Long:  clearLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Clear without asking")

	return cmd
}

func (c *clearCommander) run(ctx context.Context, cmd *cobra.Command) error {
	if !c.yes && !c.isTerminal() {
		return ErrNotInteractive
	}

	sess, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	count := len(sess.Store.Messages())
	if count == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear.")
		return nil
	}

	err = sess.Store.Clear(ctx, func() bool {
		if c.yes {
			return true
		}
		return c.confirm(cmd, count)
	})
	if errors.Is(err, conversation.ErrNotConfirmed) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not clear conversation: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d messages.\n", count)
	return nil
}

func (c *clearCommander) confirm(cmd *cobra.Command, count int) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "Clear all %d messages? [y/N] ", count)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
