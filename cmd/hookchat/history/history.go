package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/hookchat/cmd/hookchat/session"
	"github.com/papercomputeco/hookchat/pkg/conversation"
	"github.com/papercomputeco/hookchat/pkg/render"
)

const historyLongDesc string = `Print recent messages, newest first.

Each entry is truncated to 120 characters. Use --limit 0 to print
the whole conversation.

Examples:
  hookchat history
  hookchat history --limit 5`

const historyShortDesc string = "Print recent messages"

type historyCommander struct {
	limit int
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", conversation.DefaultHistoryLimit, "Maximum number of entries (0 for all)")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, cmd *cobra.Command) error {
	sess, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	history := sess.Store.History(c.limit)
	if len(history) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No messages yet.")
		return nil
	}

	for _, line := range render.HistoryLines(history) {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
