package exportcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/hookchat/cmd/hookchat/session"
	"github.com/papercomputeco/hookchat/pkg/conversation"
)

const exportLongDesc string = `Export the whole conversation as pretty-printed JSON.

The file holds the same message objects that are stored locally:
id, role, text, optional meta and createdAt. Pass "-" as the
output to write to stdout.

Examples:
  hookchat export
  hookchat export --output ~/backups/chat.json
  hookchat export -o - | jq '.[].text'`

const exportShortDesc string = "Export the conversation as JSON"

type exportCommander struct {
	output string
}

func NewExportCmd() *cobra.Command {
	cmder := &exportCommander{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.output, "output", "o", conversation.ExportFileName, "Output file, or - for stdout")

	return cmd
}

func (c *exportCommander) run(ctx context.Context, cmd *cobra.Command) error {
	sess, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	data, err := sess.Store.ExportSnapshot()
	if err != nil {
		return err
	}

	if c.output == "-" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	if err := os.WriteFile(c.output, data, 0o644); err != nil {
		return fmt.Errorf("could not write export %s: %w", c.output, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(sess.Store.Messages()), c.output)
	return nil
}
