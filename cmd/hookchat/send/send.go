package sendcmder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/hookchat/cmd/hookchat/session"
	"github.com/papercomputeco/hookchat/pkg/render"
	"github.com/papercomputeco/hookchat/pkg/webhook"
)

const sendLongDesc string = `Send one message to the webhook and print the reply.

The message and the reply are appended to the stored conversation,
exactly as in the interactive chat. HTTP and network failures are
printed as the assistant's reply and recorded the same way.

Examples:
  hookchat send "what's the status of order 1234?"
  hookchat send --file ./invoice.pdf "please file this"
  hookchat send --file ./photo.png
  hookchat send --webhook http://localhost:8080/webhook hello`

const sendShortDesc string = "Send one message to the webhook"

type sendCommander struct {
	filePath string
	strict   bool
}

func NewSendCmd() *cobra.Command {
	cmder := &sendCommander{}

	cmd := &cobra.Command{
		Use:   "send [text...]",
		Short: sendShortDesc,
		Long:  sendLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.filePath, "file", "f", "", "File to attach to the message")
	cmd.Flags().BoolVar(&cmder.strict, "strict", false, "Exit non-zero when the webhook does not reply successfully")

	return cmd
}

func (c *sendCommander) run(ctx context.Context, cmd *cobra.Command, text string) error {
	if strings.TrimSpace(text) == "" && c.filePath == "" {
		return fmt.Errorf("could not send: %w", webhook.ErrEmptySubmission)
	}

	sess, err := session.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	var attachment *webhook.Attachment
	if c.filePath != "" {
		attachment, err = webhook.OpenAttachment(c.filePath)
		if err != nil {
			return err
		}
		defer attachment.Close()
	}

	outcome, err := sess.Gateway.Submit(ctx, text, attachment)
	if err != nil {
		return fmt.Errorf("could not send: %w", err)
	}

	for _, reply := range outcome.Texts() {
		fmt.Fprintln(cmd.OutOrStdout(), render.Sanitize(reply))
	}

	if c.strict && outcome.Kind != webhook.OutcomeReply {
		return errors.New("webhook did not reply successfully: " + outcome.Kind.String())
	}
	return nil
}
