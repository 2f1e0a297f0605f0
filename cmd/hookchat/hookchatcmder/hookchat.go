package hookchatcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/hookchat/cmd/hookchat/chat"
	clearcmder "github.com/papercomputeco/hookchat/cmd/hookchat/clear"
	exportcmder "github.com/papercomputeco/hookchat/cmd/hookchat/export"
	historycmder "github.com/papercomputeco/hookchat/cmd/hookchat/history"
	sendcmder "github.com/papercomputeco/hookchat/cmd/hookchat/send"
	"github.com/papercomputeco/hookchat/cmd/hookchat/session"
	"github.com/papercomputeco/hookchat/pkg/config"
)

const hookchatLongDesc string = `hookchat is a terminal chat client for webhook-driven automations.

Every message is POSTed to a webhook (JSON, or multipart when a file
is attached) and the webhook's reply is shown as the assistant's
answer. The conversation is stored locally and survives restarts.

Settings come from ~/.hookchat/config.toml, HOOKCHAT_* environment
variables and flags, in increasing order of precedence.`

const hookchatShortDesc string = "Chat with a webhook from the terminal"

func NewHookchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hookchat",
		Short:        hookchatShortDesc,
		Long:         hookchatLongDesc,
		Version:      config.Version,
		SilenceUsage: true,
	}

	session.AddFlags(cmd)

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(sendcmder.NewSendCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(exportcmder.NewExportCmd())
	cmd.AddCommand(clearcmder.NewClearCmd())

	return cmd
}
