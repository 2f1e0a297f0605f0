package chatcmder

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/hookchat/cmd/hookchat/session"
	"github.com/papercomputeco/hookchat/pkg/config"
	"github.com/papercomputeco/hookchat/pkg/render"
	"github.com/papercomputeco/hookchat/pkg/tui"
	"github.com/papercomputeco/hookchat/pkg/webhook"
)

const chatLongDesc string = `Open the interactive chat screen.

Messages typed here are POSTed to the webhook; replies, HTTP errors
and network failures appear as assistant messages. The conversation
is saved after every change and restored on the next start.

While the screen is open, edits to the config file are picked up
automatically: a new webhook_url applies to the next message unless
--webhook was given. Logs go to log_file, or hookchat.log in the
data directory.

Commands inside the chat:
  /attach <path>   attach a file to the next message
  /detach          drop the pending attachment
  /clear           delete the conversation (asks y/N)
  /export [path]   write the conversation as JSON
  /quit            leave

Examples:
  hookchat chat
  hookchat chat --webhook http://localhost:8080/webhook --storage memory`

const chatShortDesc string = "Open the interactive chat"

type chatCommander struct {
	noWatch bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.noWatch, "no-watch", false, "Do not reload the config file while chatting")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	sess, err := session.Open(ctx, cmd, session.WithFileLogging())
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.Config.NoColor {
		render.DisableColor()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !c.noWatch {
		c.watchConfig(ctx, sess, session.WebhookPinned(cmd))
	}

	return tui.Run(ctx, sess.Store, sess.Gateway, sess.Logger, tui.Options{
		Markdown:      sess.Config.Markdown,
		MarkdownStyle: sess.Config.MarkdownStyle,
	})
}

// watchConfig reloads the config file in the background until ctx is done.
// Only the webhook endpoint is hot-swapped; other settings need a restart.
func (c *chatCommander) watchConfig(ctx context.Context, sess *session.Session, pinned bool) {
	dir := filepath.Dir(sess.ConfigPath)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		sess.Logger.Debug("config directory missing, not watching", zap.String("dir", dir))
		return
	}

	go func() {
		err := config.Watch(ctx, sess.ConfigPath, sess.Logger, func(cfg *config.Config) {
			applyReload(sess.Gateway, sess.Logger, cfg, pinned)
		})
		if err != nil {
			sess.Logger.Warn("config watch stopped", zap.Error(err))
		}
	}()
}

// applyReload points gw at the reloaded webhook URL unless the endpoint was
// pinned on the command line.
func applyReload(gw *webhook.Gateway, logger *zap.Logger, cfg *config.Config, pinned bool) {
	if pinned || cfg.WebhookURL == gw.Endpoint() {
		return
	}
	logger.Info("webhook endpoint changed",
		zap.String("from", gw.Endpoint()),
		zap.String("to", cfg.WebhookURL),
	)
	gw.SetEndpoint(cfg.WebhookURL)
}
