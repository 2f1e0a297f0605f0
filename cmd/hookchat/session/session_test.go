package session

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/hookchat/pkg/chat"
	"github.com/papercomputeco/hookchat/pkg/config"
	"github.com/papercomputeco/hookchat/pkg/conversation"
	"github.com/papercomputeco/hookchat/pkg/storage/file"
)

var _ = Describe("Session", func() {
	var (
		ctx        context.Context
		tmpDir     string
		configPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		configPath = filepath.Join(tmpDir, "config.toml")
	})

	// open parses args against a command carrying the persistent flags and
	// opens a session from inside its RunE.
	open := func(args []string, opts ...Option) (*Session, *cobra.Command, error) {
		var (
			sess   *Session
			runCmd *cobra.Command
		)
		root := &cobra.Command{Use: "hookchat", SilenceUsage: true, SilenceErrors: true}
		AddFlags(root)
		root.AddCommand(&cobra.Command{
			Use: "probe",
			RunE: func(cmd *cobra.Command, _ []string) error {
				runCmd = cmd
				var err error
				sess, err = Open(cmd.Context(), cmd, opts...)
				return err
			},
		})
		root.SetArgs(append([]string{"probe"}, args...))
		err := root.ExecuteContext(ctx)
		return sess, runCmd, err
	}

	It("uses the config file and lets flags override it", func() {
		cfg := config.Default()
		cfg.WebhookURL = "http://from-file.example/hook"
		cfg.Storage = config.StorageMemory
		cfg.DataDir = tmpDir
		Expect(config.Save(configPath, cfg)).To(Succeed())

		sess, cmd, err := open([]string{"--config", configPath})
		Expect(err).NotTo(HaveOccurred())
		defer sess.Close()
		Expect(sess.ConfigPath).To(Equal(configPath))
		Expect(sess.Gateway.Endpoint()).To(Equal("http://from-file.example/hook"))
		Expect(WebhookPinned(cmd)).To(BeFalse())

		sess2, cmd2, err := open([]string{"--config", configPath, "--webhook", "http://flag.example/hook"})
		Expect(err).NotTo(HaveOccurred())
		defer sess2.Close()
		Expect(sess2.Gateway.Endpoint()).To(Equal("http://flag.example/hook"))
		Expect(WebhookPinned(cmd2)).To(BeTrue())
	})

	It("persists the conversation with the file storage", func() {
		sess, _, err := open([]string{"--config", configPath, "--storage", "file", "--data-dir", tmpDir})
		Expect(err).NotTo(HaveOccurred())

		sess.Store.Append(ctx, chat.RoleUser, "kept on disk", nil)
		Expect(sess.Close()).To(Succeed())

		Expect(filepath.Join(tmpDir, conversation.DefaultKey+".json")).To(BeAnExistingFile())

		driver, err := file.NewDriver(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		reloaded := conversation.New(driver)
		messages := reloaded.Load(ctx)
		Expect(messages).To(HaveLen(1))
		Expect(messages[0].Text).To(Equal("kept on disk"))
	})

	It("persists the conversation with the sqlite storage", func() {
		dataDir := filepath.Join(tmpDir, "nested", "data")
		sess, _, err := open([]string{"--config", configPath, "--storage", "sqlite", "--data-dir", dataDir})
		Expect(err).NotTo(HaveOccurred())

		sess.Store.Append(ctx, chat.RoleUser, "kept in sqlite", nil)
		Expect(sess.Close()).To(Succeed())
		Expect(filepath.Join(dataDir, "hookchat.db")).To(BeAnExistingFile())

		sess2, _, err := open([]string{"--config", configPath, "--storage", "sqlite", "--data-dir", dataDir})
		Expect(err).NotTo(HaveOccurred())
		defer sess2.Close()
		Expect(sess2.Store.Messages()).To(HaveLen(1))
	})

	It("seeds the welcome message when enabled", func() {
		cfg := config.Default()
		cfg.Storage = config.StorageMemory
		cfg.SeedWelcome = true
		cfg.WelcomeText = "hello from config"
		Expect(config.Save(configPath, cfg)).To(Succeed())

		sess, _, err := open([]string{"--config", configPath})
		Expect(err).NotTo(HaveOccurred())
		defer sess.Close()

		messages := sess.Store.Messages()
		Expect(messages).To(HaveLen(1))
		Expect(messages[0].Role).To(Equal(chat.RoleAssistant))
		Expect(messages[0].Text).To(Equal("hello from config"))
	})

	It("rejects an unknown storage backend", func() {
		_, _, err := open([]string{"--config", configPath, "--storage", "redis"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown storage"))
	})

	It("writes logs to the data directory when file logging is requested", func() {
		sess, _, err := open([]string{"--config", configPath, "--storage", "memory", "--data-dir", tmpDir, "--debug"},
			WithFileLogging())
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.Config.Debug).To(BeTrue())
		Expect(sess.Close()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(tmpDir, "hookchat.log"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("session opened"))
	})
})
