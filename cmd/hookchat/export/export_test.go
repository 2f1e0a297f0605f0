package exportcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/hookchat/cmd/hookchat/session"
	"github.com/papercomputeco/hookchat/pkg/chat"
	"github.com/papercomputeco/hookchat/pkg/conversation"
	"github.com/papercomputeco/hookchat/pkg/storage/file"
)

var _ = Describe("Export Command", func() {
	var (
		ctx     context.Context
		tmpDir  string
		dataDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		dataDir = filepath.Join(tmpDir, "data")
	})

	seed := func() *conversation.Store {
		driver, err := file.NewDriver(dataDir)
		Expect(err).NotTo(HaveOccurred())

		store := conversation.New(driver)
		store.Load(ctx)
		store.Append(ctx, chat.RoleUser, "ping", nil)
		store.Append(ctx, chat.RoleAssistant, "pong", chat.Meta{"source": "test"})
		return store
	}

	run := func(args ...string) (string, error) {
		root := &cobra.Command{Use: "hookchat", SilenceUsage: true, SilenceErrors: true}
		session.AddFlags(root)
		root.AddCommand(NewExportCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(io.Discard)
		root.SetArgs(append([]string{
			"export",
			"--config", filepath.Join(tmpDir, "config.toml"),
			"--storage", "file",
			"--data-dir", dataDir,
		}, args...))

		err := root.ExecuteContext(ctx)
		return out.String(), err
	}

	It("writes the snapshot to the given file", func() {
		store := seed()
		output := filepath.Join(tmpDir, "chat.json")

		out, err := run("--output", output)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Exported 2 messages to " + output + "\n"))

		data, err := os.ReadFile(output)
		Expect(err).NotTo(HaveOccurred())
		want, err := store.ExportSnapshot()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(string(want)))

		var messages []chat.Message
		Expect(json.Unmarshal(data, &messages)).To(Succeed())
		Expect(messages).To(HaveLen(2))
		Expect(messages[1].Meta).To(HaveKeyWithValue("source", "test"))
	})

	It("writes to stdout with -", func() {
		seed()

		out, err := run("-o", "-")
		Expect(err).NotTo(HaveOccurred())

		var messages []chat.Message
		Expect(json.Unmarshal([]byte(out), &messages)).To(Succeed())
		Expect(messages[0].Text).To(Equal("ping"))
	})

	It("exports an empty conversation as an empty array", func() {
		out, err := run("-o", "-")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("[]\n"))
	})

	It("uses the default file name", func() {
		seed()
		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		defer os.Chdir(wd)

		_, err = run()
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(tmpDir, conversation.ExportFileName)).To(BeAnExistingFile())
	})

	It("fails when the output cannot be written", func() {
		seed()

		_, err := run("--output", filepath.Join(tmpDir, "missing", "dir", "out.json"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("could not write export"))
	})
})
