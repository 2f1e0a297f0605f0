package conversation_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/hookchat/pkg/chat"
	"github.com/papercomputeco/hookchat/pkg/conversation"
	"github.com/papercomputeco/hookchat/pkg/storage/inmemory"
)

// failingDriver wraps an in-memory driver and fails writes on demand.
type failingDriver struct {
	*inmemory.Driver
	failPut bool
	failGet bool
}

func (d *failingDriver) Get(ctx context.Context, key string) ([]byte, error) {
	if d.failGet {
		return nil, errors.New("disk on fire")
	}
	return d.Driver.Get(ctx, key)
}

func (d *failingDriver) Put(ctx context.Context, key string, value []byte) error {
	if d.failPut {
		return errors.New("quota exceeded")
	}
	return d.Driver.Put(ctx, key, value)
}

// gatedDriver blocks its first Put until gate is closed.
type gatedDriver struct {
	*inmemory.Driver
	once    sync.Once
	blocked chan struct{}
	gate    chan struct{}
}

func newGatedDriver() *gatedDriver {
	return &gatedDriver{
		Driver:  inmemory.NewDriver(),
		blocked: make(chan struct{}),
		gate:    make(chan struct{}),
	}
}

func (d *gatedDriver) Put(ctx context.Context, key string, value []byte) error {
	first := false
	d.once.Do(func() { first = true })
	if first {
		close(d.blocked)
		<-d.gate
	}
	return d.Driver.Put(ctx, key, value)
}

func texts(messages []chat.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}
	return out
}

func countPlaceholders(messages []chat.Message) int {
	n := 0
	for _, m := range messages {
		if m.Text == conversation.PlaceholderText {
			n++
		}
	}
	return n
}

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		store  *conversation.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		store = conversation.New(driver)
		store.Load(ctx)
	})

	Describe("Load", func() {
		It("starts empty when nothing is stored", func() {
			Expect(store.Messages()).To(BeEmpty())
		})

		It("starts empty when the record is not json", func() {
			Expect(driver.Put(ctx, conversation.DefaultKey, []byte("not json"))).To(Succeed())

			Expect(conversation.New(driver).Load(ctx)).To(BeEmpty())
		})

		It("starts empty when the record is empty", func() {
			Expect(driver.Put(ctx, conversation.DefaultKey, []byte{})).To(Succeed())

			Expect(conversation.New(driver).Load(ctx)).To(BeEmpty())
		})

		It("starts empty when the driver fails to read", func() {
			d := &failingDriver{Driver: inmemory.NewDriver(), failGet: true}

			Expect(conversation.New(d).Load(ctx)).To(BeEmpty())
		})

		It("drops a placeholder left behind by a previous run", func() {
			store.Append(ctx, chat.RoleUser, "hello", nil)
			Expect(store.BeginAwaiting(ctx)).To(BeTrue())

			reloaded := conversation.New(driver)
			messages := reloaded.Load(ctx)
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Text).To(Equal("hello"))
			Expect(reloaded.State()).To(Equal(conversation.StateIdle))
		})

		It("uses the configured key", func() {
			other := conversation.New(driver, conversation.WithKey("other_key"))
			other.Load(ctx)
			other.Append(ctx, chat.RoleUser, "elsewhere", nil)

			Expect(conversation.New(driver).Load(ctx)).To(BeEmpty())
			Expect(conversation.New(driver, conversation.WithKey("other_key")).Load(ctx)).To(HaveLen(1))
		})
	})

	Describe("welcome seed", func() {
		It("seeds one assistant message when there is no history", func() {
			s := conversation.New(inmemory.NewDriver(), conversation.WithWelcome(""))
			messages := s.Load(ctx)

			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Role).To(Equal(chat.RoleAssistant))
			Expect(messages[0].Text).To(Equal(conversation.DefaultWelcomeText))
		})

		It("does not seed over existing history", func() {
			store.Append(ctx, chat.RoleUser, "hi", nil)

			s := conversation.New(driver, conversation.WithWelcome("welcome!"))
			messages := s.Load(ctx)
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Text).To(Equal("hi"))
		})

		It("does not seed after the user cleared the conversation", func() {
			Expect(store.Clear(ctx, func() bool { return true })).To(Succeed())

			s := conversation.New(driver, conversation.WithWelcome("welcome!"))
			Expect(s.Load(ctx)).To(BeEmpty())
		})
	})

	Describe("Append", func() {
		It("round-trips through durable storage", func() {
			texts := []string{"one", "two", "three", "four"}
			for i, text := range texts {
				role := chat.RoleUser
				if i%2 == 1 {
					role = chat.RoleAssistant
				}
				store.Append(ctx, role, text, nil)
			}

			reloaded := conversation.New(driver).Load(ctx)
			Expect(reloaded).To(HaveLen(len(texts)))
			for i, m := range reloaded {
				Expect(m.Text).To(Equal(texts[i]))
				Expect(m).To(Equal(store.Messages()[i]))
			}
		})

		It("assigns unique, order-preserving ids", func() {
			seen := map[string]bool{}
			var last string
			for i := 0; i < 200; i++ {
				m := store.Append(ctx, chat.RoleUser, "x", nil)
				Expect(seen).NotTo(HaveKey(m.ID))
				seen[m.ID] = true
				Expect(m.ID > last).To(BeTrue())
				last = m.ID
			}
		})

		It("keeps meta annotations", func() {
			store.Append(ctx, chat.RoleUser, "with meta", chat.Meta{"source": "test"})

			reloaded := conversation.New(driver).Load(ctx)
			Expect(reloaded[0].Meta).To(HaveKeyWithValue("source", "test"))
		})

		It("keeps the mutation in memory when persisting fails", func() {
			d := &failingDriver{Driver: inmemory.NewDriver(), failPut: true}
			s := conversation.New(d)
			s.Load(ctx)

			m := s.Append(ctx, chat.RoleUser, "still here", nil)
			Expect(s.Messages()).To(ConsistOf(m))
		})

		It("notifies the render hook with the new log", func() {
			var rendered [][]chat.Message
			store.OnChange(func(messages []chat.Message) {
				rendered = append(rendered, messages)
			})

			store.Append(ctx, chat.RoleUser, "hello", nil)
			Expect(rendered).To(HaveLen(1))
			Expect(rendered[0]).To(HaveLen(1))
		})

		It("accumulates every racing append", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					store.Append(ctx, chat.RoleUser, "race", nil)
				}()
			}
			wg.Wait()

			Expect(store.Messages()).To(HaveLen(20))

			reloaded := conversation.New(driver).Load(ctx)
			Expect(reloaded).To(Equal(store.Messages()))
		})

		It("never lets an older snapshot overwrite a newer one", func() {
			gated := newGatedDriver()
			store := conversation.New(gated)
			store.Load(ctx)

			firstDone := make(chan struct{})
			go func() {
				defer close(firstDone)
				store.Append(ctx, chat.RoleUser, "first", nil)
			}()
			Eventually(gated.blocked).Should(BeClosed())

			secondDone := make(chan struct{})
			go func() {
				defer close(secondDone)
				store.Append(ctx, chat.RoleUser, "second", nil)
			}()
			Eventually(store.Messages).Should(HaveLen(2))

			close(gated.gate)
			Eventually(firstDone).Should(BeClosed())
			Eventually(secondDone).Should(BeClosed())

			reloaded := conversation.New(gated.Driver).Load(ctx)
			Expect(texts(reloaded)).To(Equal([]string{"first", "second"}))
			Expect(texts(reloaded)).To(Equal(texts(store.Messages())))
		})
	})

	Describe("placeholder", func() {
		It("inserts a single placeholder while awaiting", func() {
			Expect(store.BeginAwaiting(ctx)).To(BeTrue())
			Expect(store.BeginAwaiting(ctx)).To(BeFalse())

			Expect(countPlaceholders(store.Messages())).To(Equal(1))
			Expect(store.State()).To(Equal(conversation.StateAwaitingResponse))
		})

		It("keeps the placeholder last when messages arrive meanwhile", func() {
			store.BeginAwaiting(ctx)
			store.Append(ctx, chat.RoleUser, "second question", nil)

			messages := store.Messages()
			Expect(messages).To(HaveLen(2))
			Expect(messages[0].Text).To(Equal("second question"))
			Expect(store.IsPlaceholder(messages[1])).To(BeTrue())
		})

		It("removes only the tracked placeholder", func() {
			store.BeginAwaiting(ctx)
			Expect(store.RemoveLastPlaceholder(ctx)).To(BeTrue())
			Expect(store.Messages()).To(BeEmpty())
			Expect(store.RemoveLastPlaceholder(ctx)).To(BeFalse())
		})

		It("never treats a real reply with the placeholder text as the placeholder", func() {
			store.Append(ctx, chat.RoleAssistant, conversation.PlaceholderText, nil)

			Expect(store.RemoveLastPlaceholder(ctx)).To(BeFalse())
			Expect(store.Messages()).To(HaveLen(1))
		})

		It("resolves the placeholder into the outcome with a single write", func() {
			store.Append(ctx, chat.RoleUser, "hello", nil)
			store.BeginAwaiting(ctx)

			renders := 0
			store.OnChange(func([]chat.Message) { renders++ })

			added := store.Resolve(ctx, chat.RoleAssistant, "hi there")
			Expect(added).To(HaveLen(1))
			Expect(renders).To(Equal(1))

			messages := store.Messages()
			Expect(messages).To(HaveLen(2))
			Expect(messages[1].Text).To(Equal("hi there"))
			Expect(store.State()).To(Equal(conversation.StateIdle))

			reloaded := conversation.New(driver).Load(ctx)
			Expect(reloaded).To(Equal(messages))
		})

		It("appends when resolving without a pending placeholder", func() {
			store.Resolve(ctx, chat.RoleAssistant, "late reply")

			Expect(store.Messages()).To(HaveLen(1))
		})
	})

	Describe("Clear", func() {
		BeforeEach(func() {
			store.Append(ctx, chat.RoleUser, "hello", nil)
		})

		It("refuses without confirmation", func() {
			err := store.Clear(ctx, func() bool { return false })
			Expect(err).To(MatchError(conversation.ErrNotConfirmed))
			Expect(store.Messages()).To(HaveLen(1))

			Expect(store.Clear(ctx, nil)).To(MatchError(conversation.ErrNotConfirmed))
		})

		It("empties and persists once confirmed", func() {
			Expect(store.Clear(ctx, func() bool { return true })).To(Succeed())
			Expect(store.Messages()).To(BeEmpty())

			raw, err := driver.Get(ctx, conversation.DefaultKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("[]"))
		})
	})

	Describe("ExportSnapshot", func() {
		It("exports an empty conversation as an empty array", func() {
			data, err := store.ExportSnapshot()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("[]"))
		})

		It("is byte-identical without intervening mutation", func() {
			store.Append(ctx, chat.RoleUser, "hello", nil)
			store.Append(ctx, chat.RoleAssistant, "hi\nthere", nil)

			first, err := store.ExportSnapshot()
			Expect(err).NotTo(HaveOccurred())
			second, err := store.ExportSnapshot()
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))

			var decoded []chat.Message
			Expect(json.Unmarshal(first, &decoded)).To(Succeed())
			Expect(decoded).To(HaveLen(2))
			Expect(string(first)).To(ContainSubstring("\n  {"))
		})
	})

	Describe("History", func() {
		It("lists entries newest first without the placeholder", func() {
			store.Append(ctx, chat.RoleUser, "first", nil)
			store.Append(ctx, chat.RoleAssistant, "second", nil)
			store.BeginAwaiting(ctx)

			history := store.History(conversation.DefaultHistoryLimit)
			Expect(history).To(HaveLen(2))
			Expect(history[0].Text).To(Equal("second"))
			Expect(history[1].Text).To(Equal("first"))
		})

		It("honours the limit", func() {
			for i := 0; i < 40; i++ {
				store.Append(ctx, chat.RoleUser, "x", nil)
			}

			Expect(store.History(conversation.DefaultHistoryLimit)).To(HaveLen(30))
			Expect(store.History(0)).To(HaveLen(40))
		})
	})
})
