// Package conversation owns the ordered message log and its durable mirror.
//
// All mutation goes through a Store: it appends, tracks the typing placeholder
// with an explicit state flag, persists after every change and notifies a
// render hook. Durability is best effort: a failed write is logged and the
// in-memory log stays authoritative.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/hookchat/pkg/chat"
	"github.com/papercomputeco/hookchat/pkg/storage"
)

const (
	// DefaultKey is the storage key holding the serialized conversation.
	DefaultKey = "hookchat_history_v1"

	// PlaceholderText is shown while a reply is awaited.
	PlaceholderText = "⏳ Thinking..."

	// DefaultWelcomeText seeds an empty conversation when seeding is enabled.
	DefaultWelcomeText = "Hi! Ask me anything, or attach a file and I'll pass it along."

	metaStateKey     = "state"
	metaStateWaiting = "awaiting-response"
)

// State is the typing indicator state.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	if s == StateAwaitingResponse {
		return "awaiting-response"
	}
	return "idle"
}

// ErrNotConfirmed is returned by Clear when the user declines.
var ErrNotConfirmed = errors.New("clear not confirmed")

// Store is the single owner of a conversation. Safe for concurrent use.
type Store struct {
	driver storage.Driver
	key    string
	logger *zap.Logger
	now    func() time.Time

	seedWelcome bool
	welcomeText string

	// writeMu orders durable writes; each write snapshots the log inside it.
	writeMu sync.Mutex

	mu            sync.Mutex
	messages      []chat.Message
	state         State
	placeholderID string
	onChange      func([]chat.Message)
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for swallowed storage failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWelcome seeds a conversation that has no stored history with one
// assistant message. An empty text uses DefaultWelcomeText.
func WithWelcome(text string) Option {
	return func(s *Store) {
		s.seedWelcome = true
		if text != "" {
			s.welcomeText = text
		}
	}
}

// New creates a Store over driver. Call Load before use.
func New(driver storage.Driver, opts ...Option) *Store {
	s := &Store{
		driver:      driver,
		key:         DefaultKey,
		logger:      zap.NewNop(),
		now:         time.Now,
		welcomeText: DefaultWelcomeText,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to receive a copy of the log after every mutation.
// It is called without the store lock held.
func (s *Store) OnChange(fn func([]chat.Message)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the in-memory log with the durable copy. An absent, empty or
// undecodable record yields an empty conversation; errors are logged, never returned.
func (s *Store) Load(ctx context.Context) []chat.Message {
	loaded, found := s.read(ctx)

	s.mu.Lock()
	s.messages = dropStalePlaceholders(loaded)
	s.state = StateIdle
	s.placeholderID = ""

	seeded := false
	if !found && s.seedWelcome {
		s.messages = append(s.messages, chat.NewMessage(chat.RoleAssistant, s.welcomeText, nil, s.now()))
		seeded = true
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if seeded {
		s.commit(ctx)
	}

	return snapshot
}

func (s *Store) read(ctx context.Context) ([]chat.Message, bool) {
	raw, err := s.driver.Get(ctx, s.key)
	if err != nil {
		var notFound storage.ErrNotFound
		if !errors.As(err, &notFound) {
			s.logger.Warn("could not read conversation, starting empty",
				zap.String("key", s.key),
				zap.Error(err),
			)
		}
		return nil, false
	}

	if len(raw) == 0 {
		return nil, false
	}

	var messages []chat.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		s.logger.Warn("stored conversation is corrupt, starting empty",
			zap.String("key", s.key),
			zap.Int("size", len(raw)),
			zap.Error(err),
		)
		return nil, true
	}

	return messages, true
}

// Append adds a message and persists. While a reply is pending the message is
// placed just before the placeholder so the placeholder stays last.
func (s *Store) Append(ctx context.Context, role chat.Role, text string, meta chat.Meta) chat.Message {
	s.mu.Lock()
	msg := chat.NewMessage(role, text, meta, s.now())
	s.insertLocked(msg)
	s.mu.Unlock()

	s.commit(ctx)
	return msg
}

// Persist writes the full log to durable storage. Failures are logged and swallowed.
func (s *Store) Persist(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.persist(ctx, s.Messages())
}

// BeginAwaiting moves the store to awaiting-response and appends the
// placeholder. It returns false, doing nothing, if a reply is already pending.
func (s *Store) BeginAwaiting(ctx context.Context) bool {
	s.mu.Lock()
	if s.state == StateAwaitingResponse {
		s.mu.Unlock()
		return false
	}

	placeholder := chat.NewMessage(chat.RoleAssistant, PlaceholderText, chat.Meta{metaStateKey: metaStateWaiting}, s.now())
	s.messages = append(s.messages, placeholder)
	s.state = StateAwaitingResponse
	s.placeholderID = placeholder.ID
	s.mu.Unlock()

	s.commit(ctx)
	return true
}

// RemoveLastPlaceholder removes the final entry if it is the pending
// placeholder and returns the store to idle. No-op otherwise.
func (s *Store) RemoveLastPlaceholder(ctx context.Context) bool {
	s.mu.Lock()
	removed := s.removePlaceholderLocked()
	s.mu.Unlock()

	if removed {
		s.commit(ctx)
	}
	return removed
}

// Resolve settles a pending reply: the placeholder is removed, the store
// returns to idle and texts are appended as role messages. The log is
// persisted and rendered once for the whole operation.
func (s *Store) Resolve(ctx context.Context, role chat.Role, texts ...string) []chat.Message {
	s.mu.Lock()
	s.removePlaceholderLocked()

	added := make([]chat.Message, 0, len(texts))
	for _, text := range texts {
		msg := chat.NewMessage(role, text, nil, s.now())
		s.messages = append(s.messages, msg)
		added = append(added, msg)
	}
	s.mu.Unlock()

	s.commit(ctx)
	return added
}

// Clear empties the conversation once confirm returns true.
// A nil confirm is treated as declined.
func (s *Store) Clear(ctx context.Context, confirm func() bool) error {
	if confirm == nil || !confirm() {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	s.messages = nil
	s.state = StateIdle
	s.placeholderID = ""
	s.mu.Unlock()

	s.commit(ctx)
	return nil
}

// Messages returns a copy of the log, oldest first.
func (s *Store) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the typing indicator state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsPlaceholder reports whether m is the pending placeholder.
func (s *Store) IsPlaceholder(m chat.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAwaitingResponse && m.ID == s.placeholderID
}

func (s *Store) insertLocked(msg chat.Message) {
	n := len(s.messages)
	if s.state == StateAwaitingResponse && n > 0 && s.messages[n-1].ID == s.placeholderID {
		placeholder := s.messages[n-1]
		s.messages[n-1] = msg
		s.messages = append(s.messages, placeholder)
		return
	}
	s.messages = append(s.messages, msg)
}

func (s *Store) removePlaceholderLocked() bool {
	if s.state != StateAwaitingResponse {
		return false
	}

	removed := false
	n := len(s.messages)
	if n > 0 && s.messages[n-1].ID == s.placeholderID {
		s.messages = s.messages[:n-1]
		removed = true
	}
	s.state = StateIdle
	s.placeholderID = ""
	return removed
}

func (s *Store) snapshotLocked() []chat.Message {
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// commit persists the current log and then notifies the render hook.
// Writes are serialized and each one snapshots the log after acquiring the
// write lock, so the last write to land always holds the newest log.
func (s *Store) commit(ctx context.Context) {
	s.writeMu.Lock()
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	fn := s.onChange
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.writeMu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

func (s *Store) persist(ctx context.Context, snapshot []chat.Message) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("could not encode conversation", zap.Error(err))
		return
	}

	if err := s.driver.Put(ctx, s.key, data); err != nil {
		s.logger.Warn("could not persist conversation, keeping it in memory",
			zap.String("key", s.key),
			zap.Int("messages", len(snapshot)),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("conversation persisted",
		zap.String("key", s.key),
		zap.Int("messages", len(snapshot)),
	)
}

// dropStalePlaceholders removes placeholders left behind by a process that
// exited while awaiting a reply.
func dropStalePlaceholders(messages []chat.Message) []chat.Message {
	out := messages[:0]
	for _, m := range messages {
		if m.Meta[metaStateKey] == metaStateWaiting {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
