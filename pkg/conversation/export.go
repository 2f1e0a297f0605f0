package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/hookchat/pkg/chat"
)

const (
	// ExportFileName is the default name of the export artifact.
	ExportFileName = "hookchat_export.json"

	// DefaultHistoryLimit is how many entries the history panel shows.
	DefaultHistoryLimit = 30
)

// ExportSnapshot serializes the full conversation as indented JSON.
// Two calls without an intervening mutation return identical bytes.
func (s *Store) ExportSnapshot() ([]byte, error) {
	messages := s.Messages()
	if messages == nil {
		messages = []chat.Message{}
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode export: %w", err)
	}
	return data, nil
}

// History returns up to limit user and assistant entries, newest first,
// excluding the pending placeholder. A limit <= 0 returns every entry.
func (s *Store) History(limit int) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]chat.Message, 0, len(s.messages))
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if s.state == StateAwaitingResponse && m.ID == s.placeholderID {
			continue
		}
		if !m.Role.Valid() {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
