// Package chat provides the message model shared by the conversation store,
// the webhook gateway and the renderers.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Label is the human readable author name used in meta lines.
func (r Role) Label() string {
	if r == RoleUser {
		return "You"
	}
	return "Assistant"
}

// Meta is a free-form annotation carried by a message.
type Meta map[string]string

// Message represents a single turn in a conversation.
type Message struct {
	ID        string    `json:"id"`             // UUIDv7, unique and creation ordered
	Role      Role      `json:"role"`           // "user" or "assistant"
	Text      string    `json:"text"`           // Plain display text
	Meta      Meta      `json:"meta,omitempty"` // Optional annotation
	CreatedAt time.Time `json:"createdAt"`      // Display timestamp
}

// NewMessage creates a message with a fresh id stamped at now.
// The timestamp is normalized to UTC without a monotonic reading so that it
// survives a JSON round trip unchanged.
func NewMessage(role Role, text string, meta Meta, now time.Time) Message {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		id = uuid.New()
	}

	return Message{
		ID:        id.String(),
		Role:      role,
		Text:      text,
		Meta:      meta.clone(),
		CreatedAt: now.UTC().Round(0),
	}
}

func (m Meta) clone() Meta {
	if len(m) == 0 {
		return nil
	}
	c := make(Meta, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
