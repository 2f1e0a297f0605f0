// Package webhook forwards user turns to a single remote responder and turns
// whatever comes back into assistant messages.
package webhook

import (
	"fmt"
	"runtime"
	"time"
)

const (
	// DefaultKind is the payload discriminator for chat turns.
	DefaultKind = "message"

	// DefaultSource tags requests coming from this client.
	DefaultSource = "hookchat_cli"

	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// Payload is the JSON document sent to the webhook, either as the request
// body or as the "payload" multipart field.
type Payload struct {
	Kind             string  `json:"kind"`
	Message          string  `json:"message"`
	AttachedFileName *string `json:"attachedFileName"`
	Timestamp        string  `json:"timestamp"`
	UserAgent        string  `json:"userAgent"`
	Source           string  `json:"source"`
}

// DefaultUserAgent identifies this client build.
func DefaultUserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("hookchat/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func (g *Gateway) newPayload(text string, attachment *Attachment) Payload {
	p := Payload{
		Kind:      g.config.Kind,
		Message:   text,
		Timestamp: formatTimestamp(g.now()),
		UserAgent: g.config.UserAgent,
		Source:    g.config.Source,
	}
	if attachment != nil {
		name := attachment.Name
		p.AttachedFileName = &name
	}
	return p
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
