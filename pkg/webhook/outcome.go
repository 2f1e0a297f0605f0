package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/papercomputeco/hookchat/pkg/chat"
)

const (
	// ExcerptLen bounds the response body quoted in HTTP error messages.
	ExcerptLen = 150

	// EmptyReplyText is shown when a successful non-JSON response has no body.
	EmptyReplyText = "Webhook received your message, but no reply body was returned."

	possibleCauses = "Possible causes: the webhook server is not running, " +
		"the request was blocked (proxy, firewall or cross-origin policy), or the URL is incorrect."
)

// OutcomeKind classifies how a request ended.
type OutcomeKind int

const (
	OutcomeReply OutcomeKind = iota
	OutcomeHTTPError
	OutcomeTransportError
	OutcomeMalformedResponse
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReply:
		return "reply"
	case OutcomeHTTPError:
		return "http-error"
	case OutcomeTransportError:
		return "transport-error"
	case OutcomeMalformedResponse:
		return "malformed-response"
	default:
		return "unknown"
	}
}

// Outcome describes the result of one Send.
type Outcome struct {
	Kind OutcomeKind

	// StatusCode is the HTTP status, zero on transport failure.
	StatusCode int

	// Err is the underlying error for transport and malformed outcomes.
	Err error

	// Messages are the assistant entries appended to the conversation.
	Messages []chat.Message

	texts []string
}

// Texts returns the text of each appended message.
func (o Outcome) Texts() []string {
	out := make([]string, len(o.texts))
	copy(out, o.texts)
	return out
}

func transportFailure(err error, split bool) Outcome {
	reason := fmt.Sprintf("❌ Network error: %s.", strings.TrimSuffix(err.Error(), "."))
	texts := []string{reason + " " + possibleCauses}
	if split {
		texts = []string{reason, possibleCauses}
	}
	return Outcome{Kind: OutcomeTransportError, Err: err, texts: texts}
}

// interpret maps a completed HTTP exchange to an outcome.
func interpret(status int, contentType string, body []byte) Outcome {
	if status < 200 || status > 299 {
		detail := "No response body received."
		if len(body) > 0 {
			detail = "Response: " + chat.Truncate(string(body), ExcerptLen)
		}
		return Outcome{
			Kind:       OutcomeHTTPError,
			StatusCode: status,
			texts:      []string{fmt.Sprintf("⚠️ Webhook returned HTTP %d. %s", status, detail)},
		}
	}

	if isJSON(contentType) {
		reply, err := replyFromJSON(body)
		if err != nil {
			return Outcome{
				Kind:       OutcomeMalformedResponse,
				StatusCode: status,
				Err:        err,
				texts:      []string{fmt.Sprintf("⚠️ Webhook returned malformed JSON: %s", err)},
			}
		}
		return Outcome{Kind: OutcomeReply, StatusCode: status, texts: []string{reply}}
	}

	reply := string(body)
	if reply == "" {
		reply = EmptyReplyText
	}
	return Outcome{Kind: OutcomeReply, StatusCode: status, texts: []string{reply}}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// replyFromJSON picks the reply text: a truthy "reply" field, else a truthy
// "message" field, else the whole document.
func replyFromJSON(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return "", fmt.Errorf("could not parse response: %w", err)
	}

	if obj, ok := data.(map[string]any); ok {
		for _, field := range []string{"reply", "message"} {
			if v, ok := obj[field]; ok && truthy(v) {
				return stringify(v), nil
			}
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return "", fmt.Errorf("could not parse response: %w", err)
	}
	return compact.String(), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
