package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/hookchat/pkg/chat"
)

// ErrEmptySubmission is returned by Submit when there is neither text nor a file.
var ErrEmptySubmission = errors.New("nothing to send: message text and attachment are both empty")

// Log is the part of the conversation store the gateway writes through.
type Log interface {
	Append(ctx context.Context, role chat.Role, text string, meta chat.Meta) chat.Message
	BeginAwaiting(ctx context.Context) bool
	Resolve(ctx context.Context, role chat.Role, texts ...string) []chat.Message
}

// Config is the gateway configuration.
type Config struct {
	// Endpoint is the webhook URL every request is POSTed to.
	Endpoint string

	// Kind and Source are fixed payload tags; empty values use the defaults.
	Kind   string
	Source string

	// UserAgent is the client identifier placed in the payload.
	UserAgent string

	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration

	// SplitTransportErrors reports a transport failure as two messages
	// (reason, then likely causes) instead of one combined message.
	SplitTransportErrors bool
}

// Gateway sends user turns to the webhook and records the outcome.
type Gateway struct {
	config     Config
	endpoint   atomic.Pointer[string]
	log        Log
	logger     *zap.Logger
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithClock overrides time.Now for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a Gateway writing outcomes to log.
func New(config Config, log Log, logger *zap.Logger, opts ...Option) *Gateway {
	if config.Kind == "" {
		config.Kind = DefaultKind
	}
	if config.Source == "" {
		config.Source = DefaultSource
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		config: config,
		log:    log,
		logger: logger,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		now: time.Now,
	}
	g.SetEndpoint(config.Endpoint)

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Endpoint returns the current webhook URL.
func (g *Gateway) Endpoint() string {
	return *g.endpoint.Load()
}

// SetEndpoint swaps the webhook URL used by subsequent requests.
func (g *Gateway) SetEndpoint(endpoint string) {
	g.endpoint.Store(&endpoint)
}

// Submit records the user's turn and sends it. The user entry shows the
// text, or "[file] <name>" when only a file is attached.
func (g *Gateway) Submit(ctx context.Context, text string, attachment *Attachment) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return Outcome{}, ErrEmptySubmission
	}

	display := text
	if display == "" {
		display = "[file] " + attachment.Name
	}
	g.log.Append(ctx, chat.RoleUser, display, nil)

	return g.Send(ctx, text, attachment), nil
}

// Send POSTs one turn to the webhook and appends the outcome as assistant
// messages. The typing placeholder is shown while the request is in flight and
// is settled exactly once, whichever way the request ends.
func (g *Gateway) Send(ctx context.Context, text string, attachment *Attachment) (outcome Outcome) {
	payload := g.newPayload(text, attachment)

	g.log.BeginAwaiting(ctx)
	defer func() {
		// The outcome is recorded even when ctx ended the request.
		outcome.Messages = g.log.Resolve(context.WithoutCancel(ctx), chat.RoleAssistant, outcome.texts...)
	}()

	req, err := g.prepareRequest(ctx, payload, attachment)
	if err != nil {
		g.logger.Error("could not build webhook request", zap.Error(err))
		return transportFailure(err, g.config.SplitTransportErrors)
	}

	startTime := time.Now()
	g.logger.Debug("sending to webhook",
		zap.String("url", req.URL.String()),
		zap.Bool("multipart", attachment != nil),
		zap.Int("message_len", len(text)),
	)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn("webhook request failed", zap.Error(err))
		return transportFailure(err, g.config.SplitTransportErrors)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.logger.Warn("could not read webhook response", zap.Error(err))
		return transportFailure(err, g.config.SplitTransportErrors)
	}

	g.logger.Debug("webhook responded",
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Int("body_size", len(body)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return interpret(resp.StatusCode, resp.Header.Get("Content-Type"), body)
}

func (g *Gateway) prepareRequest(ctx context.Context, payload Payload, attachment *Attachment) (*http.Request, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	if attachment == nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint(), bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("payload", string(jsonData)); err != nil {
		return nil, fmt.Errorf("write payload field: %w", err)
	}

	contentType, content := attachment.sniff()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(attachment.Name)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", attachment.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint(), &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
