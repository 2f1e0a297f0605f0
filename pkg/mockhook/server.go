// Package mockhook provides a local webhook responder for trying hookchat
// without a real automation backend. It accepts both request shapes the
// gateway produces and echoes the message back.
package mockhook

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/hookchat/pkg/webhook"
)

const (
	defaultPath        = "/webhook"
	defaultReplyPrefix = "echo: "
)

// Received is one request as seen by the responder.
type Received struct {
	Payload   webhook.Payload `json:"payload"`
	Multipart bool            `json:"multipart"`
	FileName  string          `json:"file_name,omitempty"`
	FileSize  int64           `json:"file_size,omitempty"`
}

// ErrorResponse is returned for requests the responder cannot parse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the mock webhook responder.
type Server struct {
	config Config
	logger *zap.Logger
	server *fiber.App

	mu       sync.Mutex
	received []Received
}

// New creates a Server.
func New(config Config, logger *zap.Logger) *Server {
	if config.Path == "" {
		config.Path = defaultPath
	}
	if config.ReplyPrefix == "" {
		config.ReplyPrefix = defaultReplyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		server: app,
	}

	app.Post(config.Path, s.handleWebhook)
	app.Get("/requests", s.handleListRequests)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.server
}

// Run starts the responder on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting mock webhook",
		zap.String("listen", s.config.ListenAddr),
		zap.String("path", s.config.Path),
	)

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting mock webhook",
		zap.String("listen", ln.Addr().String()),
		zap.String("path", s.config.Path),
	)

	return s.server.Listener(ln)
}

// Shutdown stops the responder.
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

// Received returns a copy of every request handled so far.
func (s *Server) Received() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Received, len(s.received))
	copy(out, s.received)
	return out
}

// handleWebhook answers one gateway request. Query parameters shape the reply:
//   - status=<code> answers with that status and a short error body
//   - format=text answers text/plain instead of JSON
//   - format=empty answers 200 with no body
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	rec, err := s.parse(c)
	if err != nil {
		s.logger.Warn("could not parse webhook request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	s.mu.Lock()
	s.received = append(s.received, rec)
	s.mu.Unlock()

	s.logger.Debug("received webhook request",
		zap.String("kind", rec.Payload.Kind),
		zap.Bool("multipart", rec.Multipart),
		zap.String("file", rec.FileName),
		zap.String("message_preview", truncate(rec.Payload.Message, 50)),
	)

	if status := c.Query("status"); status != "" {
		code, err := strconv.Atoi(status)
		if err != nil || code < 100 || code > 599 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid status parameter"})
		}
		return c.Status(code).SendString("mock error " + status)
	}

	reply := s.reply(rec)
	switch c.Query("format") {
	case "text":
		return c.SendString(reply)
	case "empty":
		return c.Status(fiber.StatusOK).Send(nil)
	default:
		return c.JSON(map[string]string{"reply": reply})
	}
}

func (s *Server) handleListRequests(c *fiber.Ctx) error {
	received := s.Received()
	return c.JSON(map[string]any{
		"count":    len(received),
		"requests": received,
	})
}

func (s *Server) parse(c *fiber.Ctx) (Received, error) {
	var rec Received

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		rec.Multipart = true
		raw := c.FormValue("payload")
		if raw == "" {
			return rec, fmt.Errorf("missing payload field")
		}
		if err := json.Unmarshal([]byte(raw), &rec.Payload); err != nil {
			return rec, fmt.Errorf("invalid payload field: %w", err)
		}
		if fh, err := c.FormFile("file"); err == nil {
			rec.FileName = fh.Filename
			rec.FileSize = fh.Size
		}
		return rec, nil
	}

	if err := json.Unmarshal(c.Body(), &rec.Payload); err != nil {
		return rec, fmt.Errorf("invalid request body: %w", err)
	}
	return rec, nil
}

func (s *Server) reply(rec Received) string {
	parts := make([]string, 0, 2)
	if rec.Payload.Message != "" {
		parts = append(parts, rec.Payload.Message)
	}
	if rec.FileName != "" {
		parts = append(parts, fmt.Sprintf("(received %s, %d bytes)", rec.FileName, rec.FileSize))
	}
	return s.config.ReplyPrefix + strings.Join(parts, " ")
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
