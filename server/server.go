// Package server exposes the completion gateway over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/promptgate/pkg/gateway"
	"github.com/papercomputeco/promptgate/pkg/llm"
	"github.com/papercomputeco/promptgate/pkg/mcptool"
	"github.com/papercomputeco/promptgate/pkg/merkle"
)

// Server serves completions, and the recorded conversations when a storer is
// configured. The gateway can be swapped at runtime, e.g. on config reload.
type Server struct {
	config  Config
	gateway atomic.Pointer[gateway.Gateway]
	storer  merkle.Storer
	logger  *zap.Logger
	app     *fiber.App
}

// CompletionRequest is the body of completion endpoints.
type CompletionRequest struct {
	Prompt string `json:"prompt"`
}

// CompletionResponse is returned by /v1/completions on success.
type CompletionResponse struct {
	Text             string `json:"text"`
	RequestID        string `json:"request_id"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
	LatencyMS        int64  `json:"latency_ms"`
	CompletionTokens int    `json:"completion_tokens"`
}

// LegacyCompletionResponse is returned by /api/completion. Completion holds
// either the generated text or "Error: <message>".
type LegacyCompletionResponse struct {
	Completion string `json:"completion"`
}

// New creates a Server. storer may be nil, which disables the /dag endpoints.
func New(config Config, gw *gateway.Gateway, storer merkle.Storer, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		storer: storer,
		logger: logger,
		app:    app,
	}
	s.gateway.Store(gw)

	app.Post("/v1/completions", s.handleCompletion)
	app.Post("/api/completion", s.handleLegacyCompletion)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok", "version": config.Version})
	})

	if storer != nil {
		app.Get("/dag/stats", s.handleDAGStats)
		app.Get("/dag/node/:hash", s.handleGetNode)
		app.Get("/dag/history", s.handleListHistories)
		app.Get("/dag/history/:hash", s.handleGetHistory)
		app.Post("/dag/nodes", s.handleIngestNodes)
	}

	mcpServer := mcptool.NewServer(s.complete, config.Version)
	app.All("/mcp", adaptor.HTTPHandler(mcptool.HTTPHandler(mcpServer)))

	return s
}

// SetGateway replaces the gateway used by subsequent requests.
func (s *Server) SetGateway(gw *gateway.Gateway) {
	s.gateway.Store(gw)
	s.logger.Info("gateway updated",
		zap.String("provider", gw.Provider()),
		zap.String("model", gw.Model()),
	)
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting promptgate server", zap.String("listen", s.config.ListenAddr))
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting promptgate server", zap.String("listen", ln.Addr().String()))
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Close releases the storer.
func (s *Server) Close() error {
	if s.storer == nil {
		return nil
	}
	return s.storer.Close()
}

func (s *Server) complete(ctx context.Context, prompt string) gateway.Result {
	return s.gateway.Load().Complete(ctx, prompt)
}

func (s *Server) parsePrompt(c *fiber.Ctx) (string, bool) {
	var req CompletionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Warn("failed to parse request", zap.Error(err))
		return "", false
	}
	return req.Prompt, true
}

// handleCompletion answers with the generated text or a structured error.
func (s *Server) handleCompletion(c *fiber.Ctx) error {
	prompt, ok := s.parsePrompt(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	result := s.complete(c.UserContext(), prompt)
	if !result.OK() {
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{
			Error:    result.Err.Error(),
			Category: string(result.Err.Category),
			Display:  result.Display(),
		})
	}

	return c.JSON(CompletionResponse{
		Text:             result.Text,
		RequestID:        result.RequestID,
		Model:            result.Model,
		Provider:         result.Provider,
		LatencyMS:        result.Latency.Milliseconds(),
		CompletionTokens: result.CompletionTokens,
	})
}

// handleLegacyCompletion keeps the string contract: success and failure both
// return 200, and failures are only recognizable by the "Error: " prefix.
func (s *Server) handleLegacyCompletion(c *fiber.Ctx) error {
	prompt, ok := s.parsePrompt(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	return c.JSON(LegacyCompletionResponse{
		Completion: s.complete(c.UserContext(), prompt).String(),
	})
}
