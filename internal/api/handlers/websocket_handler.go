package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/rouge-eval/backend/internal/evaluation"
	"github.com/rouge-eval/backend/internal/middleware/validation"
	"github.com/rouge-eval/backend/internal/rouge"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
	"github.com/rouge-eval/backend/pkg/logger"
)

const (
	msgEvaluate = "evaluate"
	msgStatus   = "status"
	msgResult   = "result"
	msgError    = "error"
)

type wsRequest struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Request   EvaluateRequest `json:"request"`
}

type WebSocketHandler struct {
	evaluator *evaluation.Evaluator
	defaults  rouge.ScoringConfig
	limits    validation.Limits
	readLimit int64
	timeout   time.Duration
}

// WebSocketConfig bounds what one connection may ask for. ReadLimit caps a
// single message; Timeout bounds one evaluation, zero meaning no bound.
type WebSocketConfig struct {
	Limits    validation.Limits
	ReadLimit int64
	Timeout   time.Duration
}

// NewWebSocketHandler serves evaluations over a socket, one at a time per
// connection.
func NewWebSocketHandler(evaluator *evaluation.Evaluator, defaults rouge.ScoringConfig, cfg WebSocketConfig) *WebSocketHandler {
	return &WebSocketHandler{
		evaluator: evaluator,
		defaults:  defaults,
		limits:    cfg.Limits,
		readLimit: cfg.ReadLimit,
		timeout:   cfg.Timeout,
	}
}

// Upgrade only lets WebSocket handshakes through to HandleConnection.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	if h.readLimit > 0 {
		c.SetReadLimit(h.readLimit)
	}

	for {
		var msg wsRequest
		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != msgEvaluate {
			h.sendError(c, msg.RequestID, apperrors.ValidationError("unsupported message type: "+msg.Type))
			continue
		}

		if err := h.evaluate(c, msg); err != nil {
			logger.Error("Failed to write WebSocket message", zap.Error(err))
			break
		}
	}
}

func (h *WebSocketHandler) evaluate(c *websocket.Conn, msg wsRequest) error {
	// the upgrade request carries no body, so Middleware never saw these
	if err := validation.CheckSummaries(msg.Request.Summaries, h.limits); err != nil {
		return h.sendError(c, msg.RequestID, err)
	}

	cfg, err := msg.Request.scoringConfig(h.defaults)
	if err != nil {
		return h.sendError(c, msg.RequestID, err)
	}

	if err := c.WriteJSON(fiber.Map{
		"type":       msgStatus,
		"request_id": msg.RequestID,
		"status":     "running",
		"summaries":  len(msg.Request.Summaries),
	}); err != nil {
		return err
	}

	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	run, err := h.evaluator.EvaluateSummaries(ctx, msg.Request.Summaries, cfg, msg.Request.ReturnConf)
	if err != nil {
		return h.sendError(c, msg.RequestID, err)
	}

	return c.WriteJSON(fiber.Map{
		"type":       msgResult,
		"request_id": msg.RequestID,
		"run":        run,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, requestID string, err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.InternalError("internal server error", err)
	}
	return c.WriteJSON(fiber.Map{
		"type":       msgError,
		"request_id": requestID,
		"error":      appErr,
	})
}
