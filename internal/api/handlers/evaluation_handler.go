package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/rouge-eval/backend/internal/evaluation"
	"github.com/rouge-eval/backend/internal/rouge"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
)

// EvaluateRequest is the body of POST /evaluations and of a WebSocket
// "evaluate" message. Options are applied over the server defaults, so a
// field left out keeps its default.
type EvaluateRequest struct {
	Summaries  []rouge.SummaryPair `json:"summaries"`
	Options    json.RawMessage     `json:"options,omitempty"`
	ReturnConf bool                `json:"return_conf"`
}

func (r *EvaluateRequest) scoringConfig(defaults rouge.ScoringConfig) (rouge.ScoringConfig, error) {
	cfg := defaults
	if len(r.Options) == 0 || bytes.Equal(r.Options, []byte("null")) {
		return cfg, nil
	}
	dec := json.NewDecoder(bytes.NewReader(r.Options))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, apperrors.ConfigurationError("invalid options: %v", err)
	}
	return cfg, nil
}

type EvaluationHandler struct {
	evaluator *evaluation.Evaluator
	defaults  rouge.ScoringConfig
}

func NewEvaluationHandler(evaluator *evaluation.Evaluator, defaults rouge.ScoringConfig) *EvaluationHandler {
	return &EvaluationHandler{
		evaluator: evaluator,
		defaults:  defaults,
	}
}

func (h *EvaluationHandler) CreateEvaluation(c *fiber.Ctx) error {
	var req EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	cfg, err := req.scoringConfig(h.defaults)
	if err != nil {
		return err
	}

	run, err := h.evaluator.EvaluateSummaries(c.UserContext(), req.Summaries, cfg, req.ReturnConf)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *EvaluationHandler) GetEvaluation(c *fiber.Ctx) error {
	run, err := h.evaluator.GetRun(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(run)
}

func (h *EvaluationHandler) ListEvaluations(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", evaluation.DefaultListLimit)
	if limit < 0 {
		return apperrors.ValidationError("limit must be positive")
	}

	runs, err := h.evaluator.ListRuns(c.UserContext(), limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"runs":  runs,
		"count": len(runs),
	})
}
