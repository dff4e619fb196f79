package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rouge-eval/backend/internal/rouge"
	"github.com/rouge-eval/backend/internal/rouge/report"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
)

// ReportHandler parses ROUGE output produced elsewhere. No process is run.
type ReportHandler struct {
	defaults rouge.ScoringConfig
}

func NewReportHandler(defaults rouge.ScoringConfig) *ReportHandler {
	return &ReportHandler{defaults: defaults}
}

type parseRequest struct {
	Report   string `json:"report"`
	MaxNGram *int   `json:"max_ngram"`
	LCS      *bool  `json:"lcs"`
}

func (h *ReportHandler) ParseReport(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	cfg := h.defaults
	if req.MaxNGram != nil {
		cfg.MaxNGram = *req.MaxNGram
	}
	if req.LCS != nil {
		cfg.UseLCS = *req.LCS
	}
	if err := cfg.ValidateScorable(); err != nil {
		return err
	}

	rs, err := report.ParseAll(req.Report, cfg.Orders()...)
	if err != nil {
		return err
	}
	return c.JSON(rs)
}
