package validation

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rouge-eval/backend/internal/rouge"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
)

// Limits bounds the size of one evaluation or report request. Zero fields
// take the defaults.
type Limits struct {
	MaxSummaries    int
	MaxSummaryBytes int
	MaxReportBytes  int
}

func (l Limits) withDefaults() Limits {
	if l.MaxSummaries == 0 {
		l.MaxSummaries = 1000
	}
	if l.MaxSummaryBytes == 0 {
		l.MaxSummaryBytes = 64 * 1024
	}
	if l.MaxReportBytes == 0 {
		l.MaxReportBytes = 5 * 1024 * 1024
	}
	return l
}

type Config struct {
	Limits
	AllowedContentTypes []string
	Logger              *zap.Logger
}

type summariesBody struct {
	Summaries []rouge.SummaryPair `json:"summaries"`
}

type reportBody struct {
	Report string `json:"report"`
}

// Middleware rejects request bodies that are malformed or too large before
// they reach a handler. Option values are checked later by the evaluator.
func Middleware(cfg Config) fiber.Handler {
	cfg.Limits = cfg.Limits.withDefaults()
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if !allowedType(contentType, cfg.AllowedContentTypes) {
			return fiber.NewError(fiber.StatusUnsupportedMediaType, "unsupported content type")
		}

		var err error
		switch path := c.Path(); {
		case strings.HasSuffix(path, "/evaluations"):
			err = checkSummaries(c, cfg)
		case strings.HasSuffix(path, "/reports/parse"):
			err = checkReport(c, cfg)
		}
		if err != nil {
			cfg.Logger.Warn("Rejected request body",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return err
		}

		return c.Next()
	}
}

func checkSummaries(c *fiber.Ctx, cfg Config) error {
	var req summariesBody
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ValidationError("invalid JSON body")
	}
	return CheckSummaries(req.Summaries, cfg.Limits)
}

// CheckSummaries applies the per-request limits to summaries that did not
// come through Middleware, such as WebSocket messages.
func CheckSummaries(pairs []rouge.SummaryPair, limits Limits) error {
	limits = limits.withDefaults()

	if len(pairs) == 0 {
		return apperrors.ValidationError("summaries is required")
	}
	if len(pairs) > limits.MaxSummaries {
		return apperrors.ValidationError(fmt.Sprintf("at most %d summaries per request", limits.MaxSummaries))
	}

	for _, s := range pairs {
		if err := checkText(s.ID, "system", s.System, limits.MaxSummaryBytes); err != nil {
			return err
		}
		for _, ref := range s.References {
			if err := checkText(s.ID, "reference", ref, limits.MaxSummaryBytes); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkReport(c *fiber.Ctx, cfg Config) error {
	var req reportBody
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ValidationError("invalid JSON body")
	}
	if strings.TrimSpace(req.Report) == "" {
		return apperrors.ValidationError("report is required")
	}
	if len(req.Report) > cfg.MaxReportBytes {
		return apperrors.ValidationError(fmt.Sprintf("report exceeds %d bytes", cfg.MaxReportBytes))
	}
	return nil
}

func checkText(id, kind, text string, maxBytes int) error {
	if len(text) > maxBytes {
		return apperrors.ValidationError(fmt.Sprintf("%s summary of %q exceeds %d bytes", kind, id, maxBytes)).
			WithDetail("id", id)
	}
	if strings.ContainsRune(text, '\x00') {
		return apperrors.ValidationError(fmt.Sprintf("%s summary of %q contains a NUL byte", kind, id)).
			WithDetail("id", id)
	}
	return nil
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}
