package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/rouge-eval/backend/pkg/errors"
	"github.com/rouge-eval/backend/pkg/logger"
)

// ErrorHandler renders every error returned by a handler or middleware as
// {"error": {"code", "message", "details"}}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": apperrors.New(code, fe.Message),
		})
	}

	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.InternalError("internal server error", err)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(fiber.Map{"error": appErr})
}
