package validation_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/rouge-eval/backend/internal/api/handlers"
	"github.com/rouge-eval/backend/internal/middleware/validation"
	"github.com/rouge-eval/backend/internal/rouge"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
)

func newApp(cfg validation.Config) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(validation.Middleware(cfg))
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Post("/api/v1/evaluations", ok)
	app.Post("/api/v1/reports/parse", ok)
	app.Get("/api/v1/evaluations", ok)
	return app
}

func TestMiddleware(t *testing.T) {
	cfg := validation.Config{Limits: validation.Limits{MaxSummaries: 2, MaxSummaryBytes: 16, MaxReportBytes: 32}}

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		status      int
	}{
		{"get passes", "GET", "/api/v1/evaluations", "", "", 200},
		{"valid summaries", "POST", "/api/v1/evaluations", "application/json",
			`{"summaries":[{"id":"a","system":"x","references":["y"]}]}`, 200},
		{"wrong content type", "POST", "/api/v1/evaluations", "text/plain", `x`, 415},
		{"malformed json", "POST", "/api/v1/evaluations", "application/json", `{`, 400},
		{"no summaries", "POST", "/api/v1/evaluations", "application/json", `{"summaries":[]}`, 400},
		{"too many summaries", "POST", "/api/v1/evaluations", "application/json",
			`{"summaries":[{"id":"a","system":"x"},{"id":"b","system":"x"},{"id":"c","system":"x"}]}`, 400},
		{"summary too long", "POST", "/api/v1/evaluations", "application/json",
			`{"summaries":[{"id":"a","system":"` + strings.Repeat("w", 17) + `","references":["y"]}]}`, 400},
		{"nul in reference", "POST", "/api/v1/evaluations", "application/json",
			`{"summaries":[{"id":"a","system":"x","references":["y\u0000"]}]}`, 400},
		{"valid report", "POST", "/api/v1/reports/parse", "application/json; charset=utf-8", `{"report":"line"}`, 200},
		{"empty report", "POST", "/api/v1/reports/parse", "application/json", `{"report":"  "}`, 400},
		{"report too long", "POST", "/api/v1/reports/parse", "application/json",
			`{"report":"` + strings.Repeat("r", 33) + `"}`, 400},
	}

	app := newApp(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestCheckSummaries(t *testing.T) {
	limits := validation.Limits{MaxSummaries: 2, MaxSummaryBytes: 8}
	pair := func(id, system string, refs ...string) rouge.SummaryPair {
		return rouge.SummaryPair{ID: id, System: system, References: refs}
	}

	tests := []struct {
		name  string
		pairs []rouge.SummaryPair
		ok    bool
	}{
		{"valid", []rouge.SummaryPair{pair("a", "x", "y")}, true},
		{"empty", nil, false},
		{"too many", []rouge.SummaryPair{pair("a", "x"), pair("b", "x"), pair("c", "x")}, false},
		{"system too long", []rouge.SummaryPair{pair("a", "123456789", "y")}, false},
		{"nul in system", []rouge.SummaryPair{pair("a", "x\x00", "y")}, false},
		{"nul in reference", []rouge.SummaryPair{pair("a", "x", "y", "z\x00")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.CheckSummaries(tt.pairs, limits)
			if tt.ok && err != nil {
				t.Fatalf("CheckSummaries() error = %v", err)
			}
			if !tt.ok && apperrors.HTTPStatus(err) != 400 {
				t.Errorf("CheckSummaries() error = %v, want validation error", err)
			}
		})
	}
}
