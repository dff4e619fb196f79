package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/rouge-eval/backend/internal/evaluation"
	"github.com/rouge-eval/backend/internal/rouge"
	"github.com/rouge-eval/backend/internal/storage/models"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
)

const sampleReport = `1 ROUGE-1 Eval d1 R:0.50000 P:0.25000 F:0.33333
1 ROUGE-1 Average_R: 0.50000 (95%-conf.int. 0.40000 - 0.60000)
1 ROUGE-1 Average_P: 0.25000 (95%-conf.int. 0.20000 - 0.30000)
1 ROUGE-1 Average_F: 0.33333 (95%-conf.int. 0.30000 - 0.40000)
`

type memStore struct {
	mu   sync.Mutex
	runs []*models.EvaluationRun
}

func (s *memStore) InsertRun(ctx context.Context, run *models.EvaluationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *memStore) GetRun(ctx context.Context, id string) (*models.EvaluationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperrors.NotFoundError("evaluation run")
}

func (s *memStore) ListRuns(ctx context.Context, limit int) ([]*models.EvaluationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.runs) {
		limit = len(s.runs)
	}
	return s.runs[:limit], nil
}

func defaults() rouge.ScoringConfig {
	cfg := rouge.DefaultScoringConfig()
	cfg.MaxNGram = 1
	return cfg
}

func newTestApp(t *testing.T, provider rouge.ReportProvider) *fiber.App {
	t.Helper()

	ev := evaluation.NewEvaluator(rouge.NewEvaluator(provider, "/data"), evaluation.Options{
		Store:   &memStore{},
		WorkDir: t.TempDir(),
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	evals := NewEvaluationHandler(ev, defaults())
	reports := NewReportHandler(defaults())
	health := NewHealthHandler(map[string]Check{
		"ok": func(ctx context.Context) error { return nil },
	})

	api := app.Group("/api/v1")
	api.Post("/evaluations", evals.CreateEvaluation)
	api.Get("/evaluations", evals.ListEvaluations)
	api.Get("/evaluations/:id", evals.GetEvaluation)
	api.Post("/reports/parse", reports.ParseReport)
	api.Get("/health", health.Health)
	api.Get("/ready", health.Ready)
	return app
}

func staticReport(out string) rouge.ProviderFunc {
	return func(ctx context.Context, args []string) (string, error) {
		return out, nil
	}
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

const evalBody = `{"summaries":[{"id":"d1","system":"the cat sat","references":["a cat sat"]}],"return_conf":true}`

func TestCreateAndGetEvaluation(t *testing.T) {
	app := newTestApp(t, staticReport(sampleReport))

	status, run := do(t, app, http.MethodPost, "/api/v1/evaluations", evalBody)
	if status != http.StatusCreated {
		t.Fatalf("POST status = %d, body %v", status, run)
	}
	if run["status"] != "succeeded" {
		t.Errorf("run status = %v", run["status"])
	}
	result := run["result"].(map[string]any)
	if conf, _ := result["confidence"].([]any); len(conf) != 1 {
		t.Errorf("confidence = %v, want one row", result["confidence"])
	}

	id := run["id"].(string)
	status, got := do(t, app, http.MethodGet, "/api/v1/evaluations/"+id, "")
	if status != http.StatusOK || got["id"] != id {
		t.Errorf("GET status = %d, body %v", status, got)
	}

	status, list := do(t, app, http.MethodGet, "/api/v1/evaluations?limit=5", "")
	if status != http.StatusOK || list["count"].(float64) != 1 {
		t.Errorf("list status = %d, body %v", status, list)
	}
}

func TestCreateEvaluation_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider rouge.ProviderFunc
		body     string
		status   int
		code     string
	}{
		{
			name:     "bad option",
			provider: staticReport(sampleReport),
			body:     `{"summaries":[{"id":"d1","system":"x","references":["y"]}],"options":{"length_unit":"line"}}`,
			status:   http.StatusBadRequest,
			code:     apperrors.CodeConfiguration,
		},
		{
			name:     "unknown option",
			provider: staticReport(sampleReport),
			body:     `{"summaries":[{"id":"d1","system":"x","references":["y"]}],"options":{"ngram":2}}`,
			status:   http.StatusBadRequest,
			code:     apperrors.CodeConfiguration,
		},
		{
			name:     "bad id",
			provider: staticReport(sampleReport),
			body:     `{"summaries":[{"id":"../x","system":"x","references":["y"]}]}`,
			status:   http.StatusBadRequest,
			code:     apperrors.CodeConfiguration,
		},
		{
			name:     "report missing order",
			provider: staticReport(sampleReport),
			body:     `{"summaries":[{"id":"d1","system":"x","references":["y"]}],"options":{"max_ngram":2}}`,
			status:   http.StatusUnprocessableEntity,
			code:     apperrors.CodeParse,
		},
		{
			name: "script failure",
			provider: func(ctx context.Context, args []string) (string, error) {
				return "", apperrors.ExecutionError("ROUGE script failed", "boom", errors.New("exit status 1"))
			},
			body:   evalBody,
			status: http.StatusBadGateway,
			code:   apperrors.CodeExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.provider)
			status, body := do(t, app, http.MethodPost, "/api/v1/evaluations", tt.body)
			if status != tt.status {
				t.Errorf("status = %d, want %d (body %v)", status, tt.status, body)
			}
			if got := errorCode(body); got != tt.code {
				t.Errorf("error code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestGetEvaluation_NotFound(t *testing.T) {
	app := newTestApp(t, staticReport(sampleReport))
	status, body := do(t, app, http.MethodGet, "/api/v1/evaluations/missing", "")
	if status != http.StatusNotFound || errorCode(body) != apperrors.CodeNotFound {
		t.Errorf("status = %d, body %v", status, body)
	}
}

func TestParseReport(t *testing.T) {
	app := newTestApp(t, staticReport(""))

	body, _ := json.Marshal(map[string]any{"report": sampleReport, "max_ngram": 1, "lcs": false})
	status, rs := do(t, app, http.MethodPost, "/api/v1/reports/parse", string(body))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, rs)
	}
	cols := rs["columns"].([]any)
	if len(cols) != 3 || cols[2] != "rouge-1-F" {
		t.Errorf("columns = %v", cols)
	}

	body, _ = json.Marshal(map[string]any{"report": sampleReport, "max_ngram": 1, "lcs": true})
	status, out := do(t, app, http.MethodPost, "/api/v1/reports/parse", string(body))
	if status != http.StatusUnprocessableEntity || errorCode(out) != apperrors.CodeParse {
		t.Errorf("missing LCS: status = %d, body %v", status, out)
	}

	status, out = do(t, app, http.MethodPost, "/api/v1/reports/parse", `{"report":"x","max_ngram":0,"lcs":false}`)
	if status != http.StatusBadRequest {
		t.Errorf("nothing to score: status = %d, body %v", status, out)
	}
}

func TestHealthAndReady(t *testing.T) {
	app := newTestApp(t, staticReport(""))

	if status, _ := do(t, app, http.MethodGet, "/api/v1/health", ""); status != http.StatusOK {
		t.Errorf("health status = %d", status)
	}

	status, body := do(t, app, http.MethodGet, "/api/v1/ready", "")
	if status != http.StatusOK || body["status"] != "ready" {
		t.Errorf("ready = %d %v", status, body)
	}
}

func TestReady_FailingCheck(t *testing.T) {
	app := fiber.New()
	h := NewHealthHandler(map[string]Check{
		"rouge_script": func(ctx context.Context) error { return errors.New("missing") },
	})
	app.Get("/ready", h.Ready)

	status, body := do(t, app, http.MethodGet, "/ready", "")
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
	checks := body["checks"].(map[string]any)
	if checks["rouge_script"] != "missing" {
		t.Errorf("checks = %v", checks)
	}
}

func TestErrorHandler_FiberError(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error { return fiber.ErrUnsupportedMediaType })

	status, body := do(t, app, http.MethodGet, "/", "")
	if status != http.StatusUnsupportedMediaType || errorCode(body) != "UNSUPPORTED_MEDIA_TYPE" {
		t.Errorf("status = %d, body %v", status, body)
	}
}
