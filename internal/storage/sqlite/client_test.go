package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	apperrors "github.com/rouge-eval/backend/pkg/errors"

	"github.com/rouge-eval/backend/internal/rouge"
	"github.com/rouge-eval/backend/internal/rouge/table"
	"github.com/rouge-eval/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "rouge.db"))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.InitSchema(); err != nil {
		t.Fatalf("InitSchema() error: %v", err)
	}
	return c
}

func sampleResult() *table.ResultSet {
	return &table.ResultSet{
		Columns: []string{"rouge-1-R", "rouge-1-P", "rouge-1-F", "rouge-L-R", "rouge-L-P", "rouge-L-F"},
		Rows: []table.ResultRow{
			{Name: "d2", Values: map[string]float64{"rouge-1-R": 0.4, "rouge-1-P": 0.5, "rouge-1-F": 0.44}},
			{Name: "d1", Values: map[string]float64{
				"rouge-1-R": 0.5, "rouge-1-P": 0.6, "rouge-1-F": 0.55,
				"rouge-L-R": 0.3, "rouge-L-P": 0.3, "rouge-L-F": 0.3,
			}},
			{Name: "average", Values: map[string]float64{
				"rouge-1-R": 0.45, "rouge-1-P": 0.55, "rouge-1-F": 0.495,
				"rouge-L-R": 0.3, "rouge-L-P": 0.3, "rouge-L-F": 0.3,
			}},
		},
		Confidence: []table.ConfidenceInterval{
			{Label: "rouge-1", Lower: 0.4, Upper: 0.5},
			{Label: "rouge-L", Lower: 0.3, Upper: 0.3},
		},
	}
}

func TestClient_RunRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	run := &models.EvaluationRun{
		ID:         "run-1",
		Source:     models.SourceInline,
		Options:    rouge.DefaultScoringConfig(),
		CacheKey:   "abc",
		Status:     models.StatusSucceeded,
		DurationMS: 1200,
		Result:     sampleResult(),
		CreatedAt:  time.Unix(1_700_000_000, 0),
	}
	if err := c.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun() error: %v", err)
	}

	got, err := c.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}

	if got.Options != run.Options {
		t.Errorf("Options = %+v, want %+v", got.Options, run.Options)
	}
	if !reflect.DeepEqual(got.Result, run.Result) {
		t.Errorf("Result =\n%+v\nwant\n%+v", got.Result, run.Result)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) || got.DurationMS != 1200 || got.Source != models.SourceInline {
		t.Errorf("run metadata = %+v", got)
	}
}

func TestClient_FailedRunHasNoResult(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	run := &models.EvaluationRun{
		ID:         "run-failed",
		Source:     models.SourceConfig,
		ConfigPath: "/tmp/x.spl",
		Options:    rouge.DefaultScoringConfig(),
		Status:     models.StatusFailed,
		Error:      "PARSE_ERROR: ROUGE-4 Average_R line not found",
		CreatedAt:  time.Now(),
	}
	if err := c.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun() error: %v", err)
	}

	got, err := c.GetRun(ctx, "run-failed")
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	if got.Result != nil || got.Error != run.Error || got.ConfigPath != "/tmp/x.spl" {
		t.Errorf("GetRun() = %+v", got)
	}
}

func TestClient_GetRunNotFound(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.GetRun(context.Background(), "missing"); !apperrors.IsNotFound(err) {
		t.Errorf("GetRun() error = %v, want not found", err)
	}
}

func TestClient_ListRunsNewestFirst(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	for i, id := range []string{"a", "b", "c"} {
		err := c.InsertRun(ctx, &models.EvaluationRun{
			ID:        id,
			Source:    models.SourceInline,
			Options:   rouge.DefaultScoringConfig(),
			Status:    models.StatusSucceeded,
			Result:    sampleResult(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("InsertRun(%s) error: %v", id, err)
		}
	}

	runs, err := c.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("ListRuns() = %v", runs)
	}
	if runs[0].Result != nil {
		t.Error("ListRuns should not load scores")
	}
}
