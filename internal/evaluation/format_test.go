package evaluation

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/rouge-eval/backend/internal/rouge/table"
	"github.com/rouge-eval/backend/internal/storage/models"
)

func sampleResult() *table.ResultSet {
	return &table.ResultSet{
		Columns: []string{"rouge-1-R", "rouge-1-P", "rouge-1-F"},
		Rows: []table.ResultRow{
			{Name: "d1", Values: map[string]float64{"rouge-1-R": 0.5, "rouge-1-P": 0.25, "rouge-1-F": 0.33333}},
			{Name: "average", Values: map[string]float64{"rouge-1-R": 0.75, "rouge-1-P": 0.625}},
		},
		Confidence: []table.ConfidenceInterval{{Label: "rouge-1", Lower: 0.5, Upper: 1}},
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"text", "JSON", "yaml"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) error: %v", in, err)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("ParseFormat(csv) succeeded")
	}
}

func TestWriteResult_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResult(&buf, sampleResult(), FormatText); err != nil {
		t.Fatalf("WriteResult() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"rouge-1-F", "0.33333", "average", "95% confidence", "1.00000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[2], "average") || !strings.HasSuffix(strings.TrimRight(lines[2], " "), "-") {
		t.Errorf("average row = %q, want missing F cell rendered as -", lines[2])
	}
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResult(&buf, sampleResult(), FormatJSON); err != nil {
		t.Fatalf("WriteResult() error: %v", err)
	}
	var got table.ResultSet
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got.Rows) != 2 || got.Confidence[0].Label != "rouge-1" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestWriteRun_YAML(t *testing.T) {
	run := &models.EvaluationRun{
		ID:         "run-1",
		Status:     models.StatusSucceeded,
		DurationMS: 12,
		Result:     sampleResult(),
	}

	var buf bytes.Buffer
	if err := WriteRun(&buf, run, FormatYAML); err != nil {
		t.Fatalf("WriteRun() error: %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got["id"] != "run-1" || got["duration_ms"] != 12 {
		t.Errorf("decoded = %v", got)
	}
}

func TestWriteRun_TextFailed(t *testing.T) {
	run := &models.EvaluationRun{ID: "run-2", Status: models.StatusFailed, Error: "boom"}

	var buf bytes.Buffer
	if err := WriteRun(&buf, run, FormatText); err != nil {
		t.Fatalf("WriteRun() error: %v", err)
	}
	if !strings.Contains(buf.String(), "Error: boom") {
		t.Errorf("output = %q", buf.String())
	}
}
