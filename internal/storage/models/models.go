package models

import (
	"time"

	"github.com/rouge-eval/backend/internal/rouge"
	"github.com/rouge-eval/backend/internal/rouge/table"
)

type RunSource string

const (
	SourceConfig RunSource = "config"
	SourceInline RunSource = "inline"
)

type RunStatus string

const (
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// EvaluationRun is one ROUGE invocation and, when it succeeded, its scores.
type EvaluationRun struct {
	ID         string              `json:"id" yaml:"id"`
	Source     RunSource           `json:"source" yaml:"source"`
	ConfigPath string              `json:"config_path,omitempty" yaml:"config_path,omitempty"`
	Options    rouge.ScoringConfig `json:"options" yaml:"options"`
	CacheKey   string              `json:"cache_key" yaml:"cache_key"`
	Cached     bool                `json:"cached" yaml:"cached"`
	Status     RunStatus           `json:"status" yaml:"status"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64               `json:"duration_ms" yaml:"duration_ms"`
	Result     *table.ResultSet    `json:"result,omitempty" yaml:"result,omitempty"`
	CreatedAt  time.Time           `json:"created_at" yaml:"created_at"`
}
