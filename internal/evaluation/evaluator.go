package evaluation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rouge-eval/backend/internal/metrics"
	"github.com/rouge-eval/backend/internal/rouge"
	"github.com/rouge-eval/backend/internal/rouge/table"
	"github.com/rouge-eval/backend/internal/storage/models"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
	"github.com/rouge-eval/backend/pkg/logger"
	"github.com/rouge-eval/backend/pkg/utils"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// RunStore persists evaluation runs.
type RunStore interface {
	InsertRun(ctx context.Context, run *models.EvaluationRun) error
	GetRun(ctx context.Context, id string) (*models.EvaluationRun, error)
	ListRuns(ctx context.Context, limit int) ([]*models.EvaluationRun, error)
}

// ResultCache stores result sets by cache key.
type ResultCache interface {
	GetResult(ctx context.Context, key string) (*table.ResultSet, bool, error)
	SetResult(ctx context.Context, key string, rs *table.ResultSet, ttl time.Duration) error
}

// Options wires the optional collaborators. A nil Store or Cache disables
// persistence or caching.
type Options struct {
	Store    RunStore
	Cache    ResultCache
	CacheTTL time.Duration
	WorkDir  string
}

// Evaluator runs ROUGE evaluations on behalf of the API and the CLI,
// adding caching, run history and metrics around rouge.Evaluator.
type Evaluator struct {
	rouge    *rouge.Evaluator
	store    RunStore
	cache    ResultCache
	cacheTTL time.Duration
	workDir  string
}

func NewEvaluator(re *rouge.Evaluator, opts Options) *Evaluator {
	return &Evaluator{
		rouge:    re,
		store:    opts.Store,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		workDir:  opts.WorkDir,
	}
}

// EvaluateConfig scores the summaries listed in an existing SPL file.
func (e *Evaluator) EvaluateConfig(ctx context.Context, configPath string, cfg rouge.ScoringConfig, withConfidence bool) (*models.EvaluationRun, error) {
	if err := cfg.ValidateScorable(); err != nil {
		return nil, err
	}

	run := e.newRun(models.SourceConfig, cfg)
	run.ConfigPath = configPath

	fingerprint, err := configFingerprint(configPath)
	if err != nil {
		// let ROUGE report the unreadable file; just skip the cache
		logger.Debug("Config not fingerprinted, cache disabled for run", zap.String("config", configPath), zap.Error(err))
	} else {
		run.CacheKey = cacheKey(cfg, string(models.SourceConfig), fingerprint)
	}

	return e.execute(ctx, run, withConfidence, func(ctx context.Context) (*table.ResultSet, error) {
		return e.rouge.Evaluate(ctx, configPath, cfg, true)
	})
}

// EvaluateSummaries writes pairs into a private workspace and scores them.
func (e *Evaluator) EvaluateSummaries(ctx context.Context, pairs []rouge.SummaryPair, cfg rouge.ScoringConfig, withConfidence bool) (*models.EvaluationRun, error) {
	if err := cfg.ValidateScorable(); err != nil {
		return nil, err
	}
	if err := rouge.ValidatePairs(pairs); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(pairs)
	if err != nil {
		return nil, apperrors.InternalError("failed to encode summaries", err)
	}

	run := e.newRun(models.SourceInline, cfg)
	run.CacheKey = cacheKey(cfg, string(models.SourceInline), string(payload))

	return e.execute(ctx, run, withConfidence, func(ctx context.Context) (*table.ResultSet, error) {
		ws, err := rouge.NewWorkspace(e.workDir)
		if err != nil {
			return nil, apperrors.InternalError("failed to prepare workspace", err)
		}
		defer func() {
			if err := ws.Close(); err != nil {
				logger.Warn("Failed to remove workspace", zap.String("dir", ws.Dir()), zap.Error(err))
			}
		}()

		configPath, err := ws.Write(pairs)
		if err != nil {
			return nil, err
		}
		return e.rouge.Evaluate(ctx, configPath, cfg, true)
	})
}

func (e *Evaluator) GetRun(ctx context.Context, id string) (*models.EvaluationRun, error) {
	if e.store == nil {
		return nil, apperrors.ServiceUnavailableError("run history", nil)
	}
	return e.store.GetRun(ctx, id)
}

func (e *Evaluator) ListRuns(ctx context.Context, limit int) ([]*models.EvaluationRun, error) {
	if e.store == nil {
		return nil, apperrors.ServiceUnavailableError("run history", nil)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return e.store.ListRuns(ctx, limit)
}

func (e *Evaluator) newRun(source models.RunSource, cfg rouge.ScoringConfig) *models.EvaluationRun {
	return &models.EvaluationRun{
		ID:        uuid.New().String(),
		Source:    source,
		Options:   cfg,
		CreatedAt: time.Now(),
	}
}

func (e *Evaluator) execute(ctx context.Context, run *models.EvaluationRun, withConfidence bool, score func(context.Context) (*table.ResultSet, error)) (*models.EvaluationRun, error) {
	start := time.Now()
	logger.Info("Evaluating",
		zap.String("run_id", run.ID),
		zap.String("source", string(run.Source)),
		zap.Int("max_ngram", run.Options.MaxNGram),
		zap.Bool("lcs", run.Options.UseLCS),
	)

	rs, cached := e.lookup(ctx, run.CacheKey)
	var err error
	if !cached {
		rs, err = score(ctx)
	}

	run.Cached = cached
	run.DurationMS = time.Since(start).Milliseconds()
	metrics.EvaluationDuration.WithLabelValues(string(run.Source)).Observe(time.Since(start).Seconds())

	if err != nil {
		run.Status = models.StatusFailed
		run.Error = err.Error()
		recordFailure(err)
		e.persist(ctx, run)
		logger.Error("Evaluation failed", zap.String("run_id", run.ID), zap.Error(err))
		return nil, err
	}

	run.Status = models.StatusSucceeded
	run.Result = rs
	metrics.EvaluationsTotal.WithLabelValues(string(models.StatusSucceeded)).Inc()
	metrics.ObserveResult(rs)

	if !cached {
		e.remember(ctx, run.CacheKey, rs)
	}

	// The cache keeps every interval; the run only carries what was asked for.
	if !withConfidence && rs.Confidence != nil {
		stripped := *rs
		stripped.Confidence = nil
		run.Result = &stripped
	}
	e.persist(ctx, run)

	logger.Info("Evaluation completed",
		zap.String("run_id", run.ID),
		zap.Bool("cached", cached),
		zap.Int("rows", len(rs.Rows)),
		zap.Int64("duration_ms", run.DurationMS),
	)
	return run, nil
}

func (e *Evaluator) lookup(ctx context.Context, key string) (*table.ResultSet, bool) {
	if e.cache == nil || key == "" {
		return nil, false
	}
	rs, ok, err := e.cache.GetResult(ctx, key)
	if err != nil {
		logger.Warn("Result cache lookup failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues("result").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("result").Inc()
	return rs, true
}

func (e *Evaluator) remember(ctx context.Context, key string, rs *table.ResultSet) {
	if e.cache == nil || key == "" {
		return
	}
	if err := e.cache.SetResult(ctx, key, rs, e.cacheTTL); err != nil {
		logger.Warn("Failed to cache result", zap.Error(err))
	}
}

func (e *Evaluator) persist(ctx context.Context, run *models.EvaluationRun) {
	if e.store == nil {
		return
	}
	if err := e.store.InsertRun(ctx, run); err != nil {
		logger.Error("Failed to record evaluation run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func recordFailure(err error) {
	metrics.EvaluationsTotal.WithLabelValues(string(models.StatusFailed)).Inc()
	switch {
	case apperrors.IsParse(err):
		metrics.ParseFailures.WithLabelValues(apperrors.Reason(err)).Inc()
	case apperrors.IsExecution(err):
		metrics.ExecutionFailures.Inc()
	}
}

// cacheKey covers every option that changes ROUGE output. Paths are left
// out so identical content in different workspaces shares an entry.
func cacheKey(cfg rouge.ScoringConfig, source, content string) string {
	args, err := rouge.BuildArgs(cfg, "", "")
	if err != nil {
		return ""
	}
	orders := fmt.Sprintf("%d/%t", cfg.MaxNGram, cfg.UseLCS)
	return utils.HashParts(append([]string{source, orders, content}, args...)...)
}

// configFingerprint hashes the SPL file and every summary it lists.
func configFingerprint(configPath string) (string, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var parts []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		parts = append(parts, line)
		for _, path := range strings.Fields(line) {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", err
			}
			parts = append(parts, string(data))
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return utils.HashParts(parts...), nil
}
