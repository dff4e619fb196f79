package rouge

import (
	"context"

	"go.uber.org/zap"

	"github.com/rouge-eval/backend/pkg/logger"

	"github.com/rouge-eval/backend/internal/rouge/report"
	"github.com/rouge-eval/backend/internal/rouge/table"
)

// Evaluator runs one ROUGE invocation per call. It holds no per-call state.
type Evaluator struct {
	provider ReportProvider
	dataDir  string
}

func NewEvaluator(provider ReportProvider, dataDir string) *Evaluator {
	return &Evaluator{
		provider: provider,
		dataDir:  dataDir,
	}
}

// Args builds the script arguments this evaluator would run for configPath.
func (e *Evaluator) Args(cfg ScoringConfig, configPath string) ([]string, error) {
	return BuildArgs(cfg, e.dataDir, configPath)
}

// Evaluate scores the summaries listed in the SPL file at configPath. The
// result has one column triple per order, 1..MaxNGram then L when UseLCS.
// Confidence rows are filled only when withConfidence is set.
func (e *Evaluator) Evaluate(ctx context.Context, configPath string, cfg ScoringConfig, withConfidence bool) (*table.ResultSet, error) {
	if err := cfg.ValidateScorable(); err != nil {
		return nil, err
	}
	args, err := e.Args(cfg, configPath)
	if err != nil {
		return nil, err
	}

	out, err := e.provider.Report(ctx, args)
	if err != nil {
		return nil, err
	}

	rs, err := report.ParseAll(out, cfg.Orders()...)
	if err != nil {
		logger.Warn("ROUGE report did not match requested options",
			zap.String("config", configPath),
			zap.Int("max_ngram", cfg.MaxNGram),
			zap.Bool("lcs", cfg.UseLCS),
			zap.Error(err),
		)
		return nil, err
	}

	if !withConfidence {
		rs.Confidence = nil
	}
	return rs, nil
}
