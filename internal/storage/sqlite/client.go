package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	apperrors "github.com/rouge-eval/backend/pkg/errors"
	"github.com/rouge-eval/backend/pkg/logger"

	"github.com/rouge-eval/backend/internal/rouge/table"
	"github.com/rouge-eval/backend/internal/storage/models"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluation_runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		config_path TEXT,
		options TEXT NOT NULL,
		cache_key TEXT,
		cached INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER,
		columns TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON evaluation_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_cache_key ON evaluation_runs(cache_key);

	CREATE TABLE IF NOT EXISTS evaluation_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		row_name TEXT NOT NULL,
		column_name TEXT NOT NULL,
		value REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES evaluation_runs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_scores_run ON evaluation_scores(run_id);

	CREATE TABLE IF NOT EXISTS evaluation_confidence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		lower_bound REAL NOT NULL,
		upper_bound REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES evaluation_runs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_confidence_run ON evaluation_confidence(run_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertRun(ctx context.Context, run *models.EvaluationRun) error {
	options, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	var columns []byte
	if run.Result != nil {
		columns, err = json.Marshal(run.Result.Columns)
		if err != nil {
			return fmt.Errorf("failed to marshal columns: %w", err)
		}
	}

	cached := 0
	if run.Cached {
		cached = 1
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO evaluation_runs (id, source, config_path, options, cache_key, cached, status, error, duration_ms, columns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Source),
		run.ConfigPath,
		string(options),
		run.CacheKey,
		cached,
		string(run.Status),
		run.Error,
		run.DurationMS,
		string(columns),
		run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation run: %w", err)
	}

	if run.Result != nil {
		if err := insertResult(ctx, tx, run.ID, run.Result); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit evaluation run: %w", err)
	}

	logger.Debug("Evaluation run recorded",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
	)
	return nil
}

func insertResult(ctx context.Context, tx *sql.Tx, runID string, rs *table.ResultSet) error {
	scoreStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evaluation_scores (run_id, row_index, row_name, column_name, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare score insert: %w", err)
	}
	defer scoreStmt.Close()

	for i, row := range rs.Rows {
		for _, col := range rs.Columns {
			v, ok := row.Values[col]
			if !ok {
				continue
			}
			if _, err := scoreStmt.ExecContext(ctx, runID, i, row.Name, col, v); err != nil {
				return fmt.Errorf("failed to insert score: %w", err)
			}
		}
	}

	for i, ci := range rs.Confidence {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evaluation_confidence (run_id, position, label, lower_bound, upper_bound) VALUES (?, ?, ?, ?, ?)`,
			runID, i, ci.Label, ci.Lower, ci.Upper)
		if err != nil {
			return fmt.Errorf("failed to insert confidence interval: %w", err)
		}
	}
	return nil
}

func (c *Client) GetRun(ctx context.Context, id string) (*models.EvaluationRun, error) {
	query := `SELECT id, source, config_path, options, cache_key, cached, status, error, duration_ms, columns, created_at
		FROM evaluation_runs WHERE id = ?`

	run, columns, err := scanRun(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundError(fmt.Sprintf("evaluation run %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation run: %w", err)
	}

	if run.Status == models.StatusSucceeded {
		run.Result, err = c.loadResult(ctx, id, columns)
		if err != nil {
			return nil, err
		}
	}
	return run, nil
}

// ListRuns returns the newest runs first, without their scores.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]*models.EvaluationRun, error) {
	query := `SELECT id, source, config_path, options, cache_key, cached, status, error, duration_ms, columns, created_at
		FROM evaluation_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.EvaluationRun{}
	for rows.Next() {
		run, _, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.EvaluationRun, []string, error) {
	var run models.EvaluationRun
	var source, status, options string
	var configPath, cacheKey, errMsg, columns sql.NullString
	var cached int
	var durationMS sql.NullInt64
	var createdAt int64

	err := s.Scan(
		&run.ID,
		&source,
		&configPath,
		&options,
		&cacheKey,
		&cached,
		&status,
		&errMsg,
		&durationMS,
		&columns,
		&createdAt,
	)
	if err != nil {
		return nil, nil, err
	}

	if err := json.Unmarshal([]byte(options), &run.Options); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}

	var cols []string
	if columns.String != "" {
		if err := json.Unmarshal([]byte(columns.String), &cols); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal columns: %w", err)
		}
	}

	run.Source = models.RunSource(source)
	run.Status = models.RunStatus(status)
	run.ConfigPath = configPath.String
	run.CacheKey = cacheKey.String
	run.Cached = cached == 1
	run.Error = errMsg.String
	run.DurationMS = durationMS.Int64
	run.CreatedAt = time.Unix(createdAt, 0)

	return &run, cols, nil
}

func (c *Client) loadResult(ctx context.Context, runID string, columns []string) (*table.ResultSet, error) {
	rs := &table.ResultSet{Columns: columns, Rows: []table.ResultRow{}}
	if rs.Columns == nil {
		rs.Columns = []string{}
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT row_index, row_name, column_name, value FROM evaluation_scores WHERE run_id = ? ORDER BY row_index, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	defer rows.Close()

	last := -1
	for rows.Next() {
		var idx int
		var name, col string
		var v float64
		if err := rows.Scan(&idx, &name, &col, &v); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		if idx != last {
			rs.Rows = append(rs.Rows, table.ResultRow{Name: name, Values: make(map[string]float64)})
			last = idx
		}
		rs.Rows[len(rs.Rows)-1].Values[col] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}

	confRows, err := c.db.QueryContext(ctx,
		`SELECT label, lower_bound, upper_bound FROM evaluation_confidence WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load confidence intervals: %w", err)
	}
	defer confRows.Close()

	for confRows.Next() {
		var ci table.ConfidenceInterval
		if err := confRows.Scan(&ci.Label, &ci.Lower, &ci.Upper); err != nil {
			return nil, fmt.Errorf("failed to scan confidence interval: %w", err)
		}
		rs.Confidence = append(rs.Confidence, ci)
	}
	if err := confRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read confidence intervals: %w", err)
	}

	return rs, nil
}
