package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"PredictiBoot/internal/logger"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists forecasts to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logger.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logger.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", logger.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at          INTEGER NOT NULL,
			code                TEXT NOT NULL,
			name                TEXT,
			method              TEXT NOT NULL,
			predicted_price     REAL NOT NULL,
			last_close          REAL,
			last_date           TEXT,
			target_date         TEXT,
			bars_used           INTEGER,
			sequence_prediction REAL,
			tree_prediction     REAL,
			message             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_code_ts ON predictions(code, created_at)`,

		`CREATE TABLE IF NOT EXISTS job_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			job         TEXT NOT NULL,
			code        TEXT,
			status      TEXT NOT NULL,
			error       TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_ts ON job_runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordPrediction(ctx context.Context, rec *PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO predictions
		(created_at, code, name, method, predicted_price, last_close, last_date, target_date,
		 bars_used, sequence_prediction, tree_prediction, message)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.CreatedAt.UnixMilli(), rec.Code, rec.Name, rec.Method, rec.PredictedPrice, rec.LastClose,
		rec.LastDate.Format(dateLayout), rec.TargetDate.Format(dateLayout),
		rec.BarsUsed, rec.SequencePrediction, rec.TreePrediction, rec.Message,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// RecentPredictions returns up to limit records for code, newest first. An
// empty code returns every stock.
func (r *SQLiteRecorder) RecentPredictions(ctx context.Context, code string, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, created_at, code, name, method, predicted_price, last_close, last_date,
		target_date, bars_used, sequence_prediction, tree_prediction, message
		FROM predictions`
	args := []interface{}{}
	if code != "" {
		query += ` WHERE code = ?`
		args = append(args, code)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := []PredictionRecord{}
	for rows.Next() {
		var (
			rec                  PredictionRecord
			createdMs            int64
			lastDate, targetDate string
		)
		if err := rows.Scan(&rec.ID, &createdMs, &rec.Code, &rec.Name, &rec.Method, &rec.PredictedPrice,
			&rec.LastClose, &lastDate, &targetDate, &rec.BarsUsed, &rec.SequencePrediction,
			&rec.TreePrediction, &rec.Message); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdMs)
		rec.LastDate, _ = time.Parse(dateLayout, lastDate)
		rec.TargetDate, _ = time.Parse(dateLayout, targetDate)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) RecordJobRun(ctx context.Context, run *JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO job_runs
		(timestamp, job, code, status, error, duration_ms)
		VALUES (?,?,?,?,?,?)`,
		r.now().Unix(), run.Job, run.Code, run.Status, run.Error, run.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
