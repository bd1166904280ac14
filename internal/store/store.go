// Package store keeps a ledger of experiment runs in a SQLite database so
// runs can be compared across configurations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"

	"github.com/speechassess/cefrgrade/internal/experiment"
	"github.com/speechassess/cefrgrade/internal/report"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Run is one ledger entry.
type Run struct {
	ID         string
	StartedAt  time.Time
	Model      string
	Regressor  string
	Aspect     string
	Part       string
	Folds      int
	Thresholds string
	Accuracy   float64
	MacroF1    float64
	WeightedF1 float64
	MSE        float64
	Output     string

	FoldMetrics []report.SummaryRow
}

// FromResult builds a ledger entry from a finished run.
func FromResult(res *experiment.Result, model, aspect, part, output string) Run {
	return Run{
		ID:          res.RunID,
		StartedAt:   res.StartedAt,
		Model:       model,
		Regressor:   res.Regressor,
		Aspect:      aspect,
		Part:        part,
		Folds:       len(res.Folds),
		Thresholds:  res.Thresholds.String(),
		Accuracy:    res.Summary.MeanAccuracy,
		MacroF1:     res.Summary.MeanMacroF1,
		WeightedF1:  res.Summary.MeanWeightedF1,
		MSE:         res.Summary.MeanMSE,
		Output:      output,
		FoldMetrics: res.Summary.Rows,
	}
}

// Store is a SQLite-backed run ledger.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool

	insertRun  *sql.Stmt
	insertFold *sql.Stmt
	selectFold *sql.Stmt
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: empty database path")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			model TEXT NOT NULL,
			regressor TEXT NOT NULL,
			aspect TEXT NOT NULL,
			part TEXT NOT NULL,
			folds INTEGER NOT NULL,
			thresholds TEXT NOT NULL,
			accuracy REAL,
			macro_f1 REAL,
			weighted_f1 REAL,
			mse REAL,
			output TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS fold_metrics (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			fold TEXT NOT NULL,
			acc REAL,
			macro_precision REAL,
			macro_recall REAL,
			macro_f1 REAL,
			weighted_precision REAL,
			weighted_recall REAL,
			weighted_f1 REAL,
			PRIMARY KEY (run_id, fold)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error
	s.insertRun, err = s.db.Prepare(`
		INSERT OR REPLACE INTO runs
			(id, started_at, model, regressor, aspect, part, folds, thresholds, accuracy, macro_f1, weighted_f1, mse, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	s.insertFold, err = s.db.Prepare(`
		INSERT OR REPLACE INTO fold_metrics
			(run_id, fold, acc, macro_precision, macro_recall, macro_f1, weighted_precision, weighted_recall, weighted_f1)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	s.selectFold, err = s.db.Prepare(`
		SELECT fold, acc, macro_precision, macro_recall, macro_f1, weighted_precision, weighted_recall, weighted_f1
		FROM fold_metrics WHERE run_id = ? ORDER BY rowid
	`)
	return err
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// nullable stores NaN and infinities as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// Record inserts (or replaces) a run and its fold metrics in one transaction.
func (s *Store) Record(ctx context.Context, r Run) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if r.ID == "" {
		return fmt.Errorf("store: run without id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, s.insertRun).ExecContext(ctx,
		r.ID, r.StartedAt.UnixNano(), r.Model, r.Regressor, r.Aspect, r.Part, r.Folds, r.Thresholds,
		nullable(r.Accuracy), nullable(r.MacroF1), nullable(r.WeightedF1), nullable(r.MSE), r.Output,
	); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	fold := tx.StmtContext(ctx, s.insertFold)
	for _, m := range r.FoldMetrics {
		if _, err := fold.ExecContext(ctx, r.ID, m.Fold,
			nullable(m.Accuracy), nullable(m.MacroPrecision), nullable(m.MacroRecall), nullable(m.MacroF1),
			nullable(m.WeightedPrecision), nullable(m.WeightedRecall), nullable(m.WeightedF1),
		); err != nil {
			return fmt.Errorf("failed to record %s: %w", m.Fold, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	logf("run %s: recorded %d folds", r.ID, len(r.FoldMetrics))
	return nil
}

// List returns up to limit runs, newest first, with their fold metrics.
// A non-positive limit returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, model, regressor, aspect, part, folds, thresholds,
		       accuracy, macro_f1, weighted_f1, mse, output
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                  Run
			started            int64
			acc, mf1, wf1, mse sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &started, &r.Model, &r.Regressor, &r.Aspect, &r.Part, &r.Folds, &r.Thresholds,
			&acc, &mf1, &wf1, &mse, &r.Output); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started)
		r.Accuracy, r.MacroF1, r.WeightedF1, r.MSE = fromNull(acc), fromNull(mf1), fromNull(wf1), fromNull(mse)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range runs {
		if runs[i].FoldMetrics, err = s.folds(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) folds(ctx context.Context, runID string) ([]report.SummaryRow, error) {
	rows, err := s.selectFold.QueryContext(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query folds: %w", err)
	}
	defer rows.Close()

	var out []report.SummaryRow
	for rows.Next() {
		var (
			m               report.SummaryRow
			acc, mp, mr, mf sql.NullFloat64
			wp, wr, wf      sql.NullFloat64
		)
		if err := rows.Scan(&m.Fold, &acc, &mp, &mr, &mf, &wp, &wr, &wf); err != nil {
			return nil, fmt.Errorf("failed to scan fold: %w", err)
		}
		m.Accuracy, m.MacroPrecision, m.MacroRecall, m.MacroF1 = fromNull(acc), fromNull(mp), fromNull(mr), fromNull(mf)
		m.WeightedPrecision, m.WeightedRecall, m.WeightedF1 = fromNull(wp), fromNull(wr), fromNull(wf)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the database. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, st := range []*sql.Stmt{s.insertRun, s.insertFold, s.selectFold} {
		if st != nil {
			st.Close()
		}
	}
	return s.db.Close()
}
