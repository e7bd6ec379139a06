package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"TaxSentinel/internal/model"
)

// SQLiteRecorder keeps the history of ecosystem runs in a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// RunSummary is one stored run, newest first when listed.
type RunSummary struct {
	RunID         string
	Ecosystem     string
	Timestamp     time.Time
	OverallStatus string
	Alerts        int
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while runs are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id               TEXT PRIMARY KEY,
			ecosystem            TEXT,
			timestamp            INTEGER NOT NULL,
			overall_status       TEXT,
			total_volume         REAL,
			avg_price_change_pct REAL,
			sustainability_score REAL,
			tokens_evaluated     INTEGER,
			tokens_unavailable   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS token_reports (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id               TEXT NOT NULL,
			token_id             TEXT NOT NULL,
			status               TEXT,
			severity             TEXT,
			current_price        REAL,
			price_change_pct     REAL,
			price_volatility_pct REAL,
			current_volume       REAL,
			volume_change_pct    REAL,
			daily_tax_revenue    REAL,
			required_payouts     REAL,
			sustainability_ratio REAL,
			is_sustainable       INTEGER,
			reason               TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_token_reports_run ON token_reports(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_token_reports_token ON token_reports(token_id)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL,
			seq     INTEGER NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_run ON alerts(run_id)`,

		`CREATE TABLE IF NOT EXISTS wallet_flags (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			wallet       TEXT NOT NULL,
			tx_hash      TEXT,
			direction    TEXT,
			amount       TEXT,
			counterparty TEXT,
			timestamp    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_flags_run ON wallet_flags(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Emit stores the run, its token rows, alerts and flagged wallet transfers in one transaction.
func (r *SQLiteRecorder) Emit(ctx context.Context, rep *model.EcosystemReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return writeFailure("begin: %v", err)
	}
	if err := insertRun(ctx, tx, rep); err != nil {
		tx.Rollback()
		return writeFailure("run %s: %v", rep.RunID, err)
	}
	if err := tx.Commit(); err != nil {
		return writeFailure("commit run %s: %v", rep.RunID, err)
	}
	r.logger.Debug("run recorded", zap.String("run_id", rep.RunID), zap.Int("tokens", len(rep.Tokens)))
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, rep *model.EcosystemReport) error {
	m := rep.Metrics
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, ecosystem, timestamp, overall_status, total_volume, avg_price_change_pct,
		 sustainability_score, tokens_evaluated, tokens_unavailable)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rep.RunID, rep.Ecosystem, rep.Timestamp.Unix(), rep.OverallStatus.String(),
		m.TotalVolume, m.AvgPriceChangePct, m.SustainabilityScore,
		m.TokensEvaluated, m.TokensUnavailable,
	); err != nil {
		return err
	}

	for _, t := range rep.Tokens {
		var price, priceChg, vol, volume, volChg sql.NullFloat64
		var revenue, payouts, ratio sql.NullFloat64
		var sustainable sql.NullBool
		if h := t.Health; h != nil {
			price = sql.NullFloat64{Float64: h.CurrentPrice, Valid: true}
			priceChg = sql.NullFloat64{Float64: h.PriceChangePct, Valid: true}
			if h.PriceVolatilityPct != nil {
				vol = sql.NullFloat64{Float64: *h.PriceVolatilityPct, Valid: true}
			}
			volume = sql.NullFloat64{Float64: h.CurrentVolume, Valid: true}
			volChg = sql.NullFloat64{Float64: h.VolumeChangePct, Valid: true}
		}
		if s := t.Sustainability; s != nil {
			revenue = sql.NullFloat64{Float64: s.DailyTaxRevenue, Valid: true}
			payouts = sql.NullFloat64{Float64: s.RequiredPayouts, Valid: true}
			if v, ok := s.Ratio(); ok {
				ratio = sql.NullFloat64{Float64: v, Valid: true}
			}
			sustainable = sql.NullBool{Bool: s.IsSustainable, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO token_reports
			(run_id, token_id, status, severity, current_price, price_change_pct,
			 price_volatility_pct, current_volume, volume_change_pct,
			 daily_tax_revenue, required_payouts, sustainability_ratio, is_sustainable, reason)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			rep.RunID, t.TokenID, t.Status, t.Severity.String(), price, priceChg,
			vol, volume, volChg, revenue, payouts, ratio, sustainable, t.Reason,
		); err != nil {
			return err
		}
	}

	for i, a := range rep.Alerts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO alerts (run_id, seq, message) VALUES (?,?,?)`,
			rep.RunID, i, a,
		); err != nil {
			return err
		}
	}

	for _, w := range rep.Wallets {
		for _, lt := range w.LargeTransactions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO wallet_flags
				(run_id, wallet, tx_hash, direction, amount, counterparty, timestamp)
				VALUES (?,?,?,?,?,?,?)`,
				rep.RunID, lt.Wallet, lt.Hash, string(lt.Direction), lt.Amount.String(),
				lt.Counterparty, lt.Timestamp.Unix(),
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecentRuns lists the latest stored runs, newest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT r.run_id, r.ecosystem, r.timestamp, r.overall_status,
			(SELECT COUNT(*) FROM alerts a WHERE a.run_id = r.run_id)
		FROM runs r ORDER BY r.timestamp DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var ts int64
		if err := rows.Scan(&s.RunID, &s.Ecosystem, &ts, &s.OverallStatus, &s.Alerts); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
