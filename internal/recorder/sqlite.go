package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"AssetJudge/internal/model"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets the API read history while a scan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			status         TEXT NOT NULL,
			vix            REAL,
			cash           REAL,
			s_count        INTEGER,
			a_count        INTEGER,
			f_count        INTEGER,
			excluded_count INTEGER,
			message        TEXT,
			payload        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(timestamp)`,

		`CREATE TABLE IF NOT EXISTS graded_items (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_id     TEXT NOT NULL REFERENCES scans(id),
			ticker      TEXT NOT NULL,
			grade       TEXT NOT NULL,
			action      TEXT NOT NULL,
			allocation  REAL,
			amount      TEXT,
			currency    TEXT,
			price       REAL,
			open_price  REAL,
			ma200       REAL,
			rsi         REAL,
			peg         REAL,
			gap_ratio   REAL,
			demark_low  REAL,
			demark_high REAL,
			reasons     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_scan ON graded_items(scan_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_ticker ON graded_items(ticker)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id        TEXT PRIMARY KEY,
			scan_id   TEXT,
			timestamp INTEGER NOT NULL,
			type      TEXT NOT NULL,
			title     TEXT,
			message   TEXT,
			ticker    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_ts ON notifications(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(ctx context.Context, res *model.ScanResult) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode scan: %w", err)
	}
	ts := res.ScannedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	id := uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT INTO scans
		(id, timestamp, status, vix, cash, s_count, a_count, f_count, excluded_count, message, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		id, ts.UnixMilli(), string(res.Status), res.VIXUsed, res.Cash,
		res.CountGrade(model.GradeS), res.CountGrade(model.GradeA), res.CountGrade(model.GradeF),
		len(res.Excluded), res.Message, string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("insert scan: %w", err)
	}

	for _, it := range res.Items {
		d := it.UsedData
		_, err = tx.ExecContext(ctx, `INSERT INTO graded_items
			(scan_id, ticker, grade, action, allocation, amount, currency,
			 price, open_price, ma200, rsi, peg, gap_ratio, demark_low, demark_high, reasons)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			id, it.Ticker, string(it.Grade), string(it.Action), it.AllocationPercent,
			it.RecommendedAmount.String(), it.Currency,
			d.Price, d.OpenPrice, d.MA200, d.RSI, d.PEG, d.GapRatio, d.DemarkLow, d.DemarkHigh,
			strings.Join(it.Reasons, "\n"),
		)
		if err != nil {
			return "", fmt.Errorf("insert item %s: %w", it.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (r *SQLiteRecorder) RecordNotifications(ctx context.Context, scanID string, ns []model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range ns {
		_, err := r.db.ExecContext(ctx, `INSERT INTO notifications
			(id, scan_id, timestamp, type, title, message, ticker)
			VALUES (?,?,?,?,?,?,?)`,
			n.ID, scanID, n.Timestamp.UnixMilli(), string(n.Type), n.Title, n.Message, n.Ticker,
		)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) LatestScan(ctx context.Context) (*model.ScanResult, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM scans ORDER BY timestamp DESC, rowid DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoScans
	}
	if err != nil {
		return nil, err
	}
	var res model.ScanResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("decode scan: %w", err)
	}
	return &res, nil
}

func (r *SQLiteRecorder) RecentScans(ctx context.Context, limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, status, vix, cash, s_count, a_count, f_count, excluded_count
		FROM scans ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ScanSummary{}
	for rows.Next() {
		var s ScanSummary
		var ts int64
		var status string
		if err := rows.Scan(&s.ID, &ts, &status, &s.VIX, &s.Cash, &s.SCount, &s.ACount, &s.FCount, &s.Excluded); err != nil {
			return nil, err
		}
		s.ScannedAt = time.UnixMilli(ts)
		s.Status = model.ScanStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
