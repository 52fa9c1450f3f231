// Package recorder persists scan history for later analysis.
package recorder

import (
	"context"
	"errors"
	"time"

	"AssetJudge/internal/model"
)

// ErrNoScans is returned when no scan has been recorded yet.
var ErrNoScans = errors.New("no scans recorded")

// ScanSummary is one row of scan history.
type ScanSummary struct {
	ID        string           `json:"id"`
	ScannedAt time.Time        `json:"scanned_at"`
	Status    model.ScanStatus `json:"market_status"`
	VIX       float64          `json:"vix_used"`
	Cash      float64          `json:"cash_percent"`
	SCount    int              `json:"s_count"`
	ACount    int              `json:"a_count"`
	FCount    int              `json:"f_count"`
	Excluded  int              `json:"excluded"`
}

// Recorder persists historical data for analysis.
type Recorder interface {
	// RecordScan stores a result and returns its generated ID.
	RecordScan(ctx context.Context, res *model.ScanResult) (string, error)
	RecordNotifications(ctx context.Context, scanID string, ns []model.Notification) error
	// LatestScan returns the most recent result or ErrNoScans.
	LatestScan(ctx context.Context) (*model.ScanResult, error)
	RecentScans(ctx context.Context, limit int) ([]ScanSummary, error)
	Close() error
}
