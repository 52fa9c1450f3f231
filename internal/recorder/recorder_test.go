package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetJudge/internal/model"
)

func scan(at time.Time, status model.ScanStatus, grades ...model.Grade) *model.ScanResult {
	res := &model.ScanResult{Status: status, VIXUsed: 17, Cash: 0.7, ScannedAt: at}
	for _, g := range grades {
		res.Items = append(res.Items, model.GradedItem{
			Ticker:            "T" + string(g),
			Grade:             g,
			Action:            model.ActionBuy,
			Reasons:           []string{"PEG pass", "Growth pass"},
			AllocationPercent: 0.3,
			RecommendedAmount: decimal.NewFromInt(300000),
			Currency:          "KRW",
		})
	}
	return res
}

func openRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSQLiteRecorder_LatestScanEmpty(t *testing.T) {
	r := openRecorder(t)
	_, err := r.LatestScan(context.Background())
	assert.ErrorIs(t, err, ErrNoScans)
}

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := r.RecordScan(ctx, scan(t0, model.StatusActive, model.GradeS, model.GradeF))
	require.NoError(t, err)
	id, err := r.RecordScan(ctx, scan(t0.Add(24*time.Hour), model.StatusActive, model.GradeA))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	latest, err := r.LatestScan(ctx)
	require.NoError(t, err)
	require.Len(t, latest.Items, 1)
	assert.Equal(t, model.GradeA, latest.Items[0].Grade)
	assert.True(t, latest.Items[0].RecommendedAmount.Equal(decimal.NewFromInt(300000)))
	assert.True(t, latest.ScannedAt.Equal(t0.Add(24*time.Hour)))

	hist, err := r.RecentScans(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, id, hist[0].ID)
	assert.Equal(t, 1, hist[1].SCount)
	assert.Equal(t, 1, hist[1].FCount)

	var items int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM graded_items`).Scan(&items))
	assert.Equal(t, 3, items)
}

func TestSQLiteRecorder_Notifications(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()
	id, err := r.RecordScan(ctx, scan(time.Now(), model.StatusActive, model.GradeS))
	require.NoError(t, err)

	err = r.RecordNotifications(ctx, id, []model.Notification{
		{ID: "n1", Type: model.BuyAlert, Title: "S-Class Opportunity", Message: "Found 1", Timestamp: time.Now()},
		{ID: "n2", Type: model.SellAlert, Title: "Stop-Loss Triggered", Ticker: "TSLA", Timestamp: time.Now()},
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE scan_id = ?`, id).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLiteRecorder_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	_, err = r.RecordScan(context.Background(), scan(time.Now(), model.StatusHalted, model.GradeF))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r2, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r2.Close()
	latest, err := r2.LatestScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusHalted, latest.Status)
}

func TestNoopRecorder(t *testing.T) {
	n := NewNoopRecorder()
	ctx := context.Background()

	_, err := n.LatestScan(ctx)
	assert.ErrorIs(t, err, ErrNoScans)

	res := scan(time.Now(), model.StatusActive)
	_, err = n.RecordScan(ctx, res)
	require.NoError(t, err)
	got, err := n.LatestScan(ctx)
	require.NoError(t, err)
	assert.Same(t, res, got)

	hist, err := n.RecentScans(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, hist)
	assert.NoError(t, n.Close())
}
