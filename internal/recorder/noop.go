package recorder

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"AssetJudge/internal/model"
)

// NoopRecorder is used when SQLite is not configured. It keeps only the
// latest result in memory so the API can still serve it.
type NoopRecorder struct {
	mu     sync.Mutex
	latest *model.ScanResult
}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(_ context.Context, res *model.ScanResult) (string, error) {
	n.mu.Lock()
	n.latest = res
	n.mu.Unlock()
	return uuid.NewString(), nil
}

func (n *NoopRecorder) RecordNotifications(_ context.Context, _ string, _ []model.Notification) error {
	return nil
}

func (n *NoopRecorder) LatestScan(_ context.Context) (*model.ScanResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.latest == nil {
		return nil, ErrNoScans
	}
	return n.latest, nil
}

func (n *NoopRecorder) RecentScans(_ context.Context, _ int) ([]ScanSummary, error) {
	return []ScanSummary{}, nil
}

func (n *NoopRecorder) Close() error { return nil }
