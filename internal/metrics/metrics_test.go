package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetJudge/internal/model"
)

func TestObserveScan(t *testing.T) {
	r := NewRegistry()
	r.ObserveScan(&model.ScanResult{
		Status:   model.StatusActive,
		VIXUsed:  18.5,
		Items:    []model.GradedItem{{Grade: model.GradeS}, {Grade: model.GradeS}, {Grade: model.GradeF}},
		Excluded: []model.ExcludedTicker{{Ticker: "BAD"}},
	}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.ScansTotal.WithLabelValues("Active")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.GradedTotal.WithLabelValues("S")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GradedTotal.WithLabelValues("F")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ExcludedTotal))
	assert.Equal(t, 18.5, testutil.ToFloat64(r.LastVIX))
}

func TestFetchCounters(t *testing.T) {
	r := NewRegistry()
	r.ObserveFetch("yahoo", time.Millisecond, nil)
	r.ObserveFetch("yahoo", time.Millisecond, errors.New("boom"))
	r.FetchFailed("quota")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.FetchErrors.WithLabelValues("quota")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.FetchDuration))
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveScan(&model.ScanResult{}, time.Second)
		r.ObserveFetch("x", time.Second, nil)
		r.FetchFailed("x")
	})
	assert.NotNil(t, r.Handler())
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.FetchFailed("breaker_open")

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `assetjudge_fetch_errors_total{kind="breaker_open"} 1`)
}
