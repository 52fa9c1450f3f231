package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{"chart":{"result":[{"meta":{"symbol":"NVDA"},
"timestamp":[1700000000,1700086400,1700172800],
"indicators":{"quote":[{
"open":[100,null,106],"high":[110,null,112],"low":[95,null,104],"close":[108,null,111],"volume":[10,null,12]}]}}],
"error":null}}`

const summaryJSON = `{"quoteSummary":{"result":[{
"price":{"shortName":"NVIDIA Corporation"},
"financialData":{"revenueGrowth":{"raw":0.12},"earningsGrowth":{"raw":0.2}},
"defaultKeyStatistics":{"forwardPE":{"raw":24}}}],"error":null}}`

func yahooServer(t *testing.T, handler http.HandlerFunc) *YahooFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := NewYahooFetcher("", 5*time.Second)
	f.ChartURL = srv.URL
	f.SummaryURL = srv.URL
	return f
}

func TestYahooFetcher_DailyBarsSkipsNullBars(t *testing.T) {
	f := yahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/NVDA", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(chartJSON))
	})

	bars, err := f.FetchDailyBars(context.Background(), "NVDA", 10)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 108.0, bars[0].Close)
	assert.Equal(t, 111.0, bars[1].Close)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
}

func TestYahooFetcher_TrimsToRequestedDays(t *testing.T) {
	f := yahooServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chartJSON))
	})
	bars, err := f.FetchDailyBars(context.Background(), "NVDA", 1)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 111.0, bars[0].Close)
}

func TestYahooFetcher_Fundamentals(t *testing.T) {
	f := yahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/NVDA"))
		_, _ = w.Write([]byte(summaryJSON))
	})

	fd, err := f.FetchFundamentals(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA Corporation", fd.Name)
	assert.InDelta(t, 24, fd.ForwardPE, 1e-9)
	assert.InDelta(t, 20, fd.EarningsGrowth, 1e-9)
	assert.InDelta(t, 12, fd.RevenueGrowth, 1e-9)
}

func TestYahooFetcher_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, "", ErrQuotaExceeded},
		{"server error", http.StatusBadGateway, "bad", ErrUpstream},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data"}}}`, ErrUpstream},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, ErrUpstream},
		{"garbage", http.StatusOK, `<html>`, ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := yahooServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := f.FetchDailyBars(context.Background(), "NVDA", 10)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/bars/daily":
			assert.Equal(t, "005930.KS", r.URL.Query().Get("symbol"))
			_, _ = w.Write([]byte(`[
				{"timestamp":1700086400,"open":2,"high":3,"low":1,"close":2.5,"volume":5},
				{"timestamp":1700000000,"open":1,"high":2,"low":0.5,"close":1.5,"volume":4}]`))
		case "/api/v1/fundamentals":
			_, _ = w.Write([]byte(`{"name":"Samsung","forwardPE":12,"earningsGrowth":30,"revenueGrowth":8}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", time.Second)
	ctx := context.Background()

	bars, err := f.FetchDailyBars(ctx, "005930.KS", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.5, bars[0].Close, "bars are sorted oldest first")

	fd, err := f.FetchFundamentals(ctx, "005930.KS")
	require.NoError(t, err)
	assert.Equal(t, "Samsung", fd.Name)
	assert.Equal(t, 30.0, fd.EarningsGrowth)

	f.BaseURL = srv.URL + "/other"
	_, err = f.FetchFundamentals(ctx, "X")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}
