package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"AssetJudge/internal/model"
)

const (
	yahooChartURL   = "https://query1.finance.yahoo.com"
	yahooSummaryURL = "https://query2.finance.yahoo.com"
)

// YahooFetcher implements Fetcher using the Yahoo Finance public API.
type YahooFetcher struct {
	Client     *http.Client
	ChartURL   string
	SummaryURL string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		Client:     newHTTPClient(proxyURL, timeout),
		ChartURL:   yahooChartURL,
		SummaryURL: yahooSummaryURL,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooValue struct {
	Raw *float64 `json:"raw"`
}

// yahooSummary is the subset of quoteSummary used for fundamentals.
type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				ShortName string `json:"shortName"`
				LongName  string `json:"longName"`
			} `json:"price"`
			FinancialData struct {
				RevenueGrowth  yahooValue `json:"revenueGrowth"`
				EarningsGrowth yahooValue `json:"earningsGrowth"`
			} `json:"financialData"`
			DefaultKeyStatistics struct {
				ForwardPE yahooValue `json:"forwardPE"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

func at(vs []*float64, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return 0
	}
	return *vs[i]
}

func yahooHeader() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0")
	return h
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.ChartURL, url.PathEscape(symbol), interval, rng)

	var chart yahooChart
	if err := getJSON(ctx, f.Client, "yahoo chart", u, yahooHeader(), &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %w", chart.Chart.Error.Description, ErrUpstream)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s: %w", symbol, ErrUpstream)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == 0 || h == 0 || l == 0 || c == 0 {
			continue // null bars (holidays, halted sessions)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	// Yahoo range: max "2y" for daily interval
	rng := "2y"
	switch {
	case days <= 5:
		rng = "5d"
	case days <= 21:
		rng = "1mo"
	case days <= 63:
		rng = "3mo"
	case days <= 126:
		rng = "6mo"
	case days <= 252:
		rng = "1y"
	}
	bars, err := f.fetchChart(ctx, symbol, "1d", rng)
	if err != nil {
		return nil, err
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (f *YahooFetcher) FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=price,financialData,defaultKeyStatistics",
		f.SummaryURL, url.PathEscape(symbol))

	var sum yahooSummary
	if err := getJSON(ctx, f.Client, "yahoo summary", u, yahooHeader(), &sum); err != nil {
		return Fundamentals{}, err
	}
	if sum.QuoteSummary.Error != nil {
		return Fundamentals{}, fmt.Errorf("yahoo api error: %s: %w", sum.QuoteSummary.Error.Description, ErrUpstream)
	}
	if len(sum.QuoteSummary.Result) == 0 {
		return Fundamentals{}, fmt.Errorf("yahoo: no summary for %s: %w", symbol, ErrUpstream)
	}

	r := sum.QuoteSummary.Result[0]
	fd := Fundamentals{
		Name:           strings.TrimSpace(r.Price.ShortName),
		ForwardPE:      raw(r.DefaultKeyStatistics.ForwardPE),
		EarningsGrowth: raw(r.FinancialData.EarningsGrowth) * 100,
		RevenueGrowth:  raw(r.FinancialData.RevenueGrowth) * 100,
	}
	if fd.Name == "" {
		fd.Name = strings.TrimSpace(r.Price.LongName)
	}
	return fd, nil
}

// raw returns the value or 0 when Yahoo omits it; 0 fails the PEG and
// growth checks rather than inventing a number.
func raw(v yahooValue) float64 {
	if v.Raw == nil {
		return 0
	}
	return *v.Raw
}
