package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/phuslu/log"
)

const (
	yahooChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// periodObservations is how many trailing daily bars feed the rolling
	// high/low window (about eight trading weeks).
	periodObservations = 56

	// chartRange is the calendar lookback requested from the chart API,
	// wide enough to always cover periodObservations trading days.
	chartRange = "3mo"
)

// Yahoo chart API response, reduced to the fields the snapshot needs.

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooChartError   `json:"error"`
	} `json:"chart"`
}

type yahooChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Indicators struct {
		Quote []struct {
			High []*float64 `json:"high"`
			Low  []*float64 `json:"low"`
		} `json:"quote"`
	} `json:"indicators"`
}

// YahooProvider builds snapshots from the Yahoo Finance chart endpoint. One
// request yields the company name, current price, prior close, and the
// daily high/low series for the rolling window.
type YahooProvider struct {
	client  *http.Client
	baseURL string
}

type YahooProviderOption func(*YahooProvider)

// WithChartBaseURL points the provider at a different endpoint, used by tests.
func WithChartBaseURL(baseURL string) YahooProviderOption {
	return func(p *YahooProvider) {
		p.baseURL = baseURL
	}
}

func NewYahooProvider(opts ...YahooProviderOption) *YahooProvider {
	p := &YahooProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: yahooChartBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *YahooProvider) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	query := url.Values{}
	query.Set("range", chartRange)
	query.Set("interval", "1d")

	reqURL := fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("market: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; stock-digest/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("market: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("market: unexpected status %d for %s", resp.StatusCode, symbol)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("market: failed to read response: %w", err)
	}

	var parsed yahooChartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Snapshot{}, fmt.Errorf("market: failed to parse response: %w", err)
	}
	if parsed.Chart.Error != nil {
		return Snapshot{}, fmt.Errorf("market: chart error for %s: %s", symbol, parsed.Chart.Error.Code)
	}
	if len(parsed.Chart.Result) == 0 {
		return Snapshot{}, fmt.Errorf("market: empty chart result for %s", symbol)
	}

	result := parsed.Chart.Result[0]
	snap := Snapshot{CompanyName: companyName(result, symbol)}

	// change and change_percent need a positive baseline; without one both
	// stay exactly zero instead of dividing by zero.
	price := result.Meta.RegularMarketPrice
	prevClose := result.Meta.ChartPreviousClose
	if prevClose > 0 {
		if price == 0 {
			price = prevClose
		}
		rounded := round2(price)
		snap.CurrentPrice = &rounded
		snap.Change = round2(price - prevClose)
		snap.ChangePercent = round2((price - prevClose) / prevClose * 100)
	}

	// The high/low window is best-effort; a missing series only leaves the
	// window fields nil.
	if low, high, ok := periodRange(result); ok {
		snap.PeriodLow = &low
		snap.PeriodHigh = &high
	} else {
		log.Info().Str("symbol", symbol).Msg("no historical series, skipping high/low window")
	}

	return snap, nil
}

func companyName(result yahooChartResult, symbol string) string {
	if result.Meta.LongName != "" {
		return result.Meta.LongName
	}
	if result.Meta.ShortName != "" {
		return result.Meta.ShortName
	}
	return symbol
}

// periodRange computes min(low) and max(high) over the trailing window,
// skipping null bars, rounded to 2 decimal places.
func periodRange(result yahooChartResult) (low, high float64, ok bool) {
	if len(result.Indicators.Quote) == 0 {
		return 0, 0, false
	}
	quote := result.Indicators.Quote[0]

	lows := tail(quote.Low, periodObservations)
	highs := tail(quote.High, periodObservations)

	for _, v := range lows {
		if v == nil {
			continue
		}
		if !ok || *v < low {
			low = *v
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	high = low
	for _, v := range highs {
		if v != nil && *v > high {
			high = *v
		}
	}
	return round2(low), round2(high), true
}

func tail(series []*float64, n int) []*float64 {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}
