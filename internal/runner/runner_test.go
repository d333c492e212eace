package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/stock-digest/internal/config"
	"github.com/ryosukesatoh/stock-digest/internal/market"
	"github.com/ryosukesatoh/stock-digest/internal/news"
	"github.com/ryosukesatoh/stock-digest/internal/publisher"
	"github.com/ryosukesatoh/stock-digest/internal/report"
	"github.com/ryosukesatoh/stock-digest/internal/summarizer"
)

type stubAggregator struct {
	data map[string][]news.Item
}

func (s *stubAggregator) FetchAll(_ context.Context, symbols []string) map[string][]news.Item {
	result := make(map[string][]news.Item, len(symbols))
	for _, symbol := range symbols {
		result[symbol] = s.data[symbol]
	}
	return result
}

type stubProvider struct {
	snaps map[string]market.Snapshot
	errs  map[string]error
}

func (s *stubProvider) Snapshot(_ context.Context, symbol string) (market.Snapshot, error) {
	if err := s.errs[symbol]; err != nil {
		return market.Snapshot{}, err
	}
	return s.snaps[symbol], nil
}

type stubCompleter struct {
	text  string
	calls int
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string, _ int, _ float64) (string, error) {
	s.calls++
	return s.text, nil
}

type capturePublisher struct {
	reports  []*report.Report
	subjects []string
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, r *report.Report, subject string) error {
	if p.err != nil {
		return p.err
	}
	p.reports = append(p.reports, r)
	p.subjects = append(p.subjects, subject)
	return nil
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

var runNow = time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC)

func newTestRunner(cfg *config.Config, agg *stubAggregator, provider *stubProvider, completer *stubCompleter, pub *capturePublisher) *Runner {
	gen := summarizer.NewGenerator(completer, cfg.Language,
		summarizer.WithSleep(noSleep),
		summarizer.WithPace(0),
	)
	return New(cfg, agg, provider, gen, []publisher.Publisher{pub}).WithClock(func() time.Time { return runNow })
}

func TestRunMixedFailureStillDelivers(t *testing.T) {
	cfg := &config.Config{Symbols: []string{"BBB", "CCC"}, Language: "en"}

	agg := &stubAggregator{data: map[string][]news.Item{
		"CCC": {{Title: "CCC wins contract", URL: "https://example.com/ccc"}},
	}}
	provider := &stubProvider{
		snaps: map[string]market.Snapshot{
			"CCC": {CompanyName: "CCC Corp", ChangePercent: 2.0},
		},
		errs: map[string]error{"BBB": errors.New("provider down")},
	}
	completer := &stubCompleter{text: "Strong quarter for CCC."}
	pub := &capturePublisher{}

	r := newTestRunner(cfg, agg, provider, completer, pub)
	result, err := r.Run(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalNews)
	assert.True(t, result.PerSymbol["BBB"].SnapshotDegraded)
	assert.False(t, result.PerSymbol["CCC"].SnapshotDegraded)

	require.Len(t, pub.reports, 1)
	rep := pub.reports[0]
	require.Len(t, rep.Cards, 2)

	// BBB degrades to a zero-change snapshot and the empty-news placeholder.
	bbb := rep.Cards[0]
	assert.Equal(t, "BBB", bbb.Symbol)
	assert.Equal(t, "BBB", bbb.CompanyName)
	assert.Equal(t, "neutral", bbb.ChangeClass)
	var bbbTexts []string
	for _, b := range bbb.Summary {
		bbbTexts = append(bbbTexts, b.Text)
	}
	assert.Contains(t, bbbTexts, "No major news events today.")

	// CCC keeps its real data.
	ccc := rep.Cards[1]
	assert.Equal(t, "positive", ccc.ChangeClass)
	var cccTexts []string
	for _, b := range ccc.Summary {
		cccTexts = append(cccTexts, b.Text)
	}
	assert.Contains(t, cccTexts, "Strong quarter for CCC.")
	require.Len(t, ccc.Links, 1)

	// Only CCC had news, so the LLM ran once.
	assert.Equal(t, 1, completer.calls)
}

func TestRunDeliveryFailureIsFatal(t *testing.T) {
	cfg := &config.Config{Symbols: []string{"AAA"}, Language: "en"}
	agg := &stubAggregator{}
	provider := &stubProvider{snaps: map[string]market.Snapshot{"AAA": {CompanyName: "Acme"}}}
	pub := &capturePublisher{err: errors.New("smtp authentication failed")}

	r := newTestRunner(cfg, agg, provider, &stubCompleter{text: "x"}, pub)
	result, err := r.Run(context.Background(), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery")
	assert.False(t, result.Success)
}

func TestRunTestModeProcessesFirstSymbolOnly(t *testing.T) {
	cfg := &config.Config{Symbols: []string{"AAA", "BBB"}, Language: "en"}
	agg := &stubAggregator{}
	provider := &stubProvider{snaps: map[string]market.Snapshot{"AAA": {CompanyName: "Acme"}}}
	pub := &capturePublisher{}

	r := newTestRunner(cfg, agg, provider, &stubCompleter{text: "x"}, pub)
	result, err := r.Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA"}, result.Symbols)
	require.Len(t, pub.reports, 1)
	assert.Len(t, pub.reports[0].Cards, 1)
	// Target date is yesterday relative to the injected clock.
	assert.Equal(t, "[TEST] 📈 Daily Stock Brief | 2026-08-29", pub.subjects[0])
}

func TestRunSubjectChinese(t *testing.T) {
	cfg := &config.Config{Symbols: []string{"AAA"}, Language: "zh"}
	agg := &stubAggregator{}
	provider := &stubProvider{snaps: map[string]market.Snapshot{"AAA": {CompanyName: "Acme"}}}
	pub := &capturePublisher{}

	r := newTestRunner(cfg, agg, provider, &stubCompleter{text: "x"}, pub)
	_, err := r.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, "📈 每日股票简报 | 2026-08-29", pub.subjects[0])
}

func TestRunPredictionAttachedWhenEnabled(t *testing.T) {
	cfg := &config.Config{Symbols: []string{"AAA"}, Language: "en", EnablePrediction: true}
	agg := &stubAggregator{data: map[string][]news.Item{
		"AAA": {{Title: "guidance raised", URL: "https://example.com/a"}},
	}}
	provider := &stubProvider{snaps: map[string]market.Snapshot{"AAA": {CompanyName: "Acme", ChangePercent: 1.0}}}
	completer := &stubCompleter{text: "Bullish 📈 into earnings."}
	pub := &capturePublisher{}

	r := newTestRunner(cfg, agg, provider, completer, pub)
	_, err := r.Run(context.Background(), false)
	require.NoError(t, err)

	card := pub.reports[0].Cards[0]
	require.NotEmpty(t, card.Prediction)
	assert.Equal(t, "Bullish 📈", card.TrendBadge)
	assert.Equal(t, "trend-bullish", card.TrendClass)
	// Summary plus prediction: two completions.
	assert.Equal(t, 2, completer.calls)
}
