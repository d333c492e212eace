package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/ryosukesatoh/stock-digest/internal/config"
	"github.com/ryosukesatoh/stock-digest/internal/market"
	"github.com/ryosukesatoh/stock-digest/internal/news"
	"github.com/ryosukesatoh/stock-digest/internal/publisher"
	"github.com/ryosukesatoh/stock-digest/internal/report"
	"github.com/ryosukesatoh/stock-digest/internal/summarizer"
)

// NewsAggregator fetches news for every symbol; it is total by contract.
type NewsAggregator interface {
	FetchAll(ctx context.Context, symbols []string) map[string][]news.Item
}

// NarrativeGenerator produces the per-symbol summary and trend prediction;
// both are total by contract.
type NarrativeGenerator interface {
	Summarize(ctx context.Context, symbol, companyName string, items []news.Item, date string) summarizer.Result
	Predict(ctx context.Context, symbol string, items []news.Item, snap market.Snapshot, date string) string
}

// SymbolStatus records how one symbol fared across the per-symbol stages.
type SymbolStatus struct {
	NewsCount        int
	SnapshotDegraded bool
}

// Result is the run summary.
type Result struct {
	Success    bool
	Symbols    []string
	TotalNews  int
	TargetDate string
	PerSymbol  map[string]SymbolStatus
}

// Runner drives the digest pipeline: news, snapshots, narratives, assembly,
// delivery. Per-symbol failures degrade; only assembly and delivery may
// fail the run.
type Runner struct {
	cfg        *config.Config
	aggregator NewsAggregator
	markets    market.Provider
	generator  NarrativeGenerator
	publishers []publisher.Publisher
	now        func() time.Time
}

func New(cfg *config.Config, aggregator NewsAggregator, markets market.Provider, generator NarrativeGenerator, pubs []publisher.Publisher) *Runner {
	return &Runner{
		cfg:        cfg,
		aggregator: aggregator,
		markets:    markets,
		generator:  generator,
		publishers: pubs,
		now:        time.Now,
	}
}

// WithClock overrides the run clock, used by tests for deterministic
// dates and report timestamps.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes the full pipeline once. testMode processes only the first
// configured symbol and prefixes the subject line.
func (r *Runner) Run(ctx context.Context, testMode bool) (*Result, error) {
	symbols := r.cfg.Symbols
	if testMode && len(symbols) > 1 {
		symbols = symbols[:1]
	}

	// The digest covers yesterday's news cycle.
	targetDate := r.now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	log.Info().Str("date", targetDate).Strs("symbols", symbols).Msg("starting digest run")

	result := &Result{
		Symbols:    symbols,
		TargetDate: targetDate,
		PerSymbol:  make(map[string]SymbolStatus, len(symbols)),
	}

	newsData := r.aggregator.FetchAll(ctx, symbols)
	for _, items := range newsData {
		result.TotalNews += len(items)
	}
	log.Info().Int("total", result.TotalNews).Msg("news collected")

	run := report.DigestRun{
		Date:       targetDate,
		Language:   r.cfg.Language,
		Symbols:    symbols,
		News:       newsData,
		Snapshots:  make(map[string]market.Snapshot, len(symbols)),
		Narratives: make(map[string]summarizer.Result, len(symbols)),
	}

	for _, symbol := range symbols {
		status := SymbolStatus{NewsCount: len(newsData[symbol])}

		snap, err := r.markets.Snapshot(ctx, symbol)
		if err != nil {
			log.Warn().Str("symbol", symbol).Err(err).Msg("snapshot failed, using degraded data")
			snap = market.Degraded(symbol)
			status.SnapshotDegraded = true
		}
		run.Snapshots[symbol] = snap

		narrative := r.generator.Summarize(ctx, symbol, snap.CompanyName, newsData[symbol], targetDate)
		if r.cfg.EnablePrediction {
			narrative.Prediction = r.generator.Predict(ctx, symbol, newsData[symbol], snap, targetDate)
		}
		run.Narratives[symbol] = narrative

		result.PerSymbol[symbol] = status
	}

	rep := report.Assemble(run, r.now())

	subject := r.subject(targetDate, testMode)
	for _, pub := range r.publishers {
		if err := pub.Publish(ctx, &rep, subject); err != nil {
			return result, fmt.Errorf("runner: delivery via %T failed: %w", pub, err)
		}
	}

	result.Success = true
	log.Info().Int("cards", len(rep.Cards)).Int("total_news", result.TotalNews).Msg("digest run complete")
	return result, nil
}

func (r *Runner) subject(targetDate string, testMode bool) string {
	var subject string
	if r.cfg.Language == "zh" {
		subject = fmt.Sprintf("📈 每日股票简报 | %s", targetDate)
	} else {
		subject = fmt.Sprintf("📈 Daily Stock Brief | %s", targetDate)
	}
	if testMode {
		subject = "[TEST] " + subject
	}
	return subject
}
