package news

import (
	"context"
	"time"

	"github.com/phuslu/log"
)

// Item is one news article for a symbol. Title is the only field a source
// must provide; a zero PublishedAt means the publish time is unknown.
type Item struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
}

// Source fetches recent news for a single symbol.
type Source interface {
	Fetch(ctx context.Context, symbol string) ([]Item, error)
	Name() string
}

// Aggregator tries an ordered list of sources until one yields a non-empty
// result, then filters by recency. It never returns an error: total failure
// degrades to an empty set so one symbol's news can never fail the run.
type Aggregator struct {
	sources  []Source
	daysBack int
	now      func() time.Time
}

func NewAggregator(daysBack int, sources ...Source) *Aggregator {
	return &Aggregator{
		sources:  sources,
		daysBack: daysBack,
		now:      time.Now,
	}
}

// Fetch returns the recent news for one symbol, or an empty set.
func (a *Aggregator) Fetch(ctx context.Context, symbol string) []Item {
	var items []Item
	for _, src := range a.sources {
		fetched, err := src.Fetch(ctx, symbol)
		if err != nil {
			log.Warn().Str("symbol", symbol).Str("source", src.Name()).Err(err).Msg("news fetch failed")
			continue
		}
		if len(fetched) == 0 {
			log.Info().Str("symbol", symbol).Str("source", src.Name()).Msg("no news from source, trying next")
			continue
		}
		items = fetched
		break
	}
	return a.filterRecent(items)
}

// FetchAll fetches news for every symbol in order. Map keys are disjoint per
// symbol, so the caller may range over its own symbol slice for ordering.
func (a *Aggregator) FetchAll(ctx context.Context, symbols []string) map[string][]Item {
	result := make(map[string][]Item, len(symbols))
	for _, symbol := range symbols {
		items := a.Fetch(ctx, symbol)
		result[symbol] = items
		log.Info().Str("symbol", symbol).Int("count", len(items)).Msg("news fetched")
	}
	return result
}

// filterRecent keeps items published on or after midnight UTC of
// (now - daysBack). Items with an unknown publish time are kept: dropping
// real news is worse than keeping a borderline item. daysBack <= 0 disables
// filtering.
func (a *Aggregator) filterRecent(items []Item) []Item {
	if a.daysBack <= 0 || len(items) == 0 {
		return items
	}
	cutoff := a.now().UTC().AddDate(0, 0, -a.daysBack).Truncate(24 * time.Hour)
	kept := items[:0:0]
	for _, item := range items {
		if item.PublishedAt.IsZero() || !item.PublishedAt.Before(cutoff) {
			kept = append(kept, item)
		}
	}
	return kept
}
