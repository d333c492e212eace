package news

import (
	"context"
	"fmt"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"golang.org/x/time/rate"
)

const (
	// maxItemsPerSource bounds how many articles a source hands downstream.
	maxItemsPerSource = 20

	// finnhubPause paces company-news calls under the free-tier quota.
	// Proactive, not a backoff.
	finnhubPause = 1100 * time.Millisecond

	// finnhubLookback is how far back the company-news query reaches; the
	// aggregator applies the precise recency cut afterwards.
	finnhubLookback = 30 * 24 * time.Hour
)

// FinnhubSource fetches company news from the Finnhub API. Calls are paced
// with a shared limiter so sequential symbol fetches stay under the
// provider's per-minute quota.
type FinnhubSource struct {
	client  *finnhub.DefaultApiService
	limiter *rate.Limiter
	now     func() time.Time
}

func NewFinnhubSource(apiKey string) *FinnhubSource {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	return &FinnhubSource{
		client:  finnhub.NewAPIClient(cfg).DefaultApi,
		limiter: rate.NewLimiter(rate.Every(finnhubPause), 1),
		now:     time.Now,
	}
}

func (s *FinnhubSource) Name() string {
	return "finnhub"
}

func (s *FinnhubSource) Fetch(ctx context.Context, symbol string) ([]Item, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("finnhub: rate wait: %w", err)
	}

	now := s.now().UTC()
	res, _, err := s.client.CompanyNews(ctx).
		Symbol(symbol).
		From(now.Add(-finnhubLookback).Format("2006-01-02")).
		To(now.Format("2006-01-02")).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub: company news for %s: %w", symbol, err)
	}

	items := make([]Item, 0, len(res))
	for _, n := range res {
		if len(items) >= maxItemsPerSource {
			break
		}
		item := Item{}
		if n.Headline != nil {
			item.Title = *n.Headline
		}
		if item.Title == "" {
			continue
		}
		if n.Source != nil {
			item.Source = *n.Source
		}
		if n.Summary != nil {
			item.Summary = *n.Summary
		}
		if n.Url != nil {
			item.URL = *n.Url
		}
		if n.Datetime != nil && *n.Datetime > 0 {
			item.PublishedAt = time.Unix(*n.Datetime, 0).UTC()
		}
		items = append(items, item)
	}
	return items, nil
}
