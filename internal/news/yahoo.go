package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const yahooSearchBaseURL = "https://query1.finance.yahoo.com/v1/finance/search"

// Yahoo search response, news portion only.

type yahooSearchResponse struct {
	News []yahooNewsItem `json:"news"`
}

type yahooNewsItem struct {
	Title       string `json:"title"`
	Publisher   string `json:"publisher"`
	Link        string `json:"link"`
	PublishTime int64  `json:"providerPublishTime"`
}

// YahooSource fetches ticker news from the Yahoo Finance search endpoint.
// It is the fallback when the primary source yields nothing; Yahoo items
// carry no summary text.
type YahooSource struct {
	client  *http.Client
	baseURL string
}

type YahooSourceOption func(*YahooSource)

// WithYahooBaseURL points the source at a different endpoint, used by tests.
func WithYahooBaseURL(baseURL string) YahooSourceOption {
	return func(s *YahooSource) {
		s.baseURL = baseURL
	}
}

func NewYahooSource(opts ...YahooSourceOption) *YahooSource {
	s := &YahooSource{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: yahooSearchBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *YahooSource) Name() string {
	return "yahoo"
}

func (s *YahooSource) Fetch(ctx context.Context, symbol string) ([]Item, error) {
	query := url.Values{}
	query.Set("q", symbol)
	query.Set("newsCount", fmt.Sprintf("%d", maxItemsPerSource))
	query.Set("quotesCount", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", s.baseURL, query.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo: failed to create request: %w", err)
	}
	// Yahoo rejects requests without a browser-looking agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; stock-digest/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo: failed to read response: %w", err)
	}

	var parsed yahooSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("yahoo: failed to parse response: %w", err)
	}

	items := make([]Item, 0, len(parsed.News))
	for _, n := range parsed.News {
		if len(items) >= maxItemsPerSource {
			break
		}
		if n.Title == "" {
			continue
		}
		item := Item{
			Title:  n.Title,
			Source: n.Publisher,
			URL:    n.Link,
		}
		if n.PublishTime > 0 {
			item.PublishedAt = time.Unix(n.PublishTime, 0).UTC()
		}
		items = append(items, item)
	}
	return items, nil
}
