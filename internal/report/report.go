package report

import (
	"fmt"
	"time"

	"github.com/ryosukesatoh/stock-digest/internal/market"
	"github.com/ryosukesatoh/stock-digest/internal/news"
	"github.com/ryosukesatoh/stock-digest/internal/summarizer"
)

const (
	// maxCollectedLinks is how many news links a card carries; the renderer
	// shows at most maxRenderedLinks of them.
	maxCollectedLinks = 10
	// MaxRenderedLinks is the per-card link budget in the rendered document.
	MaxRenderedLinks = 5
)

// DigestRun is the whole-batch envelope: everything the per-symbol stages
// produced, keyed by symbol, plus the run metadata. It is built once per
// invocation and consumed exactly once by Assemble.
type DigestRun struct {
	Date       string
	Language   string
	Symbols    []string
	News       map[string][]news.Item
	Snapshots  map[string]market.Snapshot
	Narratives map[string]summarizer.Result
}

// Report is the rendered structure the delivery stage consumes. Cards are
// in the same order as DigestRun.Symbols; recipients expect a stable layout.
type Report struct {
	Title       string
	DateLabel   string
	Language    string
	Symbols     []string
	GeneratedAt time.Time
	Cards       []Card
}

// Card is one symbol's section of the report.
type Card struct {
	Symbol        string
	CompanyName   string
	CurrentPrice  *float64
	PeriodLow     *float64
	PeriodHigh    *float64
	ChangePercent float64
	ChangeClass   string
	Summary       []Block
	Prediction    []Block
	TrendBadge    string
	TrendClass    string
	Links         []Link
	NewsCount     int
}

type Link struct {
	Title string
	URL   string
}

// Assemble merges the per-symbol results into the report structure. It is a
// pure function: no I/O, no clock (the generation time is injected), and it
// never fails — missing map entries degrade to empty cards.
func Assemble(run DigestRun, now time.Time) Report {
	r := Report{
		Title:       title(run.Language),
		DateLabel:   dateLabel(now, run.Language),
		Language:    run.Language,
		Symbols:     run.Symbols,
		GeneratedAt: now,
	}

	for _, symbol := range run.Symbols {
		snap := run.Snapshots[symbol]
		if snap.CompanyName == "" {
			snap.CompanyName = symbol
		}
		narrative := run.Narratives[symbol]
		items := run.News[symbol]

		card := Card{
			Symbol:        symbol,
			CompanyName:   snap.CompanyName,
			CurrentPrice:  snap.CurrentPrice,
			PeriodLow:     snap.PeriodLow,
			PeriodHigh:    snap.PeriodHigh,
			ChangePercent: snap.ChangePercent,
			ChangeClass:   ChangeClass(snap.ChangePercent),
			Summary:       ToBlocks(narrative.Summary),
			NewsCount:     len(items),
			Links:         collectLinks(items),
		}

		if narrative.Prediction != "" {
			card.Prediction = ToBlocks(narrative.Prediction)
			card.TrendBadge, card.TrendClass = TrendBadge(narrative.Prediction, run.Language)
		}

		r.Cards = append(r.Cards, card)
	}

	return r
}

// ChangeClass maps the change percent sign onto exactly one of the three
// badge classes.
func ChangeClass(changePercent float64) string {
	switch {
	case changePercent > 0:
		return "positive"
	case changePercent < 0:
		return "negative"
	default:
		return "neutral"
	}
}

// collectLinks keeps the first items that carry a URL, in source order.
func collectLinks(items []news.Item) []Link {
	var links []Link
	for _, item := range items {
		if len(links) >= maxCollectedLinks {
			break
		}
		if item.URL == "" {
			continue
		}
		links = append(links, Link{Title: item.Title, URL: item.URL})
	}
	return links
}

func title(language string) string {
	if language == "zh" {
		return "📈 每日股票简报"
	}
	return "📈 Daily Stock Brief"
}

var zhWeekdays = [...]string{"日", "一", "二", "三", "四", "五", "六"}

func dateLabel(now time.Time, language string) string {
	if language == "zh" {
		return fmt.Sprintf("%d年%02d月%02d日（星期%s）",
			now.Year(), int(now.Month()), now.Day(), zhWeekdays[now.Weekday()])
	}
	return fmt.Sprintf("%s (%s)", now.Format("January 2, 2006"), now.Weekday())
}
