package report

import "strings"

// trendKeywords pairs each badge class with its language-pair keyword set.
// Order matters: the first class with a match wins.
var trendKeywords = []struct {
	class    string
	keywords []string
}{
	{"trend-bullish", []string{"看涨", "bullish", "📈"}},
	{"trend-bearish", []string{"看跌", "bearish", "📉"}},
	{"trend-neutral", []string{"中立", "neutral", "➡️"}},
}

var trendLabels = map[string]map[string]string{
	"trend-bullish": {"zh": "看涨 📈", "en": "Bullish 📈"},
	"trend-bearish": {"zh": "看跌 📉", "en": "Bearish 📉"},
	"trend-neutral": {"zh": "中立 ➡️", "en": "Neutral ➡️"},
}

// TrendBadge scans the prediction text for trend keywords and returns the
// localized badge label plus its CSS class. No keyword means no badge,
// which is not an error.
func TrendBadge(prediction, language string) (badge, class string) {
	if prediction == "" {
		return "", ""
	}
	lower := strings.ToLower(prediction)

	for _, candidate := range trendKeywords {
		for _, kw := range candidate.keywords {
			if strings.Contains(lower, kw) {
				if language != "zh" {
					return trendLabels[candidate.class]["en"], candidate.class
				}
				return trendLabels[candidate.class]["zh"], candidate.class
			}
		}
	}
	return "", ""
}
