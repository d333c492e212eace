package publisher

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/ryosukesatoh/stock-digest/internal/report"
)

var boldRegex = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// inline escapes a block's text and resolves **bold** markers. Escaping
// happens first so model output can never inject markup.
func inline(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(boldRegex.ReplaceAllString(escaped, "<strong>$1</strong>"))
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"inline": inline,
}).Parse(reportHTML))

type cardView struct {
	report.Card
	ChangeLabel string
	PriceLabel  string
	RangeLabel  string
	NewsHeading string
	ShownLinks  []report.Link
}

type reportView struct {
	Title           string
	DateLabel       string
	CoveredLabel    string
	PredictionTitle string
	Disclaimer      string
	GeneratedLabel  string
	Cards           []cardView
	NoNewsNotice    string
}

// Render produces the HTML document for a report. The structural contract —
// header, N cards in request order, footer — is what mail clients consume.
func Render(r *report.Report) (string, error) {
	zh := r.Language == "zh"

	view := reportView{
		Title:          r.Title,
		DateLabel:      r.DateLabel,
		GeneratedLabel: r.GeneratedAt.Format("2006-01-02 15:04:05"),
	}
	if zh {
		view.CoveredLabel = "覆盖股票：" + strings.Join(r.Symbols, " | ")
		view.PredictionTitle = "🔮 AI 走势预测"
		view.Disclaimer = "本简报由 AI 自动生成，仅供参考，不构成投资建议。"
		view.NoNewsNotice = "今日没有抓取到任何新闻。"
	} else {
		view.CoveredLabel = "Covered: " + strings.Join(r.Symbols, " | ")
		view.PredictionTitle = "🔮 AI Trend Outlook"
		view.Disclaimer = "This brief is AI-generated, for reference only, and is not investment advice."
		view.NoNewsNotice = "No news was collected today."
	}

	for _, card := range r.Cards {
		cv := cardView{Card: card}

		cv.ChangeLabel = fmt.Sprintf("%.2f%%", card.ChangePercent)
		if card.ChangePercent > 0 {
			cv.ChangeLabel = "+" + cv.ChangeLabel
		}
		if card.CurrentPrice != nil {
			cv.PriceLabel = fmt.Sprintf("$%.2f", *card.CurrentPrice)
		}
		if card.PeriodLow != nil && card.PeriodHigh != nil {
			if zh {
				cv.RangeLabel = fmt.Sprintf("8周区间 %.2f - %.2f", *card.PeriodLow, *card.PeriodHigh)
			} else {
				cv.RangeLabel = fmt.Sprintf("8-week range %.2f - %.2f", *card.PeriodLow, *card.PeriodHigh)
			}
		}
		if zh {
			cv.NewsHeading = fmt.Sprintf("相关新闻 (%d 条)", card.NewsCount)
		} else {
			cv.NewsHeading = fmt.Sprintf("Related News (%d)", card.NewsCount)
		}
		cv.ShownLinks = card.Links
		if len(cv.ShownLinks) > report.MaxRenderedLinks {
			cv.ShownLinks = cv.ShownLinks[:report.MaxRenderedLinks]
		}

		view.Cards = append(view.Cards, cv)
	}

	var sb strings.Builder
	if err := reportTemplate.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("publisher: failed to render report: %w", err)
	}
	return sb.String(), nil
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f5f5f5; margin: 0; padding: 20px; }
.container { max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
.header h1 { margin: 0; font-size: 24px; font-weight: 600; }
.header .date { margin-top: 10px; opacity: 0.9; font-size: 14px; }
.header .symbols { margin-top: 10px; opacity: 0.9; font-size: 12px; }
.content { padding: 20px; }
.stock-card { border: 1px solid #e0e0e0; border-radius: 6px; padding: 20px; margin-bottom: 20px; background-color: #fafafa; }
.stock-header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 15px; padding-bottom: 10px; border-bottom: 1px solid #e0e0e0; }
.stock-name { font-size: 18px; font-weight: 600; color: #333; }
.stock-company { font-size: 14px; color: #666; font-weight: normal; }
.stock-price-info { text-align: right; }
.stock-current-price { font-size: 16px; font-weight: 600; color: #333; margin-bottom: 4px; }
.stock-change { font-size: 14px; font-weight: 500; padding: 4px 8px; border-radius: 4px; display: inline-block; }
.stock-change.positive { background-color: #e8f5e9; color: #2e7d32; }
.stock-change.negative { background-color: #ffebee; color: #c62828; }
.stock-change.neutral { background-color: #f5f5f5; color: #616161; }
.stock-range-info { font-size: 11px; color: #666; margin-top: 4px; }
.summary-content { font-size: 14px; line-height: 1.6; color: #555; }
.summary-content h3 { color: #333; font-size: 14px; margin-top: 15px; margin-bottom: 8px; }
.summary-content ul { margin: 0; padding-left: 20px; }
.summary-content li { margin-bottom: 5px; }
.prediction-box { background: linear-gradient(135deg, #f5f7fa 0%, #e8eef5 100%); border-left: 4px solid #667eea; padding: 15px; margin-top: 15px; border-radius: 4px; }
.prediction-title { font-size: 13px; font-weight: 600; color: #667eea; margin: 0 0 10px 0; }
.prediction-content { font-size: 13px; line-height: 1.5; color: #555; }
.trend-badge { display: inline-block; padding: 2px 8px; border-radius: 12px; font-size: 11px; font-weight: 600; margin-left: 8px; }
.trend-bullish { background-color: #e8f5e9; color: #2e7d32; }
.trend-bearish { background-color: #ffebee; color: #c62828; }
.trend-neutral { background-color: #fff3e0; color: #e65100; }
.news-links { margin-top: 15px; padding-top: 10px; border-top: 1px solid #e0e0e0; }
.news-links h4 { font-size: 12px; color: #666; margin: 0 0 8px 0; text-transform: uppercase; }
.news-links a { display: block; font-size: 12px; color: #667eea; text-decoration: none; margin-bottom: 4px; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
.footer { background-color: #f5f5f5; padding: 20px; text-align: center; font-size: 12px; color: #888; }
.no-news { text-align: center; padding: 40px; color: #888; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>{{.Title}}</h1>
    <div class="date">{{.DateLabel}}</div>
    <div class="symbols">{{.CoveredLabel}}</div>
  </div>
  <div class="content">
  {{- if .Cards}}
    {{- range .Cards}}
    <div class="stock-card">
      <div class="stock-header">
        <div class="stock-name">{{.Symbol}}
          {{- if ne .CompanyName .Symbol}} <span class="stock-company">（{{.CompanyName}}）</span>{{end}}
        </div>
        <div class="stock-price-info">
          {{- if .PriceLabel}}<div class="stock-current-price">{{.PriceLabel}}</div>{{end}}
          <div class="stock-change {{.ChangeClass}}">{{.ChangeLabel}}</div>
          {{- if .RangeLabel}}<div class="stock-range-info">{{.RangeLabel}}</div>{{end}}
        </div>
      </div>
      <div class="summary-content">
        {{- range .Summary}}
          {{- if .IsHeading}}<h3>{{inline .Text}}</h3>
          {{- else if .IsList}}<ul>{{range .Items}}<li>{{inline .}}</li>{{end}}</ul>
          {{- else}}<p>{{inline .Text}}</p>
          {{- end}}
        {{- end}}
      </div>
      {{- if .Prediction}}
      <div class="prediction-box">
        <div class="prediction-title">{{$.PredictionTitle}}
          {{- if .TrendBadge}} <span class="trend-badge {{.TrendClass}}">{{.TrendBadge}}</span>{{end}}
        </div>
        <div class="prediction-content">
          {{- range .Prediction}}
            {{- if .IsList}}<ul>{{range .Items}}<li>{{inline .}}</li>{{end}}</ul>
            {{- else}}<p>{{inline .Text}}</p>
            {{- end}}
          {{- end}}
        </div>
      </div>
      {{- end}}
      {{- if .ShownLinks}}
      <div class="news-links">
        <h4>{{.NewsHeading}}</h4>
        {{- range .ShownLinks}}
        <a href="{{.URL}}" target="_blank">{{.Title}}</a>
        {{- end}}
      </div>
      {{- end}}
    </div>
    {{- end}}
  {{- else}}
    <div class="no-news"><p>{{.NoNewsNotice}}</p></div>
  {{- end}}
  </div>
  <div class="footer">
    <p>{{.Disclaimer}}</p>
    <p>{{.GeneratedLabel}}</p>
  </div>
</div>
</body>
</html>
`
