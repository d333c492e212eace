package summarizer

import (
	"fmt"
	"strings"

	"github.com/ryosukesatoh/stock-digest/internal/market"
	"github.com/ryosukesatoh/stock-digest/internal/news"
)

// newsListText renders a bounded, ordered news list as numbered entries in
// the form "index. title / optional summary / source | published_at".
func (g *Generator) newsListText(items []news.Item, maxItems int) string {
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	var sb strings.Builder
	for i, item := range items {
		published := ""
		if !item.PublishedAt.IsZero() {
			published = item.PublishedAt.UTC().Format("2006-01-02 15:04")
		}
		if g.language == "zh" {
			sb.WriteString(fmt.Sprintf("%d. 标题：%s\n", i+1, item.Title))
			if item.Summary != "" {
				sb.WriteString(fmt.Sprintf("   摘要：%s\n", item.Summary))
			}
			sb.WriteString(fmt.Sprintf("   来源：%s | 时间：%s\n\n", item.Source, published))
		} else {
			sb.WriteString(fmt.Sprintf("%d. Title: %s\n", i+1, item.Title))
			if item.Summary != "" {
				sb.WriteString(fmt.Sprintf("   Summary: %s\n", item.Summary))
			}
			sb.WriteString(fmt.Sprintf("   Source: %s | Time: %s\n\n", item.Source, published))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (g *Generator) buildSummaryPrompt(symbol, companyName string, items []news.Item, date string) string {
	newsText := g.newsListText(items, maxSummaryItems)

	if g.language == "zh" {
		return fmt.Sprintf(`你是一位专业的股票分析师助手。以下是 %s（%s）在 %s 的新闻列表：

%s

请用中文生成一份简洁的每日简报，包含以下部分：
1. **重要事件**（2-4条，每条一句话）
2. **市场情绪**（正面/中性/负面，并简要说明原因）
3. **需要关注**（1-2个风险点或机会点）

要求：
- 简洁客观，不做投资建议
- 如果新闻较少或不重要，直接说明"今日无重大事件"
- 总字数控制在 200 字以内`, symbol, companyName, date, newsText)
	}

	return fmt.Sprintf(`You are a professional stock analyst assistant. Below is the news list for %s (%s) on %s:

%s

Please generate a concise daily brief in English, including:
1. **Key Events** (2-4 items, one sentence each)
2. **Market Sentiment** (Positive/Neutral/Negative, with brief reason)
3. **Watch List** (1-2 risk points or opportunities)

Requirements:
- Concise and objective, no investment advice
- If news is limited or insignificant, state "No major events today"
- Keep under 200 words`, symbol, companyName, date, newsText)
}

func (g *Generator) buildPredictionPrompt(symbol string, items []news.Item, snap market.Snapshot, date string) string {
	newsText := g.newsListText(items, maxPredictionItems)

	priceContext := ""
	if snap.CurrentPrice != nil {
		if g.language == "zh" {
			priceContext = fmt.Sprintf("当前价格：%.2f，今日涨跌幅：%+.2f%%\n\n", *snap.CurrentPrice, snap.ChangePercent)
		} else {
			priceContext = fmt.Sprintf("Current price: %.2f, today's change: %+.2f%%\n\n", *snap.CurrentPrice, snap.ChangePercent)
		}
	}

	if g.language == "zh" {
		return fmt.Sprintf(`基于以下 %s 在 %s 的新闻，给出一段简短的短期走势判断。

%s%s

要求：
- 第一行明确给出判断：看涨 📈 / 看跌 📉 / 中立 ➡️
- 再用 1-2 句话说明理由
- 不构成投资建议，总字数 80 字以内`, symbol, date, priceContext, newsText)
	}

	return fmt.Sprintf(`Based on the news below for %s on %s, give a short near-term trend call.

%s%s

Requirements:
- Start with a clear call: Bullish 📈 / Bearish 📉 / Neutral ➡️
- Follow with 1-2 sentences of reasoning
- Not investment advice, keep under 60 words`, symbol, date, priceContext, newsText)
}
