package summarizer

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/ryosukesatoh/stock-digest/internal/llm"
	"github.com/ryosukesatoh/stock-digest/internal/market"
	"github.com/ryosukesatoh/stock-digest/internal/news"
	"github.com/ryosukesatoh/stock-digest/internal/retry"
)

const (
	maxSummaryItems    = 15
	maxPredictionItems = 10

	summaryMaxTokens    = 1000
	predictionMaxTokens = 500
	temperature         = 0.3

	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second

	// defaultPace is the mandatory delay after a successful completion so
	// the next symbol's calls do not accumulate rate pressure.
	defaultPace = 2 * time.Second

	maxErrorMessageLen = 100
)

// Models tried in priority order; when one is unavailable the next is tried
// without consuming the retry budget.
var (
	summaryModels = []string{
		"claude-sonnet-4-20250514",
		"claude-sonnet-4-20250513",
		"claude-3-5-sonnet-20241022",
		"claude-3-5-sonnet-20240620",
	}
	predictionModels = []string{
		"claude-sonnet-4-20250514",
		"claude-3-5-sonnet-20241022",
	}
)

// Result is the narrative for one symbol. Summary is never empty: missing
// news, a missing credential, or an exhausted retry budget all map to a
// canonical localized message, so the report always renders one card per
// symbol.
type Result struct {
	Symbol     string
	Summary    string
	Prediction string
}

// Generator turns a symbol's news set into a localized markdown brief via
// the completion client, with model fallback and retry/backoff.
type Generator struct {
	completer        llm.Completer
	language         string
	models           []string
	predictionModels []string
	maxAttempts      int
	baseDelay        time.Duration
	pace             time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
}

type Option func(*Generator)

// WithSleep replaces the pacing/backoff sleep, used by tests to assert the
// delay schedule without waiting.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// WithModels overrides the summary model priority list.
func WithModels(models ...string) Option {
	return func(g *Generator) {
		g.models = models
	}
}

// WithPredictionModels overrides the prediction model priority list.
func WithPredictionModels(models ...string) Option {
	return func(g *Generator) {
		g.predictionModels = models
	}
}

// WithBaseDelay overrides the retry base delay.
func WithBaseDelay(d time.Duration) Option {
	return func(g *Generator) {
		g.baseDelay = d
	}
}

// WithPace overrides the post-success pacing delay.
func WithPace(d time.Duration) Option {
	return func(g *Generator) {
		g.pace = d
	}
}

func NewGenerator(completer llm.Completer, language string, opts ...Option) *Generator {
	g := &Generator{
		completer:        completer,
		language:         language,
		models:           summaryModels,
		predictionModels: predictionModels,
		maxAttempts:      defaultMaxAttempts,
		baseDelay:        defaultBaseDelay,
		pace:             defaultPace,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Summarize generates the daily brief for one symbol. It is a total
// function: every failure mode returns a formatted Result, never an error.
func (g *Generator) Summarize(ctx context.Context, symbol, companyName string, items []news.Item, date string) Result {
	if companyName == "" {
		companyName = symbol
	}

	if g.completer == nil {
		return g.errorResult(symbol, companyName, g.missingKeyMessage())
	}

	if len(items) == 0 {
		return Result{Symbol: symbol, Summary: g.header(symbol, companyName) + "\n\n" + g.noNewsMessage()}
	}

	prompt := g.buildSummaryPrompt(symbol, companyName, items, date)

	text, model, err := g.complete(ctx, g.models, prompt, summaryMaxTokens)
	if err != nil {
		kind := llm.KindOf(err)
		log.Warn().Str("symbol", symbol).Str("kind", kind.String()).Err(err).Msg("summary generation failed")
		return g.errorResult(symbol, companyName, g.apiFailureMessage(kind, err))
	}
	log.Info().Str("symbol", symbol).Str("model", model).Msg("summary generated")

	// Mandatory pacing before returning protects the next symbol's calls.
	g.doSleep(ctx, g.pace)

	return Result{Symbol: symbol, Summary: g.header(symbol, companyName) + "\n\n" + text}
}

// Predict generates the short trend outlook. Prediction is best-effort by
// contract: any failure yields a short localized notice, never an error.
func (g *Generator) Predict(ctx context.Context, symbol string, items []news.Item, snap market.Snapshot, date string) string {
	if g.completer == nil || len(items) == 0 {
		return ""
	}

	prompt := g.buildPredictionPrompt(symbol, items, snap, date)

	text, model, err := g.complete(ctx, g.predictionModels, prompt, predictionMaxTokens)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("prediction failed")
		if g.language == "zh" {
			return "⚠️ 预测生成失败，请稍后重试。"
		}
		return "⚠️ Prediction unavailable, please try again later."
	}
	log.Info().Str("symbol", symbol).Str("model", model).Msg("prediction generated")

	g.doSleep(ctx, g.pace)
	return text
}

// complete runs one pass of the retry state machine over the model list.
func (g *Generator) complete(ctx context.Context, models []string, prompt string, maxTokens int) (text, model string, err error) {
	policy := retry.Policy{
		Candidates:  models,
		MaxAttempts: g.maxAttempts,
		BaseDelay:   g.baseDelay,
		Classify:    classify,
		Delay:       delayFor,
		Sleep:       g.sleep,
	}

	model, err = policy.Do(ctx, func(ctx context.Context, candidate string) error {
		out, cerr := g.completer.Complete(ctx, candidate, prompt, maxTokens, temperature)
		if cerr != nil {
			log.Warn().Str("model", candidate).Err(cerr).Msg("completion attempt failed")
			return cerr
		}
		text = out
		return nil
	})
	return text, model, err
}

// classify maps completion error kinds to retry actions: an unavailable
// model advances the candidate list for free, a credential failure cannot
// succeed on retry, everything else is worth another attempt.
func classify(err error) retry.Action {
	switch llm.KindOf(err) {
	case llm.KindModelUnavailable:
		return retry.NextCandidate
	case llm.KindUnauthorized:
		return retry.FailFast
	default:
		return retry.RetrySame
	}
}

// delayFor backs off exponentially under rate pressure and waits a flat
// base delay for timeouts and transient errors.
func delayFor(err error, attempt int, base time.Duration) time.Duration {
	if llm.KindOf(err) == llm.KindRateLimited {
		return retry.ExponentialDelay(err, attempt, base)
	}
	return retry.FixedDelay(err, attempt, base)
}

func (g *Generator) doSleep(ctx context.Context, d time.Duration) {
	sleep := g.sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	_ = sleep(ctx, d)
}

func (g *Generator) header(symbol, companyName string) string {
	if g.language == "zh" {
		return fmt.Sprintf("## %s（%s）", symbol, companyName)
	}
	return fmt.Sprintf("## %s (%s)", symbol, companyName)
}

func (g *Generator) noNewsMessage() string {
	if g.language == "zh" {
		return "今日无重大新闻事件。"
	}
	return "No major news events today."
}

func (g *Generator) missingKeyMessage() string {
	if g.language == "zh" {
		return "缺少 Anthropic API Key"
	}
	return "missing Anthropic API key"
}

func (g *Generator) apiFailureMessage(kind llm.ErrorKind, err error) string {
	msg := truncate(err.Error(), maxErrorMessageLen)
	if g.language == "zh" {
		return fmt.Sprintf("API 调用失败: %s: %s", kind, msg)
	}
	return fmt.Sprintf("API call failed: %s: %s", kind, msg)
}

func (g *Generator) errorResult(symbol, companyName, errorMsg string) Result {
	var body string
	if g.language == "zh" {
		body = fmt.Sprintf("⚠️ 摘要生成失败\n\n错误信息：%s\n\n请稍后重试。", errorMsg)
	} else {
		body = fmt.Sprintf("⚠️ Summary generation failed\n\nError: %s\n\nPlease try again later.", errorMsg)
	}
	return Result{Symbol: symbol, Summary: g.header(symbol, companyName) + "\n\n" + body}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
