package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"github.com/ryosukesatoh/stock-digest/internal/config"
	"github.com/ryosukesatoh/stock-digest/internal/llm"
	"github.com/ryosukesatoh/stock-digest/internal/market"
	"github.com/ryosukesatoh/stock-digest/internal/news"
	"github.com/ryosukesatoh/stock-digest/internal/publisher"
	"github.com/ryosukesatoh/stock-digest/internal/runner"
	"github.com/ryosukesatoh/stock-digest/internal/summarizer"
)

func main() {
	configPath := flag.String("config", "", "optional path to a YAML config file")
	testMode := flag.Bool("test", false, "process only the first configured symbol and prefix the subject")
	testSymbol := flag.String("symbol", "", "symbol override for test mode")
	cronMode := flag.Bool("cron", false, "stay resident and run daily at the configured digest hour")
	useStdout := flag.Bool("stdout", false, "print the report instead of emailing it")
	flag.Parse()

	log.DefaultLogger = log.Logger{
		Level:      log.InfoLevel,
		TimeFormat: "15:04:05",
		Writer:     &log.ConsoleWriter{ColorOutput: true},
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if *testMode && *testSymbol != "" {
		cfg.Symbols = []string{strings.ToUpper(strings.TrimSpace(*testSymbol))}
	}

	// Build the pipeline: sources, snapshot provider, generator, delivery.
	aggregator := news.NewAggregator(
		cfg.LookbackDays,
		news.NewFinnhubSource(cfg.Finnhub.APIKey),
		news.NewYahooSource(),
	)
	markets := market.NewYahooProvider()

	var completer llm.Completer
	if cfg.Anthropic.APIKey != "" {
		completer = llm.NewAnthropicCompleter(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL)
	}
	generator := summarizer.NewGenerator(completer, cfg.Language)

	var pubs []publisher.Publisher
	if *useStdout {
		pubs = append(pubs, publisher.NewStdoutPublisher())
	} else {
		pubs = append(pubs, publisher.NewEmailPublisher(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.Sender,
			cfg.Email.Password,
			cfg.Email.Recipients,
		))
	}

	r := runner.New(cfg, aggregator, markets, generator, pubs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !*cronMode {
		if !runOnce(ctx, r, *testMode) {
			os.Exit(1)
		}
		return
	}

	// Resident mode: fire once a day at the configured UTC hour.
	c := cron.New(cron.WithLocation(time.UTC))
	spec := fmt.Sprintf("0 %d * * *", cfg.DigestHourUTC)
	if _, err := c.AddFunc(spec, func() {
		runOnce(ctx, r, *testMode)
	}); err != nil {
		log.Fatal().Err(err).Str("spec", spec).Msg("failed to schedule digest")
	}
	c.Start()
	log.Info().Int("hour_utc", cfg.DigestHourUTC).Msg("digest scheduled")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	c.Stop()
}

func runOnce(ctx context.Context, r *runner.Runner, testMode bool) bool {
	result, err := r.Run(ctx, testMode)
	if err != nil {
		log.Error().Err(err).Msg("digest run failed")
		return false
	}
	log.Info().
		Strs("symbols", result.Symbols).
		Int("total_news", result.TotalNews).
		Str("date", result.TargetDate).
		Msg("digest delivered")
	return true
}
