package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"SectorPulse/internal/collector"
	"SectorPulse/internal/config"
	"SectorPulse/internal/indicator"
	"SectorPulse/internal/logger"
	"SectorPulse/internal/metrics"
	"SectorPulse/internal/notifier"
	"SectorPulse/internal/pipeline"
	"SectorPulse/internal/publisher"
	"SectorPulse/internal/recorder"
	"SectorPulse/internal/snapshot"
	"SectorPulse/internal/strategy"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	runner   *pipeline.Runner
	recorder recorder.Recorder
	notifier *notifier.TelegramNotifier
	metrics  *metrics.Metrics
}

type buildOptions struct {
	// dryRun skips storage, publishing and notifications.
	dryRun bool
}

// loadConfig loads and validates config. Any error here is fatal.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildApp(ctx context.Context, opts buildOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	var fetcher collector.Fetcher
	if useMock {
		fetcher = &collector.MockFetcher{Price: 1000}
	} else {
		fetcher = collector.NewYahooFetcher(collector.YahooOptions{
			BaseURL:       cfg.DataSource.BaseURL,
			TickerSuffix:  cfg.DataSource.TickerSuffix,
			ProxyURL:      cfg.Proxy,
			RatePerSecond: cfg.DataSource.RatePerSecond,
			MaxRetries:    cfg.FetchRetries(),
			Logger:        log.With().Str("component", "yahoo").Logger(),
		})
	}
	log.Info().Str("source", fetcher.Name()).Int("instruments", len(cfg.Universe)).Msg("data source ready")

	a := &app{cfg: cfg, log: log, metrics: metrics.New(), recorder: recorder.NewNoopRecorder()}
	var pub pipeline.Publisher
	var sender pipeline.Notifier
	if !opts.dryRun {
		a.recorder = buildRecorder(ctx, cfg, log)
		if cfg.PublishingEnabled() {
			pub = publisher.NewWordPress(cfg.WordPress.URL, cfg.WordPress.User, cfg.WordPress.Password,
				cfg.WordPress.PageID, log.With().Str("component", "wordpress").Logger())
		}
		if cfg.TelegramEnabled() {
			a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy,
				log.With().Str("component", "telegram").Logger())
			sender = a.notifier
		}
	}

	a.runner = pipeline.NewRunner(pipeline.Options{
		Universe:  cfg.Universe,
		Collector: collector.NewCollector(fetcher, cfg.Analysis.HistoryDays, cfg.DataSource.MaxWorkers, log),
		Assembler: snapshot.NewAssembler(snapshot.Options{
			Universe:   cfg.Universe,
			Engine:     indicator.NewEngine(cfg.IndicatorParams()),
			Classifier: strategy.NewClassifier(cfg.ClassifierThresholds()),
			Ranker:     strategy.NewRanker(cfg.RankingWeights()),
			TopN:       cfg.Ranking.TopN,
			StaleAfter: cfg.StaleAfter(),
			Workers:    cfg.Analysis.Workers,
			Logger:     log,
		}),
		Recorder:  a.recorder,
		Publisher: pub,
		Notifier:  sender,
		Metrics:   a.metrics,
		ChartDays: cfg.WordPress.ChartDays,
		Logger:    log,
	})
	return a, nil
}

// buildRecorder opens every configured store. A store that fails to open is
// logged and skipped.
func buildRecorder(ctx context.Context, cfg *config.Config, log zerolog.Logger) recorder.Recorder {
	var recs recorder.Multi
	if path := cfg.Database.SQLitePath; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Warn().Err(err).Msg("create sqlite directory")
		}
		sr, err := recorder.NewSQLiteRecorder(path, log.With().Str("component", "sqlite").Logger())
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, skipping")
		} else {
			recs = append(recs, sr)
		}
	}
	if cfg.Redis.Addr != "" {
		rr, err := recorder.NewRedisRecorder(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key)
		if err != nil {
			log.Warn().Err(err).Msg("init redis recorder failed, skipping")
		} else {
			recs = append(recs, rr)
		}
	}
	if len(recs) == 0 {
		return recorder.NewNoopRecorder()
	}
	return recs
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.log.Error().Err(err).Msg("close recorder")
	}
}
