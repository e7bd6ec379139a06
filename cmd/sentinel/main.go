package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"TaxSentinel/internal/collector"
	"TaxSentinel/internal/config"
	"TaxSentinel/internal/monitor"
	"TaxSentinel/internal/notifier"
	"TaxSentinel/internal/plot"
	"TaxSentinel/internal/recorder"
	"TaxSentinel/internal/scheduler"
)

func main() {
	logger := newLogger()
	logger.Info("TaxSentinel starting")

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], logger)
	cancel()
	if err != nil {
		logger.Error("TaxSentinel stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// run wires the components and blocks until ctx is done, or until the single
// check finishes in -once mode. Deferred cleanup runs before it returns.
func run(ctx context.Context, args []string, logger *zap.Logger) error {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	fs := flag.NewFlagSet("sentinel", flag.ContinueOnError)
	cfgPath := fs.String("config", defaultPath, "path to the YAML config")
	once := fs.Bool("once", false, "run a single check and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	col := collector.NewCollector(newSampleSource(ctx, cfg, logger), newChainSource(cfg), cfg.Thresholds.WindowDays, logger)
	col.Concurrency = *cfg.DataSource.Concurrency
	col.Retries = *cfg.DataSource.Retries

	sink, history := newSink(cfg, logger)
	defer sink.Close()

	var renderer plot.Renderer
	if cfg.Output.Plots {
		renderer = plot.NewSVGRenderer()
	}

	var tn *notifier.TelegramNotifier
	var alerts notifier.Notifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		alerts = tn
	} else {
		logger.Warn("telegram not configured, alerts are only logged")
	}

	mon := monitor.New(monitor.Options{
		Settings:      cfg.Settings(),
		Tokens:        cfg.TokenSpecs(),
		Wallets:       cfg.WalletTargets(),
		Distributions: cfg.DistributionSpecs(),
		PlotDir:       cfg.Output.PlotDir,
		NotifyRetries: 3,
	}, col, sink, renderer, alerts, logger)

	if *once {
		rep, err := mon.Run(ctx)
		if rep == nil {
			return fmt.Errorf("check failed: %w", err)
		}
		if err != nil {
			logger.Error("check finished with errors", zap.Error(err))
		}
		logger.Info("check finished", zap.Stringer("overall_status", rep.OverallStatus))
		return nil
	}

	var hist scheduler.History
	if history != nil {
		hist = history
	}
	sched := scheduler.NewScheduler(ctx, mon, alerts, hist, logger)
	if err := sched.Register(cfg.Schedule.CheckCron, cfg.Schedule.SummaryCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, executing check now")
		go func() {
			if _, err := sched.RunNow(); err != nil {
				logger.Error("startup check failed", zap.Error(err))
			}
		}()
	}

	logger.Info("TaxSentinel is running, press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")
	return nil
}

func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("LOG_DEBUG") == "true" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func newSampleSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) collector.SampleSource {
	var src collector.SampleSource
	if cfg.DataSource.Mock {
		src = &collector.MockSampleSource{Price: 1}
	} else {
		src = collector.NewCoinGeckoSource(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.DataSource.VsCurrency, cfg.Proxy)
	}
	logger.Info("data source", zap.String("name", src.Name()))

	var cache collector.SampleCache = collector.NewMemoryCache()
	if cfg.Cache.RedisAddr != "" {
		rc, err := collector.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logger.Warn("redis cache unavailable, using in-memory cache", zap.Error(err))
		} else {
			cache = rc
		}
	}
	return collector.NewCachedSampleSource(src, cache, cfg.Cache.TTL, logger)
}

func newChainSource(cfg *config.Config) collector.ChainSource {
	if cfg.DataSource.Mock {
		return &collector.MockChainSource{}
	}
	return collector.NewExplorerSource(cfg.Chain.BaseURL, cfg.Chain.APIKey, cfg.Proxy)
}

// newSink always writes JSON files and adds SQLite history when it can be opened.
func newSink(cfg *config.Config, logger *zap.Logger) (recorder.Sink, *recorder.SQLiteRecorder) {
	sinks := recorder.MultiSink{recorder.NewFileSink(cfg.Output.ReportDir, logger)}
	if cfg.Database.SQLitePath == "" {
		return sinks, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
		logger.Warn("create database dir failed", zap.Error(err))
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn("init sqlite recorder failed, history disabled", zap.Error(err))
		return sinks, nil
	}
	return append(sinks, sr), sr
}
