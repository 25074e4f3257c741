package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PredictiBoot/internal/analyst"
	"PredictiBoot/internal/api"
	"PredictiBoot/internal/cache"
	"PredictiBoot/internal/collector"
	"PredictiBoot/internal/config"
	"PredictiBoot/internal/events"
	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/logger"
	"PredictiBoot/internal/metrics"
	"PredictiBoot/internal/model"
	"PredictiBoot/internal/notifier"
	"PredictiBoot/internal/ratelimit"
	"PredictiBoot/internal/recorder"
	"PredictiBoot/internal/scheduler"
	"PredictiBoot/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("PredictiBoot starting", logger.String("config", cfgPath))

	if err := run(cfg, log); err != nil {
		log.Error("fatal", logger.Error(err))
		os.Exit(1)
	}
	log.Info("PredictiBoot stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	metrics.Register()

	clock, err := cfg.MarketClock()
	if err != nil {
		return err
	}

	// Data sources
	var (
		domestic collector.DomesticSource
		listings collector.ListingSource
	)
	switch cfg.DataSource.Mode {
	case "mock":
		mock := &collector.MockSource{
			Location: clock.Location,
			Names:    map[string]string{"005930": "삼성전자", "000660": "SK하이닉스"},
			Listing: []model.StockListing{
				{Code: "005930", Name: "삼성전자", Market: "KOSPI"},
				{Code: "000660", Name: "SK하이닉스", Market: "KOSPI"},
			},
		}
		domestic, listings = mock, mock
	default:
		domestic = collector.NewNaverFetcher(cfg.DataSource.NaverURL, cfg.DataSource.UserAgent,
			cfg.DataSource.PageDelay, cfg.DataSource.Timeout, cfg.Proxy)
		listings = collector.NewKRXListing(cfg.DataSource.KRXURL, cfg.DataSource.UserAgent,
			cfg.DataSource.Timeout, cfg.Proxy)
	}
	log.Info("data source", logger.String("name", domestic.Name()))
	international := collector.NewYahooFetcher(cfg.DataSource.YahooURL, cfg.DataSource.Timeout, cfg.Proxy)

	// Cache
	var store cache.Service
	if cfg.Cache.Backend == "redis" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			Prefix:   cfg.Cache.Prefix,
		})
		if err != nil {
			log.Warn("redis unavailable, using in-memory cache", logger.Error(err))
			store = cache.NewMemoryCache()
		} else {
			store = rc
		}
	} else {
		store = cache.NewMemoryCache()
	}
	defer store.Close()

	// Recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", logger.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Events
	var pub events.Publisher = events.NewNoopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout)
		if err != nil {
			log.Warn("init kafka publisher failed, events disabled", logger.Error(err))
		} else {
			pub = kp
			log.Info("publishing prediction events", logger.Strings("brokers", cfg.Kafka.Brokers), logger.String("topic", cfg.Kafka.Topic))
		}
	}
	defer pub.Close()

	svc := service.New(service.Deps{
		Source:        domestic,
		Listings:      listings,
		International: international,
		Analyst: analyst.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model,
			cfg.OpenAI.Temperature, cfg.OpenAI.Timeout, cfg.Proxy),
		Cache:     store,
		Recorder:  rec,
		Publisher: pub,
		Clock:     clock,
		Options:   cfg.Forecast,
		TTLs: service.TTLs{
			Listing: cfg.Cache.ListingTTL,
			Name:    cfg.Cache.NameTTL,
			News:    cfg.Cache.NewsTTL,
		},
		Tracked: cfg.Schedule.Watchlist,
		Logger:  log,
	})

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// HTTP API
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
	}
	server := api.NewServer(api.NewStockHandler(log, svc, limiter), log,
		api.WithHost(cfg.Server.Host),
		api.WithPort(cfg.Server.Port),
		api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		api.WithCORS(cfg.Server.CORS),
	)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	// Telegram + scheduler
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.Proxy, log)
	tn.AllowedChats = cfg.Telegram.AllowedChats
	method, err := forecast.ParseMethod(cfg.Schedule.Method)
	if err != nil {
		return err
	}
	sched := scheduler.NewScheduler(ctx, svc, tn, rec, scheduler.Settings{
		Watchlist: cfg.Schedule.Watchlist,
		Method:    method,
		Years:     cfg.Schedule.Years,
		Location:  clock.Location,
	}, log)
	if tn.Enabled() {
		if err := sched.Register(cfg.Schedule.Cron); err != nil {
			return fmt.Errorf("register cron tasks: %w", err)
		}
		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")

		if os.Getenv("RUN_ON_START") == "true" {
			log.Info("RUN_ON_START enabled, running watchlist forecast now")
			go sched.RunNow()
		}
	} else {
		log.Info("telegram not configured, scheduled delivery disabled")
	}

	log.Info("PredictiBoot is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	return server.Stop(context.Background())
}
