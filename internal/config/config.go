package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"PredictiBoot/internal/calendar"
	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8000" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log    logger.Config `yaml:"log"`
	Market struct {
		Timezone  string `yaml:"timezone" default:"Asia/Seoul" validate:"required"`
		CloseTime string `yaml:"close_time" default:"16:00" validate:"required"`
	} `yaml:"market"`
	Forecast   forecast.Options `yaml:"forecast"`
	DataSource struct {
		Mode      string        `yaml:"mode" default:"naver" validate:"oneof=naver mock"`
		NaverURL  string        `yaml:"naver_url" default:"https://finance.naver.com" validate:"url"`
		KRXURL    string        `yaml:"krx_url" default:"https://kind.krx.co.kr" validate:"url"`
		YahooURL  string        `yaml:"yahoo_url" default:"https://query1.finance.yahoo.com" validate:"url"`
		UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"`
		PageDelay time.Duration `yaml:"page_delay" default:"100ms"`
		Timeout   time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"data_source"`
	Cache struct {
		Backend    string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		Addr       string        `yaml:"addr"`
		Password   string        `yaml:"password"`
		DB         int           `yaml:"db"`
		Prefix     string        `yaml:"prefix" default:"predictiboot"`
		ListingTTL time.Duration `yaml:"listing_ttl" default:"24h"`
		NameTTL    time.Duration `yaml:"name_ttl" default:"24h"`
		NewsTTL    time.Duration `yaml:"news_ttl" default:"10m"`
	} `yaml:"cache"`
	RateLimit struct {
		Enabled         bool    `yaml:"enabled" default:"true"`
		Capacity        int     `yaml:"capacity" default:"5" validate:"gte=1"`
		RefillPerSecond float64 `yaml:"refill_per_second" default:"0.1" validate:"gt=0"`
	} `yaml:"rate_limit"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/predictiboot.db"`
	} `yaml:"database"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"predictiboot.predictions"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
	} `yaml:"kafka"`
	OpenAI struct {
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url" default:"https://api.openai.com/v1" validate:"url"`
		Model       string        `yaml:"model" default:"gpt-3.5-turbo"`
		Temperature float64       `yaml:"temperature" default:"0.5" validate:"gte=0,lte=2"`
		Timeout     time.Duration `yaml:"timeout" default:"60s"`
	} `yaml:"openai"`
	Telegram struct {
		BotToken     string   `yaml:"bot_token"`
		ChatID       string   `yaml:"chat_id"`
		AllowedChats []string `yaml:"allowed_chats"`
		APIBase      string   `yaml:"api_base" default:"https://api.telegram.org" validate:"url"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron      string   `yaml:"cron" default:"0 10 16 * * 1-5"`
		Watchlist []string `yaml:"watchlist"`
		Method    string   `yaml:"method" default:"ensemble" validate:"oneof=arima lstm ensemble"`
		Years     int      `yaml:"years" default:"1" validate:"oneof=1 2 3"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load applies defaults, then the YAML file at path (a missing file is fine),
// then environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Backend = "redis"
		c.Cache.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("MARKET_TIMEZONE"); v != "" {
		c.Market.Timezone = v
	}
	if v := os.Getenv("MARKET_CLOSE"); v != "" {
		c.Market.CloseTime = v
	}
	if v := os.Getenv("DATA_SOURCE_MODE"); v != "" {
		c.DataSource.Mode = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks field constraints and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.MarketClock(); err != nil {
		return fmt.Errorf("market: %w", err)
	}
	if c.Cache.Backend == "redis" && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required for the redis backend")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	if len(c.Schedule.Watchlist) > 0 {
		if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}
	return nil
}

// MarketClock builds the market clock from the market section.
func (c *Config) MarketClock() (calendar.MarketClock, error) {
	return calendar.NewMarketClock(c.Market.Timezone, c.Market.CloseTime)
}
