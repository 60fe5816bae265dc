package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`
	Feed   FeedConfig   `mapstructure:"feed"`

	Ingest         IngestConfig         `mapstructure:"ingest"`
	Scoring        ScoringConfig        `mapstructure:"scoring"`
	Alerts         AlertsConfig         `mapstructure:"alerts"`
	Anomaly        AnomalyConfig        `mapstructure:"anomaly"`
	MarketSync     MarketSyncConfig     `mapstructure:"market_sync"`
	SettlementSync SettlementSyncConfig `mapstructure:"settlement_sync"`
	Realtime       RealtimeConfig       `mapstructure:"realtime"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	MarketSync     string `mapstructure:"market_sync"`
	SettlementSync string `mapstructure:"settlement_sync"`
	AnomalyScan    string `mapstructure:"anomaly_scan"`
}

type FeedConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type IngestConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	Interval              time.Duration `mapstructure:"interval"`
	BatchSize             int           `mapstructure:"batch_size"`
	MaxRunDuration        time.Duration `mapstructure:"max_run_duration"`
	RetryMax              int           `mapstructure:"retry_max"`
	RetryBaseDelay        time.Duration `mapstructure:"retry_base_delay"`
	WhaleThresholdCents   int64         `mapstructure:"whale_threshold_cents"`
	WhaleBandLowCents     int           `mapstructure:"whale_band_low_cents"`
	WhaleBandHighCents    int           `mapstructure:"whale_band_high_cents"`
	ExcludedCategories    []string      `mapstructure:"excluded_categories"`
	PreMoveWindowMinHours int           `mapstructure:"pre_move_window_min_hours"`
	PreMoveWindowMaxHours int           `mapstructure:"pre_move_window_max_hours"`
}

type ScoringConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Interval            time.Duration `mapstructure:"interval"`
	ActiveWindow        time.Duration `mapstructure:"active_window"`
	BatchSize           int           `mapstructure:"batch_size"`
	SuspicionThreshold  int           `mapstructure:"suspicion_threshold"`
	HighAlertThreshold  int           `mapstructure:"high_alert_threshold"`
	MinSettledForWinDim int64         `mapstructure:"min_settled_for_win_dim"`
}

type AlertsConfig struct {
	Enabled                  bool          `mapstructure:"enabled"`
	LargeTradeThresholdCents int64         `mapstructure:"large_trade_threshold_cents"`
	PublishTimeout           time.Duration `mapstructure:"publish_timeout"`
}

type AnomalyConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ThresholdBps int           `mapstructure:"threshold_bps"`
	Lookback     time.Duration `mapstructure:"lookback"`
}

type MarketSyncConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	PageLimit int  `mapstructure:"page_limit"`
	MaxPages  int  `mapstructure:"max_pages"`
	Resume    bool `mapstructure:"resume"`
}

type SettlementSyncConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	BatchSize int  `mapstructure:"batch_size"`
}

type RealtimeConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	SendBuffer int  `mapstructure:"send_buffer"`
	MaxClients int  `mapstructure:"max_clients"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.market_sync", "@every 10m")
	v.SetDefault("cron.settlement_sync", "@every 30m")
	v.SetDefault("cron.anomaly_scan", "@every 5m")
	v.SetDefault("feed.base_url", "https://data-api.polymarket.com")
	v.SetDefault("feed.timeout", "15s")

	v.SetDefault("ingest.enabled", true)
	v.SetDefault("ingest.interval", "30s")
	v.SetDefault("ingest.batch_size", 500)
	v.SetDefault("ingest.max_run_duration", "2m")
	v.SetDefault("ingest.retry_max", 3)
	v.SetDefault("ingest.retry_base_delay", "500ms")
	v.SetDefault("ingest.whale_threshold_cents", 1_000_000)
	v.SetDefault("ingest.whale_band_low_cents", 5)
	v.SetDefault("ingest.whale_band_high_cents", 95)
	v.SetDefault("ingest.excluded_categories", []string{"Sports", "Crypto"})
	v.SetDefault("ingest.pre_move_window_min_hours", 24)
	v.SetDefault("ingest.pre_move_window_max_hours", 72)

	v.SetDefault("scoring.enabled", true)
	v.SetDefault("scoring.interval", "15m")
	v.SetDefault("scoring.active_window", "24h")
	v.SetDefault("scoring.batch_size", 200)
	v.SetDefault("scoring.suspicion_threshold", 50)
	v.SetDefault("scoring.high_alert_threshold", 80)
	v.SetDefault("scoring.min_settled_for_win_dim", 5)

	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.large_trade_threshold_cents", 10_000)
	v.SetDefault("alerts.publish_timeout", "2s")

	v.SetDefault("anomaly.enabled", true)
	v.SetDefault("anomaly.threshold_bps", 2000)
	v.SetDefault("anomaly.lookback", "24h")

	v.SetDefault("market_sync.enabled", true)
	v.SetDefault("market_sync.page_limit", 200)
	v.SetDefault("market_sync.max_pages", 5)
	v.SetDefault("market_sync.resume", true)

	v.SetDefault("settlement_sync.enabled", true)
	v.SetDefault("settlement_sync.batch_size", 200)

	v.SetDefault("realtime.enabled", true)
	v.SetDefault("realtime.send_buffer", 32)
	v.SetDefault("realtime.max_clients", 256)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
