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
	Chain  ChainConfig  `mapstructure:"chain"`
	Game   GameConfig   `mapstructure:"game"`
	Sweep  SweepConfig  `mapstructure:"sweep"`
	Stream StreamConfig `mapstructure:"stream"`
	Cron   CronConfig   `mapstructure:"cron"`
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

// ChainConfig describes the JSON-RPC side of the house: the ordered
// endpoint candidates, probe/call budgets and the custodial credential.
// The private key is intentionally env-only (COINFLIP_CHAIN_CUSTODIAN_KEY);
// it never belongs in the YAML file.
type ChainConfig struct {
	Endpoints    []string      `mapstructure:"endpoints"`
	ChainID      int64         `mapstructure:"chain_id"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
	MaxFailures  int           `mapstructure:"max_failures"`
	CustodianKey string        `mapstructure:"custodian_key"`
}

type GameConfig struct {
	Multiplier     float64 `mapstructure:"multiplier"`
	FeePercent     float64 `mapstructure:"fee_percent"`
	HistoryLimit   int     `mapstructure:"history_limit"`
	MaxHistoryPage int     `mapstructure:"max_history_page"`
}

type SweepConfig struct {
	Schedule    string        `mapstructure:"schedule"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BatchSize   int           `mapstructure:"batch_size"`
}

type StreamConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	QueueSize int  `mapstructure:"queue_size"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProbeSpec string `mapstructure:"probe_spec"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COINFLIP")
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
	v.SetDefault("chain.endpoints", []string{
		"https://bsc-dataseed.binance.org",
		"https://bsc-dataseed1.defibit.io",
		"https://bsc-dataseed1.ninicoin.io",
	})
	v.SetDefault("chain.chain_id", 56)
	v.SetDefault("chain.probe_timeout", "3s")
	v.SetDefault("chain.call_timeout", "30s")
	v.SetDefault("chain.max_failures", 3)
	v.SetDefault("chain.custodian_key", "")
	v.SetDefault("game.multiplier", 2.0)
	v.SetDefault("game.fee_percent", 0.0)
	v.SetDefault("game.history_limit", 10)
	v.SetDefault("game.max_history_page", 100)
	v.SetDefault("sweep.schedule", "@every 1m")
	v.SetDefault("sweep.grace_period", "2m")
	v.SetDefault("sweep.max_attempts", 5)
	v.SetDefault("sweep.batch_size", 20)
	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.queue_size", 16)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.probe_spec", "@every 30s")

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
