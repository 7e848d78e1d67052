package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	AdminPort int    `mapstructure:"admin_port"`
	AdminKey  string `mapstructure:"admin_key"`
}

type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	AdminID int64  `mapstructure:"admin_id"`
}

type LookupConfig struct {
	PrimaryURL   string        `mapstructure:"primary_url"`
	SecondaryURL string        `mapstructure:"secondary_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	StripFields  []string      `mapstructure:"strip_fields"`
	MinDigits    int           `mapstructure:"min_digits"`
	MaxDigits    int           `mapstructure:"max_digits"`
}

type QuotaConfig struct {
	DailyLimit    int           `mapstructure:"daily_limit"`
	Window        time.Duration `mapstructure:"window"`
	ReferralBonus int           `mapstructure:"referral_bonus"`
	HistoryLimit  int           `mapstructure:"history_limit"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend"` // memory | redis
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	HistoryPath      string        `mapstructure:"history_path"`
	SnapshotPath     string        `mapstructure:"snapshot_path"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No file is fine, environment variables and defaults apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram.token is required (TELEGRAM_TOKEN)")
	}
	if cfg.Lookup.PrimaryURL == "" {
		return nil, errors.New("lookup.primary_url is required (LOOKUP_PRIMARY_URL)")
	}

	return &cfg, nil
}

// Every key gets a default, even an empty one: AutomaticEnv only resolves
// keys viper already knows about.
func setDefaults() {
	viper.SetDefault("server.admin_port", 8080)
	viper.SetDefault("server.admin_key", "")
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.admin_id", 0)
	viper.SetDefault("lookup.primary_url", "")
	viper.SetDefault("lookup.secondary_url", "")
	viper.SetDefault("lookup.strip_fields", []string{})
	viper.SetDefault("lookup.timeout", 10*time.Second)
	viper.SetDefault("lookup.cache_ttl", 5*time.Minute)
	viper.SetDefault("lookup.min_digits", 7)
	viper.SetDefault("lookup.max_digits", 15)
	viper.SetDefault("quota.daily_limit", 5)
	viper.SetDefault("quota.window", 24*time.Hour)
	viper.SetDefault("quota.referral_bonus", 2)
	viper.SetDefault("quota.history_limit", 50)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("storage.history_path", "data/history.db")
	viper.SetDefault("storage.snapshot_path", "data/ledger.json")
	viper.SetDefault("storage.snapshot_interval", time.Minute)
}
