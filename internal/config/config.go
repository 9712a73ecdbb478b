package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	// Backend selects where session rows live: "sqlite" (default) or "redis".
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
	BlockTime   time.Duration `mapstructure:"block_time"`
}

type AuditConfig struct {
	// Retention bounds how long audit events are kept; the cleanup endpoint
	// prunes anything older. Zero keeps events forever.
	Retention time.Duration `mapstructure:"retention"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads configuration from the given file path (e.g. "config.yaml").
// A missing config file is not an error: defaults plus ADMINDECK_* environment
// overrides are enough to run.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.path", "./admindeck.db")
	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("session.ttl", 168*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rate_limit.max_attempts", 5)
	v.SetDefault("rate_limit.window", 15*time.Minute)
	v.SetDefault("rate_limit.block_time", 15*time.Minute)
	v.SetDefault("audit.retention", 90*24*time.Hour)
	v.SetDefault("log.file", "./admindeck.log")

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. ADMINDECK_SERVER_ADDRESS=:9000
	v.SetEnvPrefix("ADMINDECK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Session.TTL <= 0 {
		return nil, fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Audit.Retention < 0 {
		return nil, fmt.Errorf("audit.retention must not be negative, got %s", c.Audit.Retention)
	}

	return &c, nil
}
