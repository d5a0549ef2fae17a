package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	GeoIP      GeoIPConfig      `mapstructure:"geoip"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Relational SQLiteConfig `mapstructure:"relational"`
	Edge       SQLiteConfig `mapstructure:"edge"`
}

type SQLiteConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type DedupConfig struct {
	Window time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	RedirectPerMinute int `mapstructure:"redirect_per_minute"`
}

type GeoIPConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type ReconcilerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
