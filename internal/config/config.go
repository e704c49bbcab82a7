package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Uploads    UploadsConfig    `mapstructure:"uploads"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimitRPM   int           `mapstructure:"rate_limit_rpm"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Repository.Type: "postgres" или "inmemory"
type RepositoryConfig struct {
	Type string `mapstructure:"type"`
}

type UploadsConfig struct {
	Dir         string        `mapstructure:"dir"`
	CopyTimeout time.Duration `mapstructure:"copy_timeout"`
}

type AuthConfig struct {
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	ThrottleWindow  time.Duration `mapstructure:"throttle_window"`
	ThrottleMax     int           `mapstructure:"throttle_max"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// Load читает config.yml и переменные окружения с префиксом WP_
// (WP_DATABASE_URL перекрывает database.url и т.д.).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit_rpm", 100)
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("repository.type", "inmemory")
	v.SetDefault("uploads.dir", "uploads/tasks")
	v.SetDefault("uploads.copy_timeout", 30*time.Second)
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.throttle_window", 3*time.Minute)
	v.SetDefault("auth.throttle_max", 5)
	v.SetDefault("auth.janitor_interval", 10*time.Minute)

	if err := v.ReadInConfig(); err != nil {
		// конфиг-файл необязателен, окружения и дефолтов достаточно
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("чтение config.yml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
