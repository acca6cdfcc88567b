package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress    string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn     string        `mapstructure:"POSTGRES_CONN"`
	MigrationURL     string        `mapstructure:"MIGRATION_URL"`
	MarketplaceURL   string        `mapstructure:"MARKETPLACE_URL"`
	MarketplaceWSURL string        `mapstructure:"MARKETPLACE_WS_URL"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	WatchInterval    time.Duration `mapstructure:"WATCH_INTERVAL"`
	LogFile          string        `mapstructure:"LOG_FILE"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	SocketMaxRetries int           `mapstructure:"SOCKET_MAX_RETRIES"`
}

var keys = []string{
	"SERVER_ADDRESS", "POSTGRES_CONN", "MIGRATION_URL", "MARKETPLACE_URL",
	"MARKETPLACE_WS_URL", "REQUEST_TIMEOUT", "WATCH_INTERVAL", "LOG_FILE",
	"LOG_LEVEL", "SOCKET_MAX_RETRIES",
}

// LoadConfig загружает конфигурацию из файла app.env в каталоге path.
// Переменные окружения имеют приоритет над файлом; файла может не быть.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("MIGRATION_URL", "file://migrations")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("WATCH_INTERVAL", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SOCKET_MAX_RETRIES", 10)

	v.AutomaticEnv()
	for _, key := range keys {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	err = cfg.validate()
	return
}

func (c Config) validate() error {
	switch {
	case c.PostgresConn == "":
		return errors.New("POSTGRES_CONN is required")
	case c.MarketplaceURL == "":
		return errors.New("MARKETPLACE_URL is required")
	case c.MarketplaceWSURL == "":
		return errors.New("MARKETPLACE_WS_URL is required")
	case c.RequestTimeout <= 0:
		return errors.New("REQUEST_TIMEOUT must be positive")
	case c.WatchInterval <= 0:
		return errors.New("WATCH_INTERVAL must be positive")
	case c.SocketMaxRetries < 1:
		return errors.New("SOCKET_MAX_RETRIES must be at least 1")
	}
	return nil
}
