package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	// PGDSN включает хранилище Postgres; при пустом значении
	// используется локальный файл SQLite.
	PGDSN      string `envconfig:"PG_DSN"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"avito_monitor.db"`

	Avito struct {
		BaseURL      string        `envconfig:"AVITO_BASE_URL" default:"https://www.avito.ru"`
		FetchTimeout time.Duration `envconfig:"AVITO_FETCH_TIMEOUT" default:"30s"`
		UserAgent    string        `envconfig:"AVITO_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
