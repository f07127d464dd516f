package main

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"avito-monitor-bot/internal/adapters/avito"
	"avito-monitor-bot/internal/adapters/bot"
	"avito-monitor-bot/internal/adapters/repo"
	"avito-monitor-bot/internal/domain"
	"avito-monitor-bot/internal/infra/config"
	"avito-monitor-bot/internal/infra/db"
	"avito-monitor-bot/internal/infra/http"
	"avito-monitor-bot/internal/infra/log"
	"avito-monitor-bot/internal/infra/metrics"
	"avito-monitor-bot/internal/usecase/monitor"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	store, closeStore, err := newStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть хранилище")
	}
	defer closeStore()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	source := avito.NewClient(
		&nethttp.Client{Timeout: cfg.Avito.FetchTimeout},
		cfg.Avito.BaseURL,
		cfg.Avito.UserAgent,
		logger,
	)
	notifier := bot.NewNotifier(botAPI, logger)
	monitorService := monitor.NewService(store, source, notifier, logger)
	h := bot.NewHandler(botAPI, logger, monitorService)

	server := http.NewServer(logger)
	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != nethttp.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := botAPI.GetUpdatesChan(updateCfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for upd := range updates {
			h.HandleUpdate(ctx, upd)
		}
	}()
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("бот запущен в режиме long polling")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info().Msg("остановка бота")

	botAPI.StopReceivingUpdates()
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

// newStore выбирает хранилище: Postgres при заданном PG_DSN, иначе
// локальный файл SQLite.
func newStore(cfg config.AppConfig) (domain.MonitorRepo, func(), error) {
	if cfg.PGDSN != "" {
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		store := repo.NewPostgres(pool)
		if err := store.Migrate(); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	}
	store, err := repo.NewSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

var _ domain.MonitorRepo = (*repo.Postgres)(nil)
var _ domain.MonitorRepo = (*repo.SQLite)(nil)
