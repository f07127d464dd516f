package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"avito-monitor-bot/internal/domain"
	"avito-monitor-bot/internal/infra/metrics"
)

// Service реализует мониторинг страниц выдачи и жизненный цикл подписок.
type Service struct {
	repo   domain.MonitorRepo
	source domain.ListingSource
	notif  domain.Notifier
	log    zerolog.Logger
}

// NewService создаёт сервис мониторинга.
func NewService(repo domain.MonitorRepo, source domain.ListingSource, notif domain.Notifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, source: source, notif: notif, log: logger}
}

// AddMonitor сохраняет подписку после валидации ссылки и порога.
func (s *Service) AddMonitor(ctx context.Context, ownerID int64, rawURL string, maxPrice int) (domain.Monitor, error) {
	if err := ValidateSearchURL(rawURL); err != nil {
		return domain.Monitor{}, err
	}
	if maxPrice < 0 {
		return domain.Monitor{}, ErrPriceInvalid
	}
	m, err := s.repo.AddMonitor(ownerID, strings.TrimSpace(rawURL), maxPrice)
	if err != nil {
		return domain.Monitor{}, fmt.Errorf("сохранение подписки: %w", err)
	}
	return m, nil
}

// ListMonitors возвращает подписки владельца в порядке добавления.
func (s *Service) ListMonitors(ctx context.Context, ownerID int64) ([]domain.Monitor, error) {
	monitors, err := s.repo.ListMonitors(ownerID)
	if err != nil {
		return nil, fmt.Errorf("получение подписок: %w", err)
	}
	return monitors, nil
}

// DeleteMonitor удаляет все подписки владельца с указанным URL.
func (s *Service) DeleteMonitor(ctx context.Context, ownerID int64, url string) (int64, error) {
	deleted, err := s.repo.DeleteMonitors(ownerID, url)
	if err != nil {
		return 0, fmt.Errorf("удаление подписки: %w", err)
	}
	return deleted, nil
}

// CheckForNewListings загружает страницу выдачи и уведомляет владельца
// о каждом ещё не показанном объявлении, проходящем ценовой фильтр.
// Возвращает количество отправленных уведомлений.
//
// Порядок "сначала пометить, потом уведомить" выбран сознательно: сбой
// между этими шагами стоит одного потерянного уведомления, но никогда
// не приводит к повторному уведомлению при следующей проверке.
func (s *Service) CheckForNewListings(ctx context.Context, ownerID int64, url string, maxPrice int) (int, error) {
	logger := s.log.With().
		Str("check_id", uuid.NewString()).
		Int64("owner", ownerID).
		Str("url", url).
		Logger()

	metrics.ChecksTotal.Inc()
	listings, err := s.source.Fetch(ctx, url)
	if err != nil {
		metrics.FetchErrors.Inc()
		logger.Error().Err(err).Msg("не удалось загрузить страницу выдачи")
		return 0, fmt.Errorf("загрузка выдачи: %w", err)
	}
	logger.Debug().Int("listings", len(listings)).Msg("страница выдачи разобрана")

	reported := 0
	for _, listing := range listings {
		seen, err := s.repo.HasSeen(url, listing.AdID)
		if err != nil {
			return reported, fmt.Errorf("проверка истории объявления %s: %w", listing.AdID, err)
		}
		if seen {
			metrics.IncListingSkipped("seen")
			continue
		}
		// Отфильтрованное по цене объявление не помечается показанным:
		// при смягчении порога оно должно быть отправлено повторно.
		if maxPrice > 0 && listing.Price > maxPrice {
			metrics.IncListingSkipped("price")
			continue
		}
		if err := s.repo.MarkSeen(url, listing.AdID); err != nil {
			return reported, fmt.Errorf("сохранение истории объявления %s: %w", listing.AdID, err)
		}
		if err := s.notif.Notify(ownerID, FormatListing(listing)); err != nil {
			logger.Error().Err(err).Str("ad_id", listing.AdID).Msg("не удалось отправить уведомление")
			continue
		}
		metrics.ListingsReported.Inc()
		reported++
	}
	logger.Info().Int("reported", reported).Msg("проверка завершена")
	return reported, nil
}
