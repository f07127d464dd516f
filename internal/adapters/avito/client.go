// Package avito загружает страницы выдачи Avito и извлекает объявления.
package avito

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog"

	"avito-monitor-bot/internal/domain"
	"avito-monitor-bot/internal/infra/metrics"
)

// Client реализует domain.ListingSource поверх HTTP и goquery.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	attempts   uint
	retryDelay time.Duration
	log        zerolog.Logger
}

// Option настраивает клиент.
type Option func(*Client)

// WithAttempts задаёт число попыток загрузки страницы.
func WithAttempts(attempts uint) Option {
	return func(c *Client) { c.attempts = attempts }
}

// WithRetryDelay задаёт базовую паузу между попытками.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) { c.retryDelay = delay }
}

// NewClient создаёт клиент выдачи. baseURL используется для достройки
// относительных ссылок объявлений до абсолютных.
func NewClient(httpClient *http.Client, baseURL, userAgent string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		attempts:   3,
		retryDelay: time.Second,
		log:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domain.ListingSource = (*Client)(nil)

// Fetch загружает страницу выдачи и возвращает объявления в порядке
// их следования в документе. Временные сетевые сбои и ответы 5xx
// повторяются, прочие ошибки прекращают попытки сразу.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]domain.Listing, error) {
	var listings []domain.Listing

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("создание запроса: %w", err))
			}
			req.Header.Set("User-Agent", c.userAgent)
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
			req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")

			start := time.Now()
			resp, err := c.httpClient.Do(req)
			metrics.ObserveNetworkRequest("avito", "fetch_search_page", hostOf(rawURL), start, err)
			if err != nil {
				c.log.Warn().Err(err).Str("url", rawURL).Msg("запрос к выдаче не удался, будет повтор")
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				statusErr := fmt.Errorf("HTTP %d", resp.StatusCode)
				if resp.StatusCode >= http.StatusInternalServerError {
					return statusErr
				}
				// 403 и прочие 4xx повторять бессмысленно: Avito так
				// отвечает на заблокированные или неверные запросы.
				return retry.Unrecoverable(statusErr)
			}

			listings, err = ParseListings(resp.Body, c.baseURL)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("разбор страницы: %w", err))
			}
			return nil
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.log.Info().Uint("attempt", n).Err(err).Str("url", rawURL).Msg("повторная загрузка выдачи")
		}),
	)
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("url", rawURL).Int("listings", len(listings)).Msg("выдача загружена")
	return listings, nil
}

// ParseListings извлекает объявления из разметки страницы выдачи.
// Элементы без идентификатора, заголовка или числовой цены пропускаются:
// это мусорные блоки выдачи, а не ошибка всей загрузки.
func ParseListings(r io.Reader, baseURL string) ([]domain.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var listings []domain.Listing
	doc.Find(`div[data-marker="item"]`).Each(func(_ int, s *goquery.Selection) {
		adID, ok := s.Attr("data-item-id")
		if !ok || adID == "" {
			return
		}

		title := strings.TrimSpace(s.Find(`h3[itemprop="name"]`).First().Text())
		if title == "" {
			return
		}

		priceContent, ok := s.Find(`meta[itemprop="price"]`).First().Attr("content")
		if !ok {
			return
		}
		price, err := strconv.Atoi(strings.TrimSpace(priceContent))
		if err != nil || price < 0 {
			return
		}

		href, ok := s.Find(`a[data-marker="item-title"]`).First().Attr("href")
		if !ok || href == "" {
			return
		}

		listings = append(listings, domain.Listing{
			AdID:  adID,
			Title: title,
			Price: price,
			Link:  absoluteLink(baseURL, href),
		})
	})

	return listings, nil
}

func absoluteLink(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return baseURL + href
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}
