package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"avito-monitor-bot/internal/domain"
	"avito-monitor-bot/internal/infra/metrics"
)

// Postgres реализует domain.MonitorRepo на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.MonitorRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// Migrate создаёт схему, если её ещё нет.
func (p *Postgres) Migrate() error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS monitors (
    id         BIGSERIAL PRIMARY KEY,
    owner_id   BIGINT NOT NULL,
    url        TEXT NOT NULL,
    max_price  BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_monitors_owner ON monitors (owner_id, id);

CREATE TABLE IF NOT EXISTS seen_ads (
    url        TEXT NOT NULL,
    ad_id      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (url, ad_id)
);
`)
	metrics.ObserveNetworkRequest("postgres", "migrate", "schema", start, err)
	return err
}

// AddMonitor сохраняет подписку. Дубликаты (owner, url) допустимы.
func (p *Postgres) AddMonitor(ownerID int64, url string, maxPrice int) (domain.Monitor, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	m := domain.Monitor{OwnerID: ownerID, URL: url, MaxPrice: maxPrice}
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO monitors (owner_id, url, max_price)
VALUES ($1, $2, $3)
RETURNING id, created_at
`, ownerID, url, maxPrice).Scan(&m.ID, &m.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "monitors_insert", "monitors", start, err)
	if err != nil {
		return domain.Monitor{}, err
	}
	return m, nil
}

// ListMonitors возвращает подписки владельца в порядке добавления.
func (p *Postgres) ListMonitors(ownerID int64) ([]domain.Monitor, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, owner_id, url, max_price, created_at
FROM monitors WHERE owner_id=$1
ORDER BY id
`, ownerID)
	metrics.ObserveNetworkRequest("postgres", "monitors_list", "monitors", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []domain.Monitor
	for rows.Next() {
		var m domain.Monitor
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.URL, &m.MaxPrice, &m.CreatedAt); err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// DeleteMonitors удаляет все подписки владельца с указанным URL.
func (p *Postgres) DeleteMonitors(ownerID int64, url string) (int64, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM monitors WHERE owner_id=$1 AND url=$2`, ownerID, url)
	metrics.ObserveNetworkRequest("postgres", "monitors_delete", "monitors", start, err)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// HasSeen проверяет, показывалось ли объявление для этого URL.
func (p *Postgres) HasSeen(url, adID string) (bool, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var exists bool
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM seen_ads WHERE url=$1 AND ad_id=$2)`, url, adID).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "seen_ads_exists", "seen_ads", start, err)
	return exists, err
}

// MarkSeen помечает объявление показанным; повторная вставка не ошибка.
func (p *Postgres) MarkSeen(url, adID string) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO seen_ads (url, ad_id)
VALUES ($1, $2)
ON CONFLICT (url, ad_id) DO NOTHING
`, url, adID)
	metrics.ObserveNetworkRequest("postgres", "seen_ads_insert", "seen_ads", start, err)
	return err
}
