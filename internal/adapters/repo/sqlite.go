package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"avito-monitor-bot/internal/domain"
	"avito-monitor-bot/internal/infra/metrics"
)

// SQLite реализует domain.MonitorRepo поверх локального файла SQLite.
// Подходит для одиночного процесса без внешней базы.
type SQLite struct {
	db *sql.DB
}

var _ domain.MonitorRepo = (*SQLite)(nil)

// NewSQLite открывает базу и при необходимости создаёт схему.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("открытие базы sqlite: %w", err)
	}
	// Одно соединение сериализует записи, см. контракт хранилища.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("миграция схемы: %w", err)
	}
	return s, nil
}

// Close закрывает соединение с базой.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (s *SQLite) migrate() error {
	ctx, cancel := s.connCtx()
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS monitors (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id   INTEGER NOT NULL,
    url        TEXT NOT NULL,
    max_price  INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_monitors_owner ON monitors (owner_id, id);

CREATE TABLE IF NOT EXISTS seen_ads (
    url        TEXT NOT NULL,
    ad_id      TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    PRIMARY KEY (url, ad_id)
);
`)
	return err
}

// AddMonitor сохраняет подписку. Дубликаты (owner, url) допустимы.
func (s *SQLite) AddMonitor(ownerID int64, url string, maxPrice int) (domain.Monitor, error) {
	ctx, cancel := s.connCtx()
	defer cancel()

	now := time.Now().UTC()
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO monitors (owner_id, url, max_price, created_at)
VALUES (?, ?, ?, ?)
`, ownerID, url, maxPrice, now.Format(time.RFC3339Nano))
	metrics.ObserveNetworkRequest("sqlite", "monitors_insert", "monitors", start, err)
	if err != nil {
		return domain.Monitor{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Monitor{}, err
	}
	return domain.Monitor{ID: id, OwnerID: ownerID, URL: url, MaxPrice: maxPrice, CreatedAt: now}, nil
}

// ListMonitors возвращает подписки владельца в порядке добавления.
func (s *SQLite) ListMonitors(ownerID int64) ([]domain.Monitor, error) {
	ctx, cancel := s.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
SELECT id, owner_id, url, max_price, created_at
FROM monitors WHERE owner_id=?
ORDER BY id
`, ownerID)
	metrics.ObserveNetworkRequest("sqlite", "monitors_list", "monitors", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []domain.Monitor
	for rows.Next() {
		var (
			m         domain.Monitor
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.URL, &m.MaxPrice, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// DeleteMonitors удаляет все подписки владельца с указанным URL.
func (s *SQLite) DeleteMonitors(ownerID int64, url string) (int64, error) {
	ctx, cancel := s.connCtx()
	defer cancel()

	start := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitors WHERE owner_id=? AND url=?`, ownerID, url)
	metrics.ObserveNetworkRequest("sqlite", "monitors_delete", "monitors", start, err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HasSeen проверяет, показывалось ли объявление для этого URL.
func (s *SQLite) HasSeen(url, adID string) (bool, error) {
	ctx, cancel := s.connCtx()
	defer cancel()

	var exists int
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM seen_ads WHERE url=? AND ad_id=?)`, url, adID).Scan(&exists)
	metrics.ObserveNetworkRequest("sqlite", "seen_ads_exists", "seen_ads", start, err)
	return exists == 1, err
}

// MarkSeen помечает объявление показанным; повторная вставка не ошибка.
func (s *SQLite) MarkSeen(url, adID string) error {
	ctx, cancel := s.connCtx()
	defer cancel()

	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO seen_ads (url, ad_id)
VALUES (?, ?)
ON CONFLICT (url, ad_id) DO NOTHING
`, url, adID)
	metrics.ObserveNetworkRequest("sqlite", "seen_ads_insert", "seen_ads", start, err)
	return err
}
