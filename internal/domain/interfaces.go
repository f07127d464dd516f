package domain

import "context"

// MonitorRepo управляет подписками и историей показанных объявлений.
type MonitorRepo interface {
	AddMonitor(ownerID int64, url string, maxPrice int) (Monitor, error)
	ListMonitors(ownerID int64) ([]Monitor, error)
	// DeleteMonitors удаляет все подписки владельца с указанным URL
	// и возвращает количество удалённых строк.
	DeleteMonitors(ownerID int64, url string) (int64, error)
	HasSeen(url, adID string) (bool, error)
	// MarkSeen идемпотентна: повторная вставка пары (url, adID) не ошибка.
	MarkSeen(url, adID string) error
}

// ListingSource загружает страницу выдачи и извлекает объявления
// в порядке их следования в документе.
type ListingSource interface {
	Fetch(ctx context.Context, url string) ([]Listing, error)
}

// Notifier доставляет пользователю текстовое уведомление.
type Notifier interface {
	Notify(ownerID int64, text string) error
}
