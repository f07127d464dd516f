package domain

import "time"

// Monitor описывает сохранённую подписку на страницу поиска Avito.
// MaxPrice равный нулю означает отсутствие ценового фильтра.
type Monitor struct {
	ID        int64
	OwnerID   int64
	URL       string
	MaxPrice  int
	CreatedAt time.Time
}

// Listing представляет одно объявление, извлечённое из страницы выдачи.
// Записи живут только в рамках одной проверки и не сохраняются.
type Listing struct {
	AdID  string
	Title string
	Price int
	Link  string
}
