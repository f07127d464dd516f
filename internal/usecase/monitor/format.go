package monitor

import (
	"strconv"
	"strings"

	"avito-monitor-bot/internal/domain"
)

// FormatListing формирует текст уведомления о новом объявлении.
func FormatListing(l domain.Listing) string {
	lines := []string{
		"🚗 Новое объявление!",
		"",
		"📌 " + l.Title,
		"💰 " + FormatPrice(l.Price) + " ₽",
		"🔗 " + l.Link,
	}
	return strings.Join(lines, "\n")
}

// FormatMaxPrice описывает ценовой порог подписки.
func FormatMaxPrice(maxPrice int) string {
	if maxPrice == 0 {
		return "Без ограничений"
	}
	return FormatPrice(maxPrice) + " ₽"
}

// FormatPrice разделяет тысячи запятыми: 1500000 -> "1,500,000".
func FormatPrice(price int) string {
	digits := strconv.Itoa(price)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
