package monitor

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrURLScheme    = errors.New("ссылка должна начинаться с http:// или https://")
	ErrURLDomain    = errors.New("ссылка должна вести на сайт avito.ru")
	ErrURLSection   = errors.New("ссылка должна быть из раздела автомобилей")
	ErrPriceInvalid = errors.New("некорректная цена")
)

// ValidateSearchURL проверяет ссылку на страницу выдачи Avito.
// Предикаты применяются по порядку, первый провал останавливает проверку,
// чтобы пользователь получил точную причину отказа.
func ValidateSearchURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return ErrURLScheme
	}
	if !strings.Contains(trimmed, "avito.ru") {
		return ErrURLDomain
	}
	if !strings.Contains(trimmed, "/avtomobili") {
		return ErrURLSection
	}
	return nil
}

// ParseMaxPrice разбирает ценовой порог из пользовательского ввода.
// Ноль означает отсутствие ограничения, отрицательные значения запрещены.
func ParseMaxPrice(input string) (int, error) {
	price, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || price < 0 {
		return 0, ErrPriceInvalid
	}
	return price, nil
}
