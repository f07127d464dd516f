package monitor

import (
	"errors"
	"testing"
)

func TestValidateSearchURLOrder(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want error
	}{
		{"валидная ссылка", "https://www.avito.ru/moskva/avtomobili", nil},
		{"валидная с фильтрами", "https://www.avito.ru/moskva/avtomobili/bmw?pmax=500000", nil},
		{"без схемы", "www.avito.ru/moskva/avtomobili", ErrURLScheme},
		{"ftp схема", "ftp://avito.ru/avtomobili", ErrURLScheme},
		{"чужой домен", "https://example.com/avtomobili", ErrURLDomain},
		{"не автомобили", "https://www.avito.ru/moskva/kvartiry", ErrURLSection},
		{"пробелы вокруг", "  https://www.avito.ru/spb/avtomobili  ", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSearchURL(tc.url)
			if !errors.Is(err, tc.want) {
				t.Fatalf("для %q ожидалась ошибка %v, получена %v", tc.url, tc.want, err)
			}
		})
	}
}

func TestValidateSearchURLFirstFailureWins(t *testing.T) {
	// Ссылка провалила бы все три проверки, но сообщается первая.
	if err := ValidateSearchURL("привет"); !errors.Is(err, ErrURLScheme) {
		t.Fatalf("ожидалась ошибка схемы, получена %v", err)
	}
}

func TestParseMaxPrice(t *testing.T) {
	cases := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"500000", 500000, false},
		{"0", 0, false},
		{" 1500000 ", 1500000, false},
		{"-5", 0, true},
		{"abc", 0, true},
		{"500 000", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseMaxPrice(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrPriceInvalid) {
				t.Fatalf("для %q ожидалась ErrPriceInvalid, получена %v", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("для %q неожиданная ошибка: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("для %q ожидалось %d, получено %d", tc.input, tc.want, got)
		}
	}
}
