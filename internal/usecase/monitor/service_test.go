package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"avito-monitor-bot/internal/domain"
)

type stubRepo struct {
	monitors   []domain.Monitor
	seen       map[string]map[string]bool
	nextID     int64
	hasSeenErr error
	markErr    error
}

func newStubRepo() *stubRepo {
	return &stubRepo{seen: make(map[string]map[string]bool)}
}

func (r *stubRepo) AddMonitor(ownerID int64, url string, maxPrice int) (domain.Monitor, error) {
	r.nextID++
	m := domain.Monitor{ID: r.nextID, OwnerID: ownerID, URL: url, MaxPrice: maxPrice}
	r.monitors = append(r.monitors, m)
	return m, nil
}

func (r *stubRepo) ListMonitors(ownerID int64) ([]domain.Monitor, error) {
	var out []domain.Monitor
	for _, m := range r.monitors {
		if m.OwnerID == ownerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubRepo) DeleteMonitors(ownerID int64, url string) (int64, error) {
	var kept []domain.Monitor
	var deleted int64
	for _, m := range r.monitors {
		if m.OwnerID == ownerID && m.URL == url {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.monitors = kept
	return deleted, nil
}

func (r *stubRepo) HasSeen(url, adID string) (bool, error) {
	if r.hasSeenErr != nil {
		return false, r.hasSeenErr
	}
	return r.seen[url][adID], nil
}

func (r *stubRepo) MarkSeen(url, adID string) error {
	if r.markErr != nil {
		return r.markErr
	}
	if r.seen[url] == nil {
		r.seen[url] = make(map[string]bool)
	}
	r.seen[url][adID] = true
	return nil
}

type stubSource struct {
	listings []domain.Listing
	err      error
}

func (s *stubSource) Fetch(ctx context.Context, url string) ([]domain.Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

type stubNotifier struct {
	sent    []string
	failFor map[string]bool
}

func (n *stubNotifier) Notify(ownerID int64, text string) error {
	for marker := range n.failFor {
		if strings.Contains(text, marker) {
			return errors.New("телеграм недоступен")
		}
	}
	n.sent = append(n.sent, text)
	return nil
}

func newService(repo *stubRepo, source *stubSource, notif *stubNotifier) *Service {
	return NewService(repo, source, notif, zerolog.Nop())
}

const testURL = "https://www.avito.ru/moskva/avtomobili"

func TestCheckReportsOnlyNewMatchingListings(t *testing.T) {
	repo := newStubRepo()
	repo.seen[testURL] = map[string]bool{"C": true}
	source := &stubSource{listings: []domain.Listing{
		{AdID: "A", Title: "Lada Vesta", Price: 400000, Link: "https://www.avito.ru/a"},
		{AdID: "B", Title: "BMW X5", Price: 600000, Link: "https://www.avito.ru/b"},
		{AdID: "C", Title: "Kia Rio", Price: 300000, Link: "https://www.avito.ru/c"},
	}}
	notif := &stubNotifier{}
	svc := newService(repo, source, notif)

	reported, err := svc.CheckForNewListings(context.Background(), 7, testURL, 500000)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if reported != 1 {
		t.Fatalf("ожидалось 1 уведомление, получено %d", reported)
	}
	if len(notif.sent) != 1 || !strings.Contains(notif.sent[0], "Lada Vesta") {
		t.Fatalf("уведомление должно быть про объявление A: %v", notif.sent)
	}
	if !repo.seen[testURL]["A"] {
		t.Fatalf("объявление A должно быть помечено показанным")
	}
	if repo.seen[testURL]["B"] {
		t.Fatalf("отфильтрованное по цене объявление B не должно помечаться показанным")
	}
}

func TestCheckPriceBoundary(t *testing.T) {
	source := &stubSource{listings: []domain.Listing{
		{AdID: "eq", Title: "Ровно порог", Price: 500000, Link: "https://www.avito.ru/eq"},
		{AdID: "above", Title: "Чуть дороже", Price: 500001, Link: "https://www.avito.ru/above"},
	}}
	notif := &stubNotifier{}
	svc := newService(newStubRepo(), source, notif)

	reported, err := svc.CheckForNewListings(context.Background(), 7, testURL, 500000)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if reported != 1 {
		t.Fatalf("цена, равная порогу, проходит фильтр: ожидалось 1, получено %d", reported)
	}
	if !strings.Contains(notif.sent[0], "Ровно порог") {
		t.Fatalf("уведомление должно быть про объявление с ценой на границе")
	}
}

func TestCheckZeroMaxPriceReportsAll(t *testing.T) {
	source := &stubSource{listings: []domain.Listing{
		{AdID: "1", Title: "Дешёвая", Price: 100, Link: "https://www.avito.ru/1"},
		{AdID: "2", Title: "Дорогая", Price: 99000000, Link: "https://www.avito.ru/2"},
	}}
	notif := &stubNotifier{}
	svc := newService(newStubRepo(), source, notif)

	reported, err := svc.CheckForNewListings(context.Background(), 7, testURL, 0)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if reported != 2 {
		t.Fatalf("нулевой порог не ограничивает цену: ожидалось 2, получено %d", reported)
	}
}

func TestCheckFilteredListingReportedAfterThresholdRelaxed(t *testing.T) {
	repo := newStubRepo()
	source := &stubSource{listings: []domain.Listing{
		{AdID: "X", Title: "Пока дорого", Price: 700000, Link: "https://www.avito.ru/x"},
	}}
	notif := &stubNotifier{}
	svc := newService(repo, source, notif)

	if _, err := svc.CheckForNewListings(context.Background(), 7, testURL, 500000); err != nil {
		t.Fatalf("первая проверка: %v", err)
	}
	if len(notif.sent) != 0 {
		t.Fatalf("при жёстком пороге уведомлений быть не должно")
	}

	reported, err := svc.CheckForNewListings(context.Background(), 7, testURL, 800000)
	if err != nil {
		t.Fatalf("вторая проверка: %v", err)
	}
	if reported != 1 {
		t.Fatalf("после смягчения порога объявление должно прийти: получено %d", reported)
	}
}

func TestCheckSecondRunReportsNothing(t *testing.T) {
	source := &stubSource{listings: []domain.Listing{
		{AdID: "1", Title: "Одна машина", Price: 100000, Link: "https://www.avito.ru/1"},
	}}
	notif := &stubNotifier{}
	svc := newService(newStubRepo(), source, notif)

	if _, err := svc.CheckForNewListings(context.Background(), 7, testURL, 0); err != nil {
		t.Fatalf("первая проверка: %v", err)
	}
	reported, err := svc.CheckForNewListings(context.Background(), 7, testURL, 0)
	if err != nil {
		t.Fatalf("вторая проверка: %v", err)
	}
	if reported != 0 {
		t.Fatalf("повторная проверка не должна дублировать уведомления: получено %d", reported)
	}
	if len(notif.sent) != 1 {
		t.Fatalf("всего должно быть одно уведомление, получено %d", len(notif.sent))
	}
}

func TestCheckFetchErrorAborts(t *testing.T) {
	source := &stubSource{err: errors.New("HTTP 403")}
	notif := &stubNotifier{}
	svc := newService(newStubRepo(), source, notif)

	reported, err := svc.CheckForNewListings(context.Background(), 7, testURL, 0)
	if err == nil {
		t.Fatalf("ожидалась ошибка загрузки")
	}
	if reported != 0 || len(notif.sent) != 0 {
		t.Fatalf("при сбое загрузки уведомлений быть не должно")
	}
}

func TestCheckNotifyErrorDoesNotAbortLoop(t *testing.T) {
	repo := newStubRepo()
	source := &stubSource{listings: []domain.Listing{
		{AdID: "1", Title: "Первая", Price: 100000, Link: "https://www.avito.ru/1"},
		{AdID: "2", Title: "Вторая", Price: 200000, Link: "https://www.avito.ru/2"},
	}}
	notif := &stubNotifier{failFor: map[string]bool{"Первая": true}}
	svc := newService(repo, source, notif)

	reported, err := svc.CheckForNewListings(context.Background(), 7, testURL, 0)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if reported != 1 {
		t.Fatalf("второе объявление должно быть отправлено несмотря на сбой первого")
	}
	// Помеченное до сбоя отправки объявление потеряно, но не продублируется.
	if !repo.seen[testURL]["1"] || !repo.seen[testURL]["2"] {
		t.Fatalf("оба объявления должны быть помечены показанными")
	}
}

func TestCheckStoreErrorAborts(t *testing.T) {
	repo := newStubRepo()
	repo.markErr = errors.New("база недоступна")
	source := &stubSource{listings: []domain.Listing{
		{AdID: "1", Title: "Машина", Price: 100000, Link: "https://www.avito.ru/1"},
	}}
	notif := &stubNotifier{}
	svc := newService(repo, source, notif)

	if _, err := svc.CheckForNewListings(context.Background(), 7, testURL, 0); err == nil {
		t.Fatalf("ошибка хранилища должна прерывать проверку")
	}
	if len(notif.sent) != 0 {
		t.Fatalf("без записи в историю уведомление не отправляется")
	}
}

func TestAddMonitorValidatesInput(t *testing.T) {
	repo := newStubRepo()
	svc := newService(repo, &stubSource{}, &stubNotifier{})

	if _, err := svc.AddMonitor(context.Background(), 7, "https://example.com/avtomobili", 0); !errors.Is(err, ErrURLDomain) {
		t.Fatalf("ожидалась ошибка домена, получена %v", err)
	}
	if _, err := svc.AddMonitor(context.Background(), 7, testURL, -1); !errors.Is(err, ErrPriceInvalid) {
		t.Fatalf("ожидалась ошибка цены, получена %v", err)
	}
	if len(repo.monitors) != 0 {
		t.Fatalf("невалидные подписки не должны сохраняться")
	}

	m, err := svc.AddMonitor(context.Background(), 7, "  "+testURL+"  ", 500000)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if m.URL != testURL {
		t.Fatalf("URL должен сохраняться без пробелов: %q", m.URL)
	}
}
