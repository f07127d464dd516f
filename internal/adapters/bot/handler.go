package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"avito-monitor-bot/internal/adapters/telegram"
	"avito-monitor-bot/internal/infra/metrics"
	"avito-monitor-bot/internal/usecase/monitor"
)

// Sender отправляет сообщения в Telegram. Интерфейсу удовлетворяет
// *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Кнопки главного меню.
const (
	btnAdd    = "Добавить URL 🔗"
	btnList   = "Мои URL 📋"
	btnDelete = "Удалить URL 🗑"
	btnHelp   = "Помощь ❓"
)

type sessionState int

const (
	stateChoosingAction sessionState = iota
	stateSettingURL
	stateSettingPrice
)

// session хранит положение пользователя в диалоге между сообщениями.
type session struct {
	state            sessionState
	pendingURL       string
	deleteCandidates []string
}

// Handler ведёт диалог с пользователем: добавление, просмотр и удаление
// отслеживаемых URL.
type Handler struct {
	bot       Sender
	log       zerolog.Logger
	monitorUC *monitor.Service

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewHandler создаёт обработчик.
func NewHandler(bot Sender, log zerolog.Logger, monitorUC *monitor.Service) *Handler {
	return &Handler{
		bot:       bot,
		log:       log,
		monitorUC: monitorUC,
		sessions:  make(map[int64]*session),
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID

	// Любой сбой обработчика не должен ронять процесс: пользователь
	// получает извинение, диалог возвращается в главное меню.
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Int64("user", userID).Msg("паника при обработке сообщения")
			h.resetSession(userID)
			h.reply(chatID, "❌ Произошла ошибка. Пожалуйста, попробуйте еще раз или начните заново с /start", h.mainKeyboard())
		}
	}()

	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/start") {
		h.resetSession(userID)
		h.reply(chatID, h.buildStartMessage(), h.mainKeyboard())
		return
	}
	// Помощь доступна из любого состояния и его не меняет.
	if text == btnHelp || strings.HasPrefix(text, "/help") {
		h.reply(chatID, h.buildHelpMessage(), h.mainKeyboard())
		return
	}

	switch h.sessionOf(userID).state {
	case stateSettingURL:
		h.handleURLInput(chatID, userID, text)
	case stateSettingPrice:
		h.handlePriceInput(ctx, chatID, userID, text)
	default:
		h.handleMenuAction(ctx, chatID, userID, text)
	}
}

func (h *Handler) handleMenuAction(ctx context.Context, chatID, userID int64, text string) {
	switch text {
	case btnAdd:
		h.setState(userID, func(s *session) {
			s.state = stateSettingURL
			s.pendingURL = ""
		})
		h.reply(chatID, strings.Join([]string{
			"Отправьте ссылку на страницу поиска автомобилей на Avito.",
			"Например: https://www.avito.ru/moskva/avtomobili",
		}, "\n"), nil)
	case btnList:
		h.handleList(ctx, chatID, userID)
	case btnDelete:
		h.handleDeleteRequest(ctx, chatID, userID)
	default:
		// Кнопки имеют приоритет; прочий текст при показанном списке
		// удаления трактуется как номер URL.
		if len(h.sessionOf(userID).deleteCandidates) > 0 {
			h.handleDeleteChoice(ctx, chatID, userID, text)
			return
		}
		h.reply(chatID, "Пожалуйста, выберите действие с помощью кнопок ниже.", h.mainKeyboard())
	}
}

func (h *Handler) handleURLInput(chatID, userID int64, text string) {
	if err := monitor.ValidateSearchURL(text); err != nil {
		h.reply(chatID, urlErrorMessage(err), nil)
		return
	}
	h.setState(userID, func(s *session) {
		s.state = stateSettingPrice
		s.pendingURL = strings.TrimSpace(text)
	})
	h.reply(chatID, strings.Join([]string{
		"Отлично! Теперь укажите максимальную цену в рублях.",
		"Отправьте 0, если цена не важна.",
		"Например: 500000",
	}, "\n"), nil)
}

func urlErrorMessage(err error) string {
	switch {
	case errors.Is(err, monitor.ErrURLScheme):
		return strings.Join([]string{
			"❌ Ссылка должна начинаться с http:// или https://",
			"Например: https://www.avito.ru/moskva/avtomobili",
		}, "\n")
	case errors.Is(err, monitor.ErrURLDomain):
		return strings.Join([]string{
			"❌ Ссылка должна вести на сайт avito.ru",
			"Например: https://www.avito.ru/moskva/avtomobili",
		}, "\n")
	case errors.Is(err, monitor.ErrURLSection):
		return strings.Join([]string{
			"❌ Ссылка должна быть из раздела автомобилей.",
			"Например: https://www.avito.ru/moskva/avtomobili",
		}, "\n")
	default:
		return "❌ Некорректная ссылка. Попробуйте еще раз."
	}
}

func (h *Handler) handlePriceInput(ctx context.Context, chatID, userID int64, text string) {
	maxPrice, err := monitor.ParseMaxPrice(text)
	if err != nil {
		h.reply(chatID, "❌ Пожалуйста, введите корректное число.\nНапример: 500000", nil)
		return
	}

	url := h.sessionOf(userID).pendingURL
	m, err := h.monitorUC.AddMonitor(ctx, userID, url, maxPrice)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("не удалось сохранить подписку")
		h.resetSession(userID)
		h.reply(chatID, "❌ Не удалось сохранить URL. Попробуйте позже.", h.mainKeyboard())
		return
	}

	h.resetSession(userID)
	h.reply(chatID, strings.Join([]string{
		"✅ Готово! Слежу за новыми объявлениями.",
		"",
		"🔗 " + m.URL,
		"💰 Максимальная цена: " + monitor.FormatMaxPrice(m.MaxPrice),
	}, "\n"), h.mainKeyboard())

	// Первая проверка сразу после добавления: уже опубликованные
	// объявления приходят пользователю, не дожидаясь планировщика.
	if _, err := h.monitorUC.CheckForNewListings(ctx, userID, m.URL, m.MaxPrice); err != nil {
		h.log.Error().Err(err).Int64("user", userID).Str("url", m.URL).Msg("первая проверка не удалась")
	}
}

func (h *Handler) handleList(ctx context.Context, chatID, userID int64) {
	monitors, err := h.monitorUC.ListMonitors(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("не удалось получить подписки")
		h.reply(chatID, "❌ Не удалось получить список URL. Попробуйте позже.", h.mainKeyboard())
		return
	}
	if len(monitors) == 0 {
		h.reply(chatID, "У вас пока нет отслеживаемых URL.", h.mainKeyboard())
		return
	}
	var b strings.Builder
	b.WriteString("📋 Ваши отслеживаемые URL:\n\n")
	for i, m := range monitors {
		b.WriteString(fmt.Sprintf("%d. %s\n💰 %s\n\n", i+1, m.URL, monitor.FormatMaxPrice(m.MaxPrice)))
	}
	h.reply(chatID, strings.TrimSpace(b.String()), h.mainKeyboard())
}

func (h *Handler) handleDeleteRequest(ctx context.Context, chatID, userID int64) {
	monitors, err := h.monitorUC.ListMonitors(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("не удалось получить подписки")
		h.reply(chatID, "❌ Не удалось получить список URL. Попробуйте позже.", h.mainKeyboard())
		return
	}
	if len(monitors) == 0 {
		h.reply(chatID, "У вас пока нет отслеживаемых URL.", h.mainKeyboard())
		return
	}

	seen := make(map[string]struct{}, len(monitors))
	candidates := make([]string, 0, len(monitors))
	for _, m := range monitors {
		if _, ok := seen[m.URL]; ok {
			continue
		}
		seen[m.URL] = struct{}{}
		candidates = append(candidates, m.URL)
	}

	h.setState(userID, func(s *session) {
		s.state = stateChoosingAction
		s.deleteCandidates = candidates
	})

	var b strings.Builder
	b.WriteString("Какой URL удалить? Отправьте его номер:\n\n")
	for i, url := range candidates {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, url))
	}
	h.reply(chatID, strings.TrimSpace(b.String()), nil)
}

func (h *Handler) handleDeleteChoice(ctx context.Context, chatID, userID int64, text string) {
	candidates := h.sessionOf(userID).deleteCandidates
	idx, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || idx < 1 || idx > len(candidates) {
		h.reply(chatID, "❌ Пожалуйста, введите корректный номер URL.", nil)
		return
	}

	url := candidates[idx-1]
	if _, err := h.monitorUC.DeleteMonitor(ctx, userID, url); err != nil {
		h.log.Error().Err(err).Int64("user", userID).Str("url", url).Msg("не удалось удалить подписку")
		h.resetSession(userID)
		h.reply(chatID, "❌ Не удалось удалить URL. Попробуйте позже.", h.mainKeyboard())
		return
	}

	h.resetSession(userID)
	h.reply(chatID, "🗑 URL удалён:\n"+url, h.mainKeyboard())
}

func (h *Handler) sessionOf(userID int64) session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[userID]; ok {
		return *s
	}
	return session{}
}

func (h *Handler) setState(userID int64, mutate func(*session)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[userID]
	if !ok {
		s = &session{}
		h.sessions[userID] = s
	}
	mutate(s)
}

func (h *Handler) resetSession(userID int64) {
	h.mu.Lock()
	delete(h.sessions, userID)
	h.mu.Unlock()
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.ReplyKeyboardMarkup) {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}

func (h *Handler) mainKeyboard() *tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdd),
			tgbotapi.NewKeyboardButton(btnList),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDelete),
			tgbotapi.NewKeyboardButton(btnHelp),
		),
	)
	keyboard.ResizeKeyboard = true
	return &keyboard
}

func (h *Handler) buildStartMessage() string {
	lines := []string{
		"👋 Привет! Я слежу за новыми объявлениями автомобилей на Avito.",
		"",
		"Добавьте ссылку на страницу поиска, и я буду присылать каждое новое объявление, как только оно появится.",
		"",
		"Выберите действие:",
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) buildHelpMessage() string {
	lines := []string{
		"📖 Как пользоваться ботом:",
		"",
		"1. " + btnAdd + " — добавить страницу поиска Avito.",
		"   Подойдёт любая ссылка из раздела автомобилей,",
		"   например https://www.avito.ru/moskva/avtomobili.",
		"   После ссылки укажите максимальную цену (0 — без ограничений).",
		"2. " + btnList + " — показать сохранённые URL.",
		"3. " + btnDelete + " — удалить URL по номеру из списка.",
		"",
		"Проверка страниц выполняется автоматически, каждое объявление приходит только один раз.",
	}
	return strings.Join(lines, "\n")
}
