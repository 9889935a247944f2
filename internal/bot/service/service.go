package service

import (
	"context"
	"fmt"
	"time"

	"telegram_consult_bot/internal/booking"
	"telegram_consult_bot/internal/bot/fsm"
	"telegram_consult_bot/internal/clock"
	"telegram_consult_bot/internal/config"
	"telegram_consult_bot/internal/generator"
	"telegram_consult_bot/internal/scheduler"
	"telegram_consult_bot/internal/storage"
	"telegram_consult_bot/internal/storage/models"
	"telegram_consult_bot/pkg/logger"
	"telegram_consult_bot/pkg/metrics"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// SheetAppender дописывает строку анкеты во внешнюю таблицу
type SheetAppender interface {
	AppendFormRow(ctx context.Context, values []string) error
}

// Service представляет основной сервис консультационного бота.
// Все коллабораторы конструируются на старте и передаются явно
type Service struct {
	bot         *tgbot.Bot
	store       storage.Storage
	coordinator *booking.Coordinator
	sessions    *fsm.Store
	clock       *clock.Clock
	config      *config.Config
	calendar    *generator.CalendarAvailability // nil при шаблонной политике
	sheets      SheetAppender                   // nil без настроенного Google
	reminders   scheduler.ReminderScheduler     // nil при выключенных напоминаниях
	logger      *logger.Logger
}

// NewService создает новый экземпляр сервиса бота
func NewService(
	bot *tgbot.Bot,
	store storage.Storage,
	coordinator *booking.Coordinator,
	clk *clock.Clock,
	cfg *config.Config,
	cal *generator.CalendarAvailability,
	sheets SheetAppender,
	log *logger.Logger,
) *Service {
	return &Service{
		bot:         bot,
		store:       store,
		coordinator: coordinator,
		sessions:    fsm.NewStore(),
		clock:       clk,
		config:      cfg,
		calendar:    cal,
		sheets:      sheets,
		logger:      log,
	}
}

// SetReminders подключает планировщик напоминаний.
// Вызывается один раз при сборке приложения: планировщику нужен
// отправитель, которым выступает сам сервис
func (s *Service) SetReminders(r scheduler.ReminderScheduler) {
	s.reminders = r
}

// Sessions возвращает хранилище диалоговых сессий
func (s *Service) Sessions() *fsm.Store {
	return s.sessions
}

// Clock возвращает адаптер таймзоны
func (s *Service) Clock() *clock.Clock {
	return s.clock
}

// Config возвращает конфигурацию
func (s *Service) Config() *config.Config {
	return s.config
}

// UsesCalendar проверяет, работает ли деплой по календарной политике
func (s *Service) UsesCalendar() bool {
	return s.config.Schedule.SlotSource == config.SlotSourceCalendar && s.calendar != nil
}

// UpsertUser сохраняет или обновляет пользователя
func (s *Service) UpsertUser(ctx context.Context, chatID int64, username, firstName, lastName string) error {
	return s.store.UpsertUser(ctx, chatID, username, firstName, lastName)
}

// SaveForm сохраняет анкету локально и best-effort дублирует ее в таблицу.
// Ошибка записи в таблицу не мешает анкете: она логируется и уходит оператору
func (s *Service) SaveForm(ctx context.Context, form *models.Form, username string) error {
	if err := s.store.SaveForm(ctx, form); err != nil {
		return err
	}

	if s.sheets == nil {
		return nil
	}

	err := s.sheets.AppendFormRow(ctx, []string{
		fmt.Sprintf("%d", form.UserChatID),
		username,
		form.FullName,
		form.Position,
		form.ShipType,
		form.Experience,
		form.Questions,
		form.Email,
		form.Telegram,
	})
	if err != nil {
		metrics.RecordSheetAppend("error")
		metrics.RecordUpstreamError("sheets")
		s.logger.Error("sheet append failed", logger.Error(err))
		s.NotifyAdmin(ctx, fmt.Sprintf("Не удалось записать анкету в таблицу: %v", err))
		return nil
	}

	metrics.RecordSheetAppend("ok")
	return nil
}

// FreeSlots возвращает свободные слоты из хранилища
func (s *Service) FreeSlots(ctx context.Context) ([]*models.Slot, error) {
	sched := s.config.Schedule
	return s.coordinator.ListFreeSlots(ctx, s.clock.Now(), sched.ListHorizon, sched.ListLimit)
}

// CalendarStarts возвращает доступные начала сеансов по календарной политике.
// Недоступность календаря деградирует в пустой список с уведомлением оператора
func (s *Service) CalendarStarts(ctx context.Context) []time.Time {
	starts, err := s.calendar.AvailableStarts(ctx, s.config.Schedule.DaysAhead)
	if err != nil {
		s.logger.Error("calendar availability failed", logger.Error(err))
		s.NotifyAdmin(ctx, fmt.Sprintf("Календарь недоступен: %v", err))
		return nil
	}
	return starts
}

// Reserve бронирует слот для пользователя
func (s *Service) Reserve(ctx context.Context, userChatID, slotID int64) (*models.Booking, error) {
	return s.coordinator.Reserve(ctx, userChatID, slotID)
}

// ReserveByStart материализует выбранное календарное время в слот хранилища
// и бронирует его обычным путем. Уникальность начала дает дедупликацию,
// а условный захват — защиту от гонки двух пользователей
func (s *Service) ReserveByStart(ctx context.Context, userChatID int64, start time.Time) (*models.Booking, *models.Slot, error) {
	end := start.Add(s.config.Schedule.SessionDuration)

	if _, err := s.store.InsertSlotIfAbsent(ctx, start, end); err != nil {
		return nil, nil, err
	}

	slot, err := s.store.GetSlotByStart(ctx, start)
	if err != nil {
		return nil, nil, err
	}

	bk, err := s.coordinator.Reserve(ctx, userChatID, slot.ID)
	if err != nil {
		return nil, nil, err
	}

	return bk, slot, nil
}

// ScheduleReminder планирует напоминание о консультации.
// Напоминание best-effort: ошибка планирования не отменяет бронирование
func (s *Service) ScheduleReminder(ctx context.Context, chatID int64, slot *models.Slot) {
	if s.reminders == nil {
		return
	}

	notifyAt := slot.StartAt.Add(-s.config.Schedule.NotifyBefore)
	if err := s.reminders.Schedule(ctx, chatID, slot, notifyAt); err != nil {
		s.logger.Error("failed to schedule reminder",
			logger.Int64("slot_id", slot.ID), logger.Error(err))
	}
}

// SendReminder реализует scheduler.ReminderSender
func (s *Service) SendReminder(ctx context.Context, chatID int64, slot *models.Slot) error {
	text := fmt.Sprintf("Напоминание: ваша консультация начнется %s.", s.FormatSlotTime(slot.StartAt))
	return s.SendSimpleMessage(ctx, chatID, text)
}

// InsertSlot создает один слот с настроенной длительностью сеанса.
// Возвращает false, если слот с таким началом уже существует
func (s *Service) InsertSlot(ctx context.Context, start time.Time) (bool, error) {
	return s.store.InsertSlotIfAbsent(ctx, start, start.Add(s.config.Schedule.SessionDuration))
}

// ConfirmPaid отмечает бронирование оплаченным
func (s *Service) ConfirmPaid(ctx context.Context, reference string) (*models.Booking, error) {
	return s.coordinator.ConfirmPaid(ctx, reference)
}

// GetSlot возвращает слот по ID
func (s *Service) GetSlot(ctx context.Context, slotID int64) (*models.Slot, error) {
	return s.coordinator.GetSlot(ctx, slotID)
}

// FormatSlotTime форматирует момент начала для показа пользователю
func (s *Service) FormatSlotTime(t time.Time) string {
	return s.clock.ToLocal(t).Format("Mon, 02 Jan 2006 15:04 (MST)")
}

// IsAdmin проверяет, является ли чат операторским
func (s *Service) IsAdmin(chatID int64) bool {
	return s.config.Telegram.AdminChatID != 0 && chatID == s.config.Telegram.AdminChatID
}

// SendMessage отправляет сообщение пользователю
func (s *Service) SendMessage(ctx context.Context, chatID int64, text string, replyMarkup tgmodels.ReplyMarkup) error {
	params := &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: replyMarkup,
	}

	_, err := s.bot.SendMessage(ctx, params)
	return err
}

// SendSimpleMessage отправляет простое текстовое сообщение
func (s *Service) SendSimpleMessage(ctx context.Context, chatID int64, text string) error {
	return s.SendMessage(ctx, chatID, text, nil)
}

// SendError отправляет сообщение об ошибке пользователю
func (s *Service) SendError(ctx context.Context, chatID int64, message string) {
	if err := s.SendSimpleMessage(ctx, chatID, message); err != nil {
		s.logger.Error("failed to send error message",
			logger.Int64("chat_id", chatID), logger.Error(err))
	}
}

// NotifyAdmin отправляет сообщение в операторский чат.
// Ошибки отправки проглатываются: канал уведомлений best-effort
func (s *Service) NotifyAdmin(ctx context.Context, text string) {
	adminID := s.config.Telegram.AdminChatID
	if adminID == 0 {
		return
	}
	if err := s.SendSimpleMessage(ctx, adminID, text); err != nil {
		metrics.RecordUpstreamError("telegram")
		s.logger.Error("failed to notify admin", logger.Error(err))
	}
}

// AnswerCallbackQuery отвечает на callback query
func (s *Service) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	params := &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	}

	_, err := s.bot.AnswerCallbackQuery(ctx, params)
	return err
}

// EditMessageReplyMarkup обновляет клавиатуру сообщения
func (s *Service) EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int, markup tgmodels.ReplyMarkup) error {
	params := &tgbot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	}

	_, err := s.bot.EditMessageReplyMarkup(ctx, params)
	return err
}

// HasPaymentProvider проверяет, настроены ли платежи Telegram
func (s *Service) HasPaymentProvider() bool {
	return s.config.Telegram.ProviderToken != ""
}

// SendInvoice выставляет счет за консультацию
func (s *Service) SendInvoice(ctx context.Context, chatID int64, booking *models.Booking, slot *models.Slot) error {
	tg := s.config.Telegram
	params := &tgbot.SendInvoiceParams{
		ChatID:        chatID,
		Title:         "Запись на консультацию",
		Description:   fmt.Sprintf("Слот: %s", s.FormatSlotTime(slot.StartAt)),
		Payload:       "booking:" + booking.Reference,
		ProviderToken: tg.ProviderToken,
		Currency:      tg.Currency,
		Prices: []tgmodels.LabeledPrice{
			{Label: "Сессия консультации", Amount: tg.SessionPrice},
		},
	}

	_, err := s.bot.SendInvoice(ctx, params)
	return err
}

// AnswerPreCheckout подтверждает pre-checkout запрос
func (s *Service) AnswerPreCheckout(ctx context.Context, preCheckoutID string) error {
	params := &tgbot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: preCheckoutID,
		OK:                 true,
	}

	_, err := s.bot.AnswerPreCheckoutQuery(ctx, params)
	return err
}
