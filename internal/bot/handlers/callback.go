package handlers

import (
	"context"
	goerrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telegram_consult_bot/internal/bot/keyboard"
	botservice "telegram_consult_bot/internal/bot/service"
	"telegram_consult_bot/internal/storage/models"
	"telegram_consult_bot/pkg/errors"
	"telegram_consult_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// CallbackHandler обрабатывает callback query от inline кнопок
type CallbackHandler struct {
	service *botservice.Service
	book    *BookHandler
}

// NewCallbackHandler создает новый обработчик callback query
func NewCallbackHandler(service *botservice.Service, book *BookHandler) *CallbackHandler {
	return &CallbackHandler{service: service, book: book}
}

// Handle обрабатывает callback query
func (h *CallbackHandler) Handle(ctx context.Context, b *tgbot.Bot, update *tgmodels.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}

	chatID := cb.Message.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "SLOT:"):
		h.handleSlotSelection(ctx, cb, chatID, strings.TrimPrefix(data, "SLOT:"))
	case strings.HasPrefix(data, "CAL:"):
		h.handleCalendarSelection(ctx, cb, chatID, strings.TrimPrefix(data, "CAL:"))
	case strings.HasPrefix(data, "PAY:"):
		h.handlePaymentChoice(ctx, cb, chatID, strings.TrimPrefix(data, "PAY:"))
	default:
		h.service.AnswerCallbackQuery(ctx, cb.ID, "Неверный выбор")
	}
}

func (h *CallbackHandler) handleSlotSelection(ctx context.Context, cb *tgmodels.CallbackQuery, chatID int64, idStr string) {
	slotID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || slotID <= 0 {
		h.service.AnswerCallbackQuery(ctx, cb.ID, "Неверный ID слота")
		return
	}

	bk, err := h.service.Reserve(ctx, chatID, slotID)
	if err != nil {
		h.reservationFailed(ctx, cb, chatID, err)
		return
	}

	slot, err := h.service.GetSlot(ctx, slotID)
	if err != nil {
		logger.ErrorLog("failed to load reserved slot", logger.Int64("slot_id", slotID), logger.Error(err))
	}

	h.reservationSucceeded(ctx, cb, chatID, bk, slot)
}

func (h *CallbackHandler) handleCalendarSelection(ctx context.Context, cb *tgmodels.CallbackQuery, chatID int64, isoStart string) {
	start, err := time.Parse(time.RFC3339, isoStart)
	if err != nil {
		h.service.AnswerCallbackQuery(ctx, cb.ID, "Неверный выбор времени")
		return
	}

	bk, slot, err := h.service.ReserveByStart(ctx, chatID, start)
	if err != nil {
		h.reservationFailed(ctx, cb, chatID, err)
		return
	}

	h.reservationSucceeded(ctx, cb, chatID, bk, slot)
}

// reservationFailed сообщает о проигранной гонке и перепоказывает
// обновленный список слотов в том же сообщении
func (h *CallbackHandler) reservationFailed(ctx context.Context, cb *tgmodels.CallbackQuery, chatID int64, err error) {
	if !goerrors.Is(err, errors.ErrSlotUnavailable) {
		logger.ErrorLog("reservation failed", logger.Int64("chat_id", chatID), logger.Error(err))
		h.service.AnswerCallbackQuery(ctx, cb.ID, "Ошибка, попробуйте позже")
		return
	}

	h.service.AnswerCallbackQuery(ctx, cb.ID, "Увы, слот уже занят. Выберите другой.")

	markup, empty := h.book.buildKeyboard(ctx)
	messageID := cb.Message.Message.ID
	if empty {
		h.service.EditMessageReplyMarkup(ctx, chatID, messageID, &tgmodels.InlineKeyboardMarkup{})
		h.service.SendSimpleMessage(ctx, chatID, "Свободных слотов сейчас нет. Попробуйте позже.")
		return
	}
	if err := h.service.EditMessageReplyMarkup(ctx, chatID, messageID, markup); err != nil {
		logger.ErrorLog("failed to refresh slot keyboard", logger.Error(err))
	}
}

func (h *CallbackHandler) reservationSucceeded(ctx context.Context, cb *tgmodels.CallbackQuery, chatID int64, bk *models.Booking, slot *models.Slot) {
	h.service.AnswerCallbackQuery(ctx, cb.ID, "Слот забронирован")
	h.service.Sessions().Get(chatID).SlotChosen()

	if slot == nil {
		h.service.SendSimpleMessage(ctx, chatID, "Слот забронирован.")
		return
	}

	h.service.ScheduleReminder(ctx, chatID, slot)

	if h.service.HasPaymentProvider() {
		if err := h.service.SendInvoice(ctx, chatID, bk, slot); err != nil {
			logger.ErrorLog("failed to send invoice", logger.Error(err))
			h.service.SendError(ctx, chatID, "Не удалось выставить счет. Напишите нам, и мы поможем.")
		}
		return
	}

	text := fmt.Sprintf("Вы забронировали слот %s.\nВыберите способ оплаты:",
		h.service.FormatSlotTime(slot.StartAt))
	h.service.SendMessage(ctx, chatID, text, keyboard.PaymentSelection(bk.Reference))
}

// handlePaymentChoice фиксирует выбор способа оплаты при отсутствии
// платежного провайдера. Бронирование остается в статусе requested
// до ручного подтверждения оператором
func (h *CallbackHandler) handlePaymentChoice(ctx context.Context, cb *tgmodels.CallbackQuery, chatID int64, data string) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		h.service.AnswerCallbackQuery(ctx, cb.ID, "Неверный выбор")
		return
	}
	method, reference := parts[0], parts[1]

	h.service.AnswerCallbackQuery(ctx, cb.ID, "Принято")
	h.service.Sessions().Get(chatID).PaymentDone()

	h.service.SendSimpleMessage(ctx, chatID,
		"Спасибо! Мы свяжемся с вами для подтверждения оплаты. До встречи на консультации.")

	h.service.NotifyAdmin(ctx, fmt.Sprintf(
		"Новая запись на консультацию.\nПользователь: %d\nБронь: %s\nСпособ оплаты: %s",
		chatID, reference, method))
}
