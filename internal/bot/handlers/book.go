package handlers

import (
	"context"
	"fmt"

	"telegram_consult_bot/internal/bot/keyboard"
	botservice "telegram_consult_bot/internal/bot/service"
	"telegram_consult_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// BookHandler показывает список доступных слотов по команде /book
type BookHandler struct {
	service *botservice.Service
}

// NewBookHandler создает новый обработчик команды /book
func NewBookHandler(service *botservice.Service) *BookHandler {
	return &BookHandler{service: service}
}

// Handle обрабатывает команду /book
func (h *BookHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	duration := int(h.service.Config().Schedule.SessionDuration.Hours())
	text := fmt.Sprintf("Выберите удобное время (сеанс длится %d час):", duration)

	markup, empty := h.buildKeyboard(ctx)
	if empty {
		h.service.SendSimpleMessage(ctx, chatID, "Свободных слотов сейчас нет. Попробуйте позже.")
		return
	}

	if err := h.service.SendMessage(ctx, chatID, text, markup); err != nil {
		logger.ErrorLog("failed to send slot list", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}

// buildKeyboard строит клавиатуру слотов согласно политике деплоя
func (h *BookHandler) buildKeyboard(ctx context.Context) (models.ReplyMarkup, bool) {
	if h.service.UsesCalendar() {
		starts := h.service.CalendarStarts(ctx)
		if len(starts) == 0 {
			return nil, true
		}
		return keyboard.CalendarSelection(h.service.Clock(), starts), false
	}

	slots, err := h.service.FreeSlots(ctx)
	if err != nil {
		logger.ErrorLog("failed to list free slots", logger.Error(err))
		return nil, true
	}
	if len(slots) == 0 {
		return nil, true
	}
	return keyboard.SlotSelection(h.service.Clock(), slots), false
}
