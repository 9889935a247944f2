package handlers

import (
	"context"
	"fmt"

	"telegram_consult_bot/internal/bot/fsm"
	botservice "telegram_consult_bot/internal/bot/service"
	"telegram_consult_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// FormHandler ведет пользователя по шагам анкеты
type FormHandler struct {
	service *botservice.Service
}

// NewFormHandler создает новый обработчик анкеты
func NewFormHandler(service *botservice.Service) *FormHandler {
	return &FormHandler{service: service}
}

// Start начинает анкету по команде /anketa
func (h *FormHandler) Start(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	session := h.service.Sessions().Get(chatID)
	prompt := session.StartForm()
	h.service.SendSimpleMessage(ctx, chatID, prompt)
}

// HandleText обрабатывает ответ на текущий шаг анкеты.
// Возвращает true, если сообщение было шагом анкеты
func (h *FormHandler) HandleText(ctx context.Context, b *tgbot.Bot, update *models.Update) bool {
	msg := update.Message
	chatID := msg.Chat.ID
	session := h.service.Sessions().Get(chatID)

	if !session.Collecting() {
		return false
	}

	prompt, err := session.Next(msg.Text)
	if err != nil {
		// Невалидный ответ: состояние не изменилось, переспрашиваем
		h.service.SendSimpleMessage(ctx, chatID, "Похоже, данные некорректны. "+prompt)
		return true
	}

	if session.State() != fsm.StateSelectingSlot {
		h.service.SendSimpleMessage(ctx, chatID, prompt)
		return true
	}

	// Анкета собрана: сохраняем и предлагаем выбрать слот
	username := ""
	if msg.From != nil {
		username = msg.From.Username
	}

	form := session.Form()
	if err := h.service.SaveForm(ctx, form, username); err != nil {
		logger.ErrorLog("failed to save form", logger.Int64("chat_id", chatID), logger.Error(err))
		h.service.SendError(ctx, chatID, "Не удалось сохранить анкету. Попробуйте позже.")
		return true
	}

	duration := int(h.service.Config().Schedule.SessionDuration.Hours())
	preview := fmt.Sprintf(
		"ФИО: %s\nДолжность: %s\nТип судна: %s\nОпыт: %s\nВопросы: %s\nE-mail: %s\nTelegram: %s\n\n"+
			"Длительность консультации — %d час.\nТеперь можно выбрать слот: /book",
		form.FullName, form.Position, form.ShipType, form.Experience,
		form.Questions, form.Email, form.Telegram, duration)

	h.service.SendSimpleMessage(ctx, chatID, preview)
	return true
}
