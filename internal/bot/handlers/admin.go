package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	botservice "telegram_consult_bot/internal/bot/service"
	"telegram_consult_bot/internal/generator"
	"telegram_consult_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminHandler обрабатывает операторские команды /addslot и /regen.
// Обе переиспользуют идемпотентную вставку слота
type AdminHandler struct {
	service   *botservice.Service
	generator *generator.TemplateGenerator
}

// NewAdminHandler создает новый обработчик операторских команд
func NewAdminHandler(service *botservice.Service, gen *generator.TemplateGenerator) *AdminHandler {
	return &AdminHandler{service: service, generator: gen}
}

// HandleAddSlot обрабатывает /addslot YYYY-MM-DD HH:MM
func (h *AdminHandler) HandleAddSlot(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if !h.service.IsAdmin(chatID) {
		return
	}

	args := strings.Fields(update.Message.Text)
	if len(args) != 3 {
		h.service.SendSimpleMessage(ctx, chatID, "Формат: /addslot YYYY-MM-DD HH:MM")
		return
	}

	start, err := h.service.Clock().ParseLocal(args[1], args[2])
	if err != nil {
		h.service.SendSimpleMessage(ctx, chatID, "Некорректные дата или время. Формат: /addslot YYYY-MM-DD HH:MM")
		return
	}

	created, err := h.service.InsertSlot(ctx, start)
	if err != nil {
		logger.ErrorLog("failed to add slot", logger.Error(err))
		h.service.SendError(ctx, chatID, "Не удалось создать слот.")
		return
	}

	if created {
		h.service.SendSimpleMessage(ctx, chatID,
			fmt.Sprintf("Слот %s создан.", h.service.FormatSlotTime(start)))
	} else {
		h.service.SendSimpleMessage(ctx, chatID, "Слот с таким началом уже существует.")
	}
}

// HandleRegen обрабатывает /regen <days> — принудительный прогон генератора
func (h *AdminHandler) HandleRegen(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if !h.service.IsAdmin(chatID) {
		return
	}

	if h.generator == nil {
		h.service.SendSimpleMessage(ctx, chatID, "Генератор не активен для этого деплоя.")
		return
	}

	days := h.service.Config().Schedule.DaysAhead
	args := strings.Fields(update.Message.Text)
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			days = n
		}
	}

	created, err := h.generator.Generate(ctx, days)
	if err != nil {
		logger.ErrorLog("forced generation failed", logger.Error(err))
		h.service.SendError(ctx, chatID, "Генерация завершилась с ошибкой.")
		return
	}

	h.service.SendSimpleMessage(ctx, chatID,
		fmt.Sprintf("Готово: создано %d новых слотов на %d дней вперед.", created, days))
}
