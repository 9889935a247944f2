package handlers

import (
	"context"

	botservice "telegram_consult_bot/internal/bot/service"
	"telegram_consult_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeText = "Привет! Я бот для записи на консультацию.\n\n" +
	"Команды:\n" +
	"/anketa — заполнить анкету\n" +
	"/book — выбрать слот\n" +
	"/help — помощь"

// StartHandler обрабатывает команды /start и /help
type StartHandler struct {
	service *botservice.Service
}

// NewStartHandler создает новый обработчик команды /start
func NewStartHandler(service *botservice.Service) *StartHandler {
	return &StartHandler{service: service}
}

// Handle обрабатывает команду /start
func (h *StartHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	chatID := msg.Chat.ID
	err := h.service.UpsertUser(ctx, chatID, msg.From.Username, msg.From.FirstName, msg.From.LastName)
	if err != nil {
		logger.ErrorLog("failed to upsert user", logger.Int64("chat_id", chatID), logger.Error(err))
	}

	h.service.SendSimpleMessage(ctx, chatID, welcomeText)
}
