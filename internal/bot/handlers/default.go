package handlers

import (
	"context"

	botservice "telegram_consult_bot/internal/bot/service"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// DefaultHandler обрабатывает сообщения, не подошедшие другим обработчикам
type DefaultHandler struct {
	service *botservice.Service
}

// NewDefaultHandler создает новый обработчик по умолчанию
func NewDefaultHandler(service *botservice.Service) *DefaultHandler {
	return &DefaultHandler{service: service}
}

// Handle отвечает подсказкой о доступных командах
func (h *DefaultHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.service.SendSimpleMessage(ctx, update.Message.Chat.ID, welcomeText)
}
