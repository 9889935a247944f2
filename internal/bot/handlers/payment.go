package handlers

import (
	"context"
	"fmt"
	"strings"

	botservice "telegram_consult_bot/internal/bot/service"
	"telegram_consult_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// PaymentHandler обрабатывает платежи Telegram:
// pre-checkout запросы и уведомления об успешной оплате
type PaymentHandler struct {
	service *botservice.Service
}

// NewPaymentHandler создает новый обработчик платежей
func NewPaymentHandler(service *botservice.Service) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// HandlePreCheckout подтверждает pre-checkout запрос
func (h *PaymentHandler) HandlePreCheckout(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	pre := update.PreCheckoutQuery
	if pre == nil {
		return
	}

	if err := h.service.AnswerPreCheckout(ctx, pre.ID); err != nil {
		logger.ErrorLog("failed to answer pre-checkout", logger.Error(err))
	}
}

// HandleSuccessfulPayment отмечает бронирование оплаченным.
// Повторная доставка уведомления безопасна: отметка идемпотентна
func (h *PaymentHandler) HandleSuccessfulPayment(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.SuccessfulPayment == nil {
		return
	}

	chatID := msg.Chat.ID
	payload := msg.SuccessfulPayment.InvoicePayload
	if !strings.HasPrefix(payload, "booking:") {
		logger.Warn("unexpected invoice payload", logger.String("payload", payload))
		return
	}

	reference := strings.TrimPrefix(payload, "booking:")
	if _, err := h.service.ConfirmPaid(ctx, reference); err != nil {
		logger.ErrorLog("failed to confirm payment",
			logger.String("reference", reference), logger.Error(err))
		h.service.SendError(ctx, chatID, "Оплата получена, но подтверждение не прошло. Мы разберемся и напишем вам.")
		h.service.NotifyAdmin(ctx, fmt.Sprintf("Оплата без подтверждения брони %s: %v", reference, err))
		return
	}

	h.service.Sessions().Get(chatID).PaymentDone()
	h.service.SendSimpleMessage(ctx, chatID,
		"Оплата получена! До встречи на консультации.\nЕсли нужно перенести — напишите здесь.")

	username := ""
	if msg.From != nil {
		username = "@" + msg.From.Username
	}
	h.service.NotifyAdmin(ctx, fmt.Sprintf(
		"Новая оплаченная консультация!\nПользователь: %s (%d)\nСумма: %.2f %s",
		username, chatID,
		float64(msg.SuccessfulPayment.TotalAmount)/100,
		msg.SuccessfulPayment.Currency))
}
