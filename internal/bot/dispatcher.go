package bot

import (
	"context"
	"strings"

	"telegram_consult_bot/internal/bot/handlers"
	"telegram_consult_bot/internal/bot/service"
	"telegram_consult_bot/internal/generator"
	"telegram_consult_bot/internal/middleware"
	"telegram_consult_bot/pkg/metrics"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Dispatcher управляет обработкой входящих обновлений от Telegram
type Dispatcher struct {
	startHandler    *handlers.StartHandler
	formHandler     *handlers.FormHandler
	bookHandler     *handlers.BookHandler
	callbackHandler *handlers.CallbackHandler
	paymentHandler  *handlers.PaymentHandler
	adminHandler    *handlers.AdminHandler
	defaultHandler  *handlers.DefaultHandler
	limiter         *middleware.RateLimiter // nil — без ограничений
}

// NewDispatcher создает новый диспетчер обновлений
func NewDispatcher(svc *service.Service, gen *generator.TemplateGenerator, limiter *middleware.RateLimiter) *Dispatcher {
	bookHandler := handlers.NewBookHandler(svc)
	return &Dispatcher{
		limiter:         limiter,
		startHandler:    handlers.NewStartHandler(svc),
		formHandler:     handlers.NewFormHandler(svc),
		bookHandler:     bookHandler,
		callbackHandler: handlers.NewCallbackHandler(svc, bookHandler),
		paymentHandler:  handlers.NewPaymentHandler(svc),
		adminHandler:    handlers.NewAdminHandler(svc, gen),
		defaultHandler:  handlers.NewDefaultHandler(svc),
	}
}

// HandleUpdate обрабатывает входящее обновление от Telegram
func (d *Dispatcher) HandleUpdate(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	if d.limiter != nil {
		if chatID, ok := updateChatID(update); ok && !d.limiter.AllowChat(chatID) {
			metrics.RecordUpdate("throttled", "dropped")
			return
		}
	}

	// Платежи приходят отдельными типами обновлений
	if update.PreCheckoutQuery != nil {
		metrics.RecordUpdate("pre_checkout", "ok")
		d.paymentHandler.HandlePreCheckout(ctx, bot, update)
		return
	}

	if update.CallbackQuery != nil {
		metrics.RecordUpdate("callback", "ok")
		d.callbackHandler.Handle(ctx, bot, update)
		return
	}

	msg := update.Message
	if msg == nil {
		return
	}

	if msg.SuccessfulPayment != nil {
		metrics.RecordUpdate("payment", "ok")
		d.paymentHandler.HandleSuccessfulPayment(ctx, bot, update)
		return
	}

	if msg.Text != "" {
		switch command(msg.Text) {
		case "/start", "/help":
			metrics.RecordUpdate("start", "ok")
			d.startHandler.Handle(ctx, bot, update)
			return
		case "/anketa":
			metrics.RecordUpdate("form", "ok")
			d.formHandler.Start(ctx, bot, update)
			return
		case "/book":
			metrics.RecordUpdate("book", "ok")
			d.bookHandler.Handle(ctx, bot, update)
			return
		case "/addslot":
			metrics.RecordUpdate("admin", "ok")
			d.adminHandler.HandleAddSlot(ctx, bot, update)
			return
		case "/regen":
			metrics.RecordUpdate("admin", "ok")
			d.adminHandler.HandleRegen(ctx, bot, update)
			return
		}

		// Текст вне команд может быть шагом анкеты
		if d.formHandler.HandleText(ctx, bot, update) {
			metrics.RecordUpdate("form", "ok")
			return
		}
	}

	metrics.RecordUpdate("default", "ok")
	d.defaultHandler.Handle(ctx, bot, update)
}

// updateChatID достает chat_id из обновления. Pre-checkout запросы
// не троттлим: Telegram ждет ответ в течение 10 секунд
func updateChatID(update *models.Update) (int64, bool) {
	switch {
	case update.PreCheckoutQuery != nil:
		return 0, false
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID, true
	}
	return 0, false
}

// command выделяет команду из текста сообщения, отбрасывая
// аргументы и упоминание бота ("/book@consult_bot")
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return cmd
}
