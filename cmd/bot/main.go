package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram_consult_bot/internal/booking"
	"telegram_consult_bot/internal/bot"
	"telegram_consult_bot/internal/bot/service"
	"telegram_consult_bot/internal/clock"
	"telegram_consult_bot/internal/config"
	"telegram_consult_bot/internal/generator"
	"telegram_consult_bot/internal/google"
	"telegram_consult_bot/internal/middleware"
	"telegram_consult_bot/internal/scheduler/memory"
	"telegram_consult_bot/internal/server"
	"telegram_consult_bot/internal/storage/sqlite"
	"telegram_consult_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/joho/godotenv"
)

func main() {
	// .env необязателен: в продакшене переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(logger.LevelInfo)
	appLogger.Info("configuration loaded",
		logger.String("slot_source", cfg.Schedule.SlotSource),
		logger.String("timezone", cfg.Schedule.Timezone),
	)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error("error closing storage", logger.Error(err))
		}
	}()

	clk, err := clock.New(cfg.Schedule.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}

	telegramBot, err := tgbot.New(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	// graceful shutdown по SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutdown signal received")
		cancel()
	}()

	googleClients, err := google.NewClients(ctx, cfg.Google)
	if err != nil {
		log.Fatalf("Failed to initialize Google clients: %v", err)
	}

	coordinator := booking.NewCoordinator(store, appLogger)

	var calAvailability *generator.CalendarAvailability
	if cfg.Schedule.SlotSource == config.SlotSourceCalendar {
		if googleClients == nil {
			log.Fatalf("SLOT_SOURCE=calendar requires Google credentials")
		}
		calAvailability = generator.NewCalendarAvailability(
			googleClients, clk, cfg.Schedule.CandidateTimes, cfg.Schedule.SessionDuration)
	}

	var sheets service.SheetAppender
	if googleClients != nil {
		sheets = googleClients
	}

	botService := service.NewService(telegramBot, store, coordinator, clk, cfg, calAvailability, sheets, appLogger)

	reminderScheduler := memory.NewMemoryScheduler(botService)
	defer reminderScheduler.Stop()
	botService.SetReminders(reminderScheduler)

	// генератор нужен и при calendar-политике: его использует /regen
	slotGenerator := generator.NewTemplateGenerator(store, clk, cfg.Schedule, appLogger)
	if cfg.Schedule.SlotSource == config.SlotSourceTemplate {
		go slotGenerator.Run(ctx, cfg.Schedule.GenerateEvery)
	}

	if cfg.Schedule.BookingTTL > 0 {
		sweeper := booking.NewSweeper(store, cfg.Schedule.BookingTTL, appLogger)
		go sweeper.Run(ctx)
	}

	chatLimiter := middleware.NewRateLimiter(30, time.Minute, appLogger)
	defer chatLimiter.Close()

	dispatcher := bot.NewDispatcher(botService, slotGenerator, chatLimiter)

	if err := setupWebhook(ctx, telegramBot, cfg.Telegram.WebhookURL, appLogger); err != nil {
		log.Fatalf("Failed to setup webhook: %v", err)
	}

	srv := server.New(cfg, appLogger, dispatcher, telegramBot, store)

	appLogger.Info("starting consultation bot", logger.String("port", cfg.Server.Port))
	if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	appLogger.Info("server stopped gracefully")
}

// setupWebhook переустанавливает webhook Telegram на свежий URL
func setupWebhook(ctx context.Context, b *tgbot.Bot, webhookURL string, log *logger.Logger) error {
	if _, err := b.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		log.Warn("failed to delete existing webhook", logger.Error(err))
	}

	if _, err := b.SetWebhook(ctx, &tgbot.SetWebhookParams{URL: webhookURL}); err != nil {
		return err
	}

	log.Info("webhook configured", logger.String("url", webhookURL))
	return nil
}
