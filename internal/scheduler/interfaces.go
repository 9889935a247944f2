package scheduler

import (
	"context"
	"time"

	"telegram_consult_bot/internal/storage/models"
)

// ReminderScheduler планирует напоминания о консультации
type ReminderScheduler interface {
	// Schedule планирует напоминание пользователю о слоте в notifyAt
	Schedule(ctx context.Context, chatID int64, slot *models.Slot, notifyAt time.Time) error

	// Cancel отменяет запланированное напоминание по слоту
	Cancel(ctx context.Context, slotID int64) error

	// Stop останавливает планировщик
	Stop() error
}

// ReminderSender отправляет напоминание пользователю
type ReminderSender interface {
	SendReminder(ctx context.Context, chatID int64, slot *models.Slot) error
}
