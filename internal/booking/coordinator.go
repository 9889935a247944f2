package booking

import (
	"context"
	"time"

	"telegram_consult_bot/internal/storage"
	"telegram_consult_bot/internal/storage/models"
	"telegram_consult_bot/pkg/errors"
	"telegram_consult_bot/pkg/logger"
	"telegram_consult_bot/pkg/metrics"
)

// Coordinator — единственная точка входа, через которую диалоговый слой
// превращает выбор слота в бронирование
type Coordinator struct {
	store  storage.Storage
	logger *logger.Logger
}

// NewCoordinator создает координатор резервирования
func NewCoordinator(store storage.Storage, log *logger.Logger) *Coordinator {
	return &Coordinator{store: store, logger: log}
}

// Reserve пытается захватить слот и создать бронирование.
// Захват и создание записи вместе должны вести себя атомарно: если запись
// в журнал не удалась, захват компенсируется освобождением слота —
// занятый слот без бронирования недопустим.
// Проигранная гонка возвращается как errors.ErrSlotUnavailable:
// вызывающий перепоказывает обновленный список
func (c *Coordinator) Reserve(ctx context.Context, userChatID, slotID int64) (*models.Booking, error) {
	if err := c.store.ClaimSlot(ctx, slotID); err != nil {
		if e, ok := errors.AsBotError(err); ok && e.Code == errors.ErrSlotUnavailable.Code {
			metrics.RecordClaim(false)
			return nil, errors.ErrSlotUnavailable
		}
		return nil, err
	}
	metrics.RecordClaim(true)

	booking, err := c.store.CreateBooking(ctx, userChatID, slotID)
	if err != nil {
		c.logger.Error("booking insert failed, releasing claimed slot",
			logger.Int64("slot_id", slotID), logger.Error(err))
		if relErr := c.store.ReleaseSlot(ctx, slotID); relErr != nil {
			// Слот остался занятым без бронирования; требует ручного вмешательства
			c.logger.Error("failed to release slot after booking failure",
				logger.Int64("slot_id", slotID), logger.Error(relErr))
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	return booking, nil
}

// ListFreeSlots возвращает свободные будущие слоты для показа пользователю
func (c *Coordinator) ListFreeSlots(ctx context.Context, now time.Time, horizon time.Duration, limit int) ([]*models.Slot, error) {
	slots, err := c.store.ListFreeSlots(ctx, now, horizon, limit)
	if err != nil {
		return nil, err
	}
	metrics.FreeSlots.Set(float64(len(slots)))
	return slots, nil
}

// ConfirmPaid отмечает бронирование оплаченным по внешнему референсу
func (c *Coordinator) ConfirmPaid(ctx context.Context, reference string) (*models.Booking, error) {
	booking, err := c.store.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if err := c.store.MarkBookingPaid(ctx, booking.ID); err != nil {
		return nil, err
	}

	metrics.BookingsPaid.Inc()
	booking.Status = models.BookingPaid
	return booking, nil
}

// GetSlot возвращает слот по ID
func (c *Coordinator) GetSlot(ctx context.Context, slotID int64) (*models.Slot, error) {
	return c.store.GetSlotByID(ctx, slotID)
}

// LatestBooking возвращает последнее бронирование пользователя
func (c *Coordinator) LatestBooking(ctx context.Context, userChatID int64) (*models.Booking, bool, error) {
	return c.store.LatestBookingForUser(ctx, userChatID)
}
