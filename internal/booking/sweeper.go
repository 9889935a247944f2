package booking

import (
	"context"
	"time"

	"telegram_consult_bot/internal/storage"
	"telegram_consult_bot/pkg/logger"
	"telegram_consult_bot/pkg/metrics"
)

// Sweeper отменяет бронирования, застрявшие в статусе requested дольше TTL,
// и освобождает их слоты. Это явный visibility timeout: без него слот,
// захваченный брошенной сессией, был бы потерян навсегда.
// Выключен при TTL = 0
type Sweeper struct {
	store  storage.Storage
	ttl    time.Duration
	logger *logger.Logger
}

// NewSweeper создает чистку просроченных бронирований
func NewSweeper(store storage.Storage, ttl time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{store: store, ttl: ttl, logger: log}
}

// Run запускает периодическую чистку до отмены контекста
func (s *Sweeper) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}

	s.logger.Info("stale booking sweeper started", logger.Duration("ttl", s.ttl))

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stale booking sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce выполняет один проход чистки.
// Возвращает количество отмененных бронирований
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	stale, err := s.store.ListStaleRequested(ctx, time.Now().Add(-s.ttl))
	if err != nil {
		s.logger.Error("failed to list stale bookings", logger.Error(err))
		return 0
	}

	cancelled := 0
	for _, b := range stale {
		if err := s.store.CancelBooking(ctx, b.ID); err != nil {
			s.logger.Error("failed to cancel stale booking",
				logger.Int64("booking_id", b.ID), logger.Error(err))
			continue
		}
		if err := s.store.ReleaseSlot(ctx, b.SlotID); err != nil {
			s.logger.Error("failed to release slot of stale booking",
				logger.Int64("slot_id", b.SlotID), logger.Error(err))
			continue
		}
		cancelled++
		metrics.BookingsExpired.Inc()
		s.logger.Info("stale booking cancelled, slot released",
			logger.Int64("booking_id", b.ID), logger.Int64("slot_id", b.SlotID))
	}

	return cancelled
}
