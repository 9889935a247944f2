package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telegram_consult_bot/internal/scheduler"
	"telegram_consult_bot/internal/storage/models"
)

// reminder привязывает таймер к адресату напоминания
type reminder struct {
	timer  *time.Timer
	chatID int64
}

// MemoryScheduler реализует планировщик напоминаний в памяти.
// Напоминания не переживают рестарт процесса: после рестарта
// их никто не перепланирует, и это осознанное упрощение
type MemoryScheduler struct {
	timers   map[int64]*reminder
	mu       sync.Mutex
	sender   scheduler.ReminderSender
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  bool
	stopOnce sync.Once
}

// NewMemoryScheduler создает новый планировщик в памяти
func NewMemoryScheduler(sender scheduler.ReminderSender) *MemoryScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &MemoryScheduler{
		timers: make(map[int64]*reminder),
		sender: sender,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule планирует напоминание пользователю о слоте
func (s *MemoryScheduler) Schedule(ctx context.Context, chatID int64, slot *models.Slot, notifyAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}

	// Отменить существующий таймер для этого слота
	if r, exists := s.timers[slot.ID]; exists {
		r.timer.Stop()
		delete(s.timers, slot.ID)
	}

	delay := time.Until(notifyAt)
	if delay <= 0 {
		// Время уже прошло: отправить немедленно
		go s.fire(chatID, slot)
		return nil
	}

	timer := time.AfterFunc(delay, func() {
		s.fire(chatID, slot)
	})

	s.timers[slot.ID] = &reminder{timer: timer, chatID: chatID}
	return nil
}

// Cancel отменяет запланированное напоминание
func (s *MemoryScheduler) Cancel(ctx context.Context, slotID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, exists := s.timers[slotID]; exists {
		r.timer.Stop()
		delete(s.timers, slotID)
	}

	return nil
}

// Stop останавливает планировщик и все таймеры
func (s *MemoryScheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.stopped = true

		for slotID, r := range s.timers {
			r.timer.Stop()
			delete(s.timers, slotID)
		}

		s.cancel()
	})

	return nil
}

// fire отправляет напоминание и убирает таймер из карты
func (s *MemoryScheduler) fire(chatID int64, slot *models.Slot) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, slot.ID)
	s.mu.Unlock()

	_ = s.sender.SendReminder(s.ctx, chatID, slot)
}

// ActiveTimers возвращает количество активных таймеров (для тестов)
func (s *MemoryScheduler) ActiveTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}
