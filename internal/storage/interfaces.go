package storage

import (
	"context"
	"time"

	"telegram_consult_bot/internal/storage/models"
)

// UserRepository определяет интерфейс для работы с пользователями
type UserRepository interface {
	UpsertUser(ctx context.Context, chatID int64, username, firstName, lastName string) error
	GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error)
}

// SlotRepository определяет интерфейс для работы со слотами.
// ClaimSlot — единственная операция взаимного исключения в системе:
// переход free → booked выполняется одним условным UPDATE в самой БД,
// поэтому при конкурентных вызовах ровно один из них побеждает
type SlotRepository interface {
	InsertSlotIfAbsent(ctx context.Context, start, end time.Time) (bool, error)
	ClaimSlot(ctx context.Context, slotID int64) error
	ReleaseSlot(ctx context.Context, slotID int64) error
	ListFreeSlots(ctx context.Context, now time.Time, horizon time.Duration, limit int) ([]*models.Slot, error)
	GetSlotByID(ctx context.Context, id int64) (*models.Slot, error)
	GetSlotByStart(ctx context.Context, start time.Time) (*models.Slot, error)
	CountSlots(ctx context.Context) (int, error)
}

// BookingRepository определяет интерфейс журнала бронирований
type BookingRepository interface {
	CreateBooking(ctx context.Context, userChatID, slotID int64) (*models.Booking, error)
	MarkBookingPaid(ctx context.Context, bookingID int64) error
	CancelBooking(ctx context.Context, bookingID int64) error
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	LatestBookingForUser(ctx context.Context, userChatID int64) (*models.Booking, bool, error)
	ListStaleRequested(ctx context.Context, olderThan time.Time) ([]*models.Booking, error)
}

// FormRepository определяет интерфейс для сохранения анкет
type FormRepository interface {
	SaveForm(ctx context.Context, form *models.Form) error
}

// Storage объединяет все репозитории в единый интерфейс
type Storage interface {
	UserRepository
	SlotRepository
	BookingRepository
	FormRepository
	Close() error
	Ping(ctx context.Context) error
}
