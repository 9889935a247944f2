package models

import "time"

// Статусы бронирования
type BookingStatus string

const (
	BookingRequested BookingStatus = "requested"
	BookingPaid      BookingStatus = "paid"
	BookingCancelled BookingStatus = "cancelled"
)

// User представляет пользователя системы
type User struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Slot представляет бронируемое временное окно.
// StartAt уникален среди всех слотов; IsBooked выставляется в true
// ровно один раз успешным захватом
type Slot struct {
	ID        int64     `json:"id" db:"id"`
	StartAt   time.Time `json:"start_at" db:"start_at"`
	EndAt     time.Time `json:"end_at" db:"end_at"`
	IsBooked  bool      `json:"is_booked" db:"is_booked"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Duration возвращает длительность слота
func (s *Slot) Duration() time.Duration {
	return s.EndAt.Sub(s.StartAt)
}

// Booking представляет заявку пользователя на слот
type Booking struct {
	ID         int64         `json:"id" db:"id"`
	Reference  string        `json:"reference" db:"reference"`
	UserChatID int64         `json:"user_chat_id" db:"user_chat_id"`
	SlotID     int64         `json:"slot_id" db:"slot_id"`
	Status     BookingStatus `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	PaidAt     *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
}

// Paid проверяет, оплачено ли бронирование
func (b *Booking) Paid() bool {
	return b.Status == BookingPaid
}

// Terminal проверяет, находится ли бронирование в терминальном статусе
func (b *Booking) Terminal() bool {
	return b.Status == BookingPaid || b.Status == BookingCancelled
}

// Form представляет заполненную анкету перед записью
type Form struct {
	ID         int64     `json:"id" db:"id"`
	UserChatID int64     `json:"user_chat_id" db:"user_chat_id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Position   string    `json:"position" db:"position"`
	ShipType   string    `json:"ship_type" db:"ship_type"`
	Experience string    `json:"experience" db:"experience"`
	Questions  string    `json:"questions" db:"questions"`
	Email      string    `json:"email" db:"email"`
	Telegram   string    `json:"telegram" db:"telegram"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
