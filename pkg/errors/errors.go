package errors

import (
	stderrors "errors"
	"fmt"
)

// BotError представляет ошибку бота с кодом и контекстом
type BotError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
	Context interface{} `json:"context,omitempty"`
}

// Error реализует интерфейс error
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *BotError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал
// с предопределенными ошибками независимо от обернутой причины
func (e *BotError) Is(target error) bool {
	t, ok := target.(*BotError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithError добавляет underlying ошибку
func (e *BotError) WithError(err error) *BotError {
	return &BotError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		Context: e.Context,
	}
}

// WithContext добавляет контекст к ошибке
func (e *BotError) WithContext(ctx interface{}) *BotError {
	return &BotError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Context: ctx,
	}
}

// Предопределенные ошибки
var (
	// Ошибки резервирования
	ErrSlotUnavailable = &BotError{
		Code:    "SLOT_UNAVAILABLE",
		Message: "слот занят или не существует",
	}

	ErrNoFreeSlots = &BotError{
		Code:    "NO_FREE_SLOTS",
		Message: "нет свободных слотов",
	}

	ErrBookingNotFound = &BotError{
		Code:    "BOOKING_NOT_FOUND",
		Message: "бронирование не найдено",
	}

	// Ошибки внешних сервисов
	ErrUpstreamUnavailable = &BotError{
		Code:    "UPSTREAM_UNAVAILABLE",
		Message: "внешний сервис недоступен",
	}

	ErrTelegramAPI = &BotError{
		Code:    "TELEGRAM_API",
		Message: "ошибка Telegram API",
	}

	// Системные ошибки
	ErrDatabase = &BotError{
		Code:    "DATABASE",
		Message: "ошибка базы данных",
	}

	ErrConfigurationInvalid = &BotError{
		Code:    "CONFIGURATION_INVALID",
		Message: "некорректная конфигурация",
	}

	// Ошибки валидации
	ErrInvalidSlotID = &BotError{
		Code:    "INVALID_SLOT_ID",
		Message: "некорректный ID слота",
	}

	ErrInvalidEmail = &BotError{
		Code:    "INVALID_EMAIL",
		Message: "некорректный e-mail",
	}

	ErrInvalidTelegramHandle = &BotError{
		Code:    "INVALID_TELEGRAM_HANDLE",
		Message: "некорректный ник в Telegram",
	}

	ErrInvalidDateTime = &BotError{
		Code:    "INVALID_DATETIME",
		Message: "некорректные дата или время",
	}
)

// New создает новую ошибку бота
func New(code, message string) *BotError {
	return &BotError{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает обычную ошибку в BotError
func Wrap(err error, code, message string) *BotError {
	return &BotError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AsBotError извлекает BotError из цепочки оберток
func AsBotError(err error) (*BotError, bool) {
	var botErr *BotError
	ok := stderrors.As(err, &botErr)
	return botErr, ok
}
