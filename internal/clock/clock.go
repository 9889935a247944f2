package clock

import (
	"fmt"
	"time"
)

// Clock преобразует локальное время визита в универсальные моменты и обратно.
// Все времена в хранилище — UTC; локальная таймзона нужна только
// для построения кандидатов и показа пользователю
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New создает Clock для указанной таймзоны
func New(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixed создает Clock с фиксированным "сейчас" для тестов
func NewFixed(loc *time.Location, now time.Time) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return now }}
}

// Now возвращает текущий момент в UTC
func (c *Clock) Now() time.Time {
	return c.now().UTC()
}

// Location возвращает локальную таймзону
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Today возвращает локальную дату текущего дня (полночь локального времени)
func (c *Clock) Today() time.Time {
	local := c.now().In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// At строит универсальный момент из локальной даты и времени суток
func (c *Clock) At(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, c.loc).UTC()
}

// ToLocal переводит универсальный момент в локальную таймзону
func (c *Clock) ToLocal(t time.Time) time.Time {
	return t.In(c.loc)
}

// ParseLocal разбирает локальные дату и время ("2006-01-02", "15:04")
// и возвращает универсальный момент
func (c *Clock) ParseLocal(date, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, c.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
