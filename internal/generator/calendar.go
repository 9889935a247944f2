package generator

import (
	"context"
	"fmt"
	"time"

	"telegram_consult_bot/internal/clock"
	"telegram_consult_bot/pkg/metrics"
)

// Interval — занятый интервал [Start, End) из внешнего календаря
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps проверяет пересечение с интервалом [start, end).
// Полуинтервалы пересекаются, если ни один не кончается до начала другого
func (i Interval) Overlaps(start, end time.Time) bool {
	return end.After(i.Start) && i.End.After(start)
}

// FreeBusySource возвращает занятые интервалы календаря за период.
// Детали событий источник не раскрывает
type FreeBusySource interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]Interval, error)
}

// CalendarAvailability строит список доступных начал сеансов из
// фиксированных локальных времен-кандидатов, отфильтрованных по
// занятости внешнего календаря. Результат эфемерный: источником истины
// остается календарь, и список пересчитывается на каждый запрос
type CalendarAvailability struct {
	source     FreeBusySource
	clock      *clock.Clock
	candidates []string // локальные времена HH:MM
	duration   time.Duration
}

// NewCalendarAvailability создает календарную политику доступности
func NewCalendarAvailability(source FreeBusySource, clk *clock.Clock, candidates []string, duration time.Duration) *CalendarAvailability {
	return &CalendarAvailability{
		source:     source,
		clock:      clk,
		candidates: candidates,
		duration:   duration,
	}
}

// AvailableStarts возвращает будущие начала сеансов на ближайшие days дней,
// не пересекающиеся с занятыми интервалами календаря
func (c *CalendarAvailability) AvailableStarts(ctx context.Context, days int) ([]time.Time, error) {
	now := c.clock.Now()
	today := c.clock.Today()

	var starts []time.Time
	for d := 0; d < days; d++ {
		day := today.AddDate(0, 0, d)
		for _, hhmm := range c.candidates {
			t, err := time.Parse("15:04", hhmm)
			if err != nil {
				return nil, fmt.Errorf("invalid candidate time %q: %w", hhmm, err)
			}
			start := c.clock.At(day, t.Hour(), t.Minute())
			if start.After(now) {
				starts = append(starts, start)
			}
		}
	}

	if len(starts) == 0 {
		return nil, nil
	}

	busy, err := c.source.BusyIntervals(ctx, starts[0], starts[len(starts)-1].Add(c.duration))
	if err != nil {
		metrics.RecordUpstreamError("calendar")
		return nil, fmt.Errorf("freebusy query failed: %w", err)
	}

	var free []time.Time
	for _, start := range starts {
		end := start.Add(c.duration)
		conflict := false
		for _, b := range busy {
			if b.Overlaps(start, end) {
				conflict = true
				break
			}
		}
		if !conflict {
			free = append(free, start)
		}
	}

	return free, nil
}
