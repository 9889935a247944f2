package generator

import (
	"context"
	"time"

	"telegram_consult_bot/internal/clock"
	"telegram_consult_bot/internal/config"
	"telegram_consult_bot/pkg/logger"
	"telegram_consult_bot/pkg/metrics"
)

// SlotWriter — часть хранилища, нужная генератору.
// Вставка идемпотентна, поэтому повторный прогон окна безопасен
type SlotWriter interface {
	InsertSlotIfAbsent(ctx context.Context, start, end time.Time) (bool, error)
}

// TemplateGenerator наполняет хранилище слотами по недельному шаблону:
// для каждого рабочего дня в окне [сегодня, сегодня+daysAhead] и каждого
// часа в [StartHour, EndHour) создается слот фиксированной длительности
type TemplateGenerator struct {
	store  SlotWriter
	clock  *clock.Clock
	cfg    config.ScheduleConfig
	logger *logger.Logger
}

// NewTemplateGenerator создает генератор по шаблону
func NewTemplateGenerator(store SlotWriter, clk *clock.Clock, cfg config.ScheduleConfig, log *logger.Logger) *TemplateGenerator {
	return &TemplateGenerator{
		store:  store,
		clock:  clk,
		cfg:    cfg,
		logger: log,
	}
}

// Generate прокатывает все окно генерации один раз.
// Возвращает количество реально созданных слотов
func (g *TemplateGenerator) Generate(ctx context.Context, daysAhead int) (int, error) {
	created := 0
	today := g.clock.Today()

	for d := 0; d <= daysAhead; d++ {
		day := today.AddDate(0, 0, d)
		if !g.cfg.WorkdayAllowed(day.Weekday()) {
			continue
		}

		for hour := g.cfg.StartHour; hour < g.cfg.EndHour; hour++ {
			start := g.clock.At(day, hour, 0)
			end := start.Add(g.cfg.SessionDuration)

			ok, err := g.store.InsertSlotIfAbsent(ctx, start, end)
			if err != nil {
				metrics.RecordGenerationRun("template", "error")
				return created, err
			}
			if ok {
				created++
				metrics.SlotsGenerated.Inc()
			}
		}
	}

	metrics.RecordGenerationRun("template", "ok")
	return created, nil
}

// Run периодически перепрокатывает окно генерации до отмены контекста.
// Генератор только добавляет новые свободные слоты и никогда не трогает
// занятые, поэтому не координируется с резервированием
func (g *TemplateGenerator) Run(ctx context.Context, every time.Duration) {
	g.logger.Info("slot generator started",
		logger.Int("days_ahead", g.cfg.DaysAhead),
		logger.Duration("every", every))

	// Первый прогон сразу при старте
	g.runOnce(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("slot generator stopped")
			return
		case <-ticker.C:
			g.runOnce(ctx)
		}
	}
}

func (g *TemplateGenerator) runOnce(ctx context.Context) {
	created, err := g.Generate(ctx, g.cfg.DaysAhead)
	if err != nil {
		g.logger.Error("slot generation failed", logger.Error(err))
		return
	}
	if created > 0 {
		g.logger.Info("slots generated", logger.Int("created", created))
	}
}
