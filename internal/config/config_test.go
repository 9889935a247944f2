package config

import (
	"testing"
	"time"
)

// clearScheduleEnv сбрасывает переменные, влияющие на расписание,
// чтобы тесты не зависели от окружения машины
func clearScheduleEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOT_TOKEN", "WEBHOOK_URL", "ADMIN_CHAT_ID", "PROVIDER_TOKEN",
		"SESSION_PRICE", "CURRENCY", "PORT", "DB_FILE", "TZ",
		"SLOT_SOURCE", "WORK_START_HOUR", "WORK_END_HOUR", "WORK_WEEKDAYS",
		"SCHEDULE_DAYS", "MEETING_DURATION_MIN", "GENERATE_EVERY",
		"LIST_HORIZON", "LIST_LIMIT", "BOOKING_TTL", "NOTIFY_BEFORE",
		"CANDIDATE_TIMES", "GOOGLE_CALENDAR_ID", "GOOGLE_SHEET_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearScheduleEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Schedule.SlotSource != SlotSourceTemplate {
		t.Errorf("Expected default slot source template, got %s", cfg.Schedule.SlotSource)
	}
	if cfg.Schedule.StartHour != 10 || cfg.Schedule.EndHour != 18 {
		t.Errorf("Unexpected default work hours: %d-%d", cfg.Schedule.StartHour, cfg.Schedule.EndHour)
	}
	if cfg.Schedule.SessionDuration != time.Hour {
		t.Errorf("Expected default session duration 1h, got %v", cfg.Schedule.SessionDuration)
	}
	if len(cfg.Schedule.Weekdays) != 5 {
		t.Errorf("Expected Mon-Fri by default, got %v", cfg.Schedule.Weekdays)
	}
	if cfg.Schedule.BookingTTL != 0 {
		t.Errorf("Expected booking TTL disabled by default, got %v", cfg.Schedule.BookingTTL)
	}
	if cfg.Schedule.NotifyBefore != time.Hour {
		t.Errorf("Expected default notify-before 1h, got %v", cfg.Schedule.NotifyBefore)
	}
	if cfg.Telegram.SessionPrice != 5000 || cfg.Telegram.Currency != "EUR" {
		t.Errorf("Unexpected default price: %d %s", cfg.Telegram.SessionPrice, cfg.Telegram.Currency)
	}
}

func TestLoad_RequiresToken(t *testing.T) {
	clearScheduleEnv(t)

	if _, err := Load(); err == nil {
		t.Error("Expected error without BOT_TOKEN")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearScheduleEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("WORK_START_HOUR", "9")
	t.Setenv("WORK_END_HOUR", "15")
	t.Setenv("WORK_WEEKDAYS", "Mon,Wed")
	t.Setenv("MEETING_DURATION_MIN", "30")
	t.Setenv("BOOKING_TTL", "45m")
	t.Setenv("CANDIDATE_TIMES", "09:00, 12:30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Schedule.StartHour != 9 || cfg.Schedule.EndHour != 15 {
		t.Errorf("Unexpected work hours: %d-%d", cfg.Schedule.StartHour, cfg.Schedule.EndHour)
	}
	if cfg.Schedule.SessionDuration != 30*time.Minute {
		t.Errorf("Expected 30m session, got %v", cfg.Schedule.SessionDuration)
	}
	if cfg.Schedule.BookingTTL != 45*time.Minute {
		t.Errorf("Expected 45m booking TTL, got %v", cfg.Schedule.BookingTTL)
	}

	want := []time.Weekday{time.Monday, time.Wednesday}
	if len(cfg.Schedule.Weekdays) != len(want) {
		t.Fatalf("Expected weekdays %v, got %v", want, cfg.Schedule.Weekdays)
	}
	for i, wd := range want {
		if cfg.Schedule.Weekdays[i] != wd {
			t.Errorf("Expected weekday %v at %d, got %v", wd, i, cfg.Schedule.Weekdays[i])
		}
	}

	if len(cfg.Schedule.CandidateTimes) != 2 || cfg.Schedule.CandidateTimes[1] != "12:30" {
		t.Errorf("Unexpected candidate times: %v", cfg.Schedule.CandidateTimes)
	}
}

func TestValidate_Errors(t *testing.T) {
	clearScheduleEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")

	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad slot source", "SLOT_SOURCE", "random"},
		{"calendar without id", "SLOT_SOURCE", "calendar"},
		{"bad timezone", "TZ", "No/Such_Zone"},
		{"start hour out of range", "WORK_START_HOUR", "25"},
		{"end before start", "WORK_END_HOUR", "5"},
		{"no weekdays", "WORK_WEEKDAYS", "nonsense"},
		{"bad candidate time", "CANDIDATE_TIMES", "25:99"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			if _, err := Load(); err == nil {
				t.Errorf("Expected validation error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestValidate_CalendarSourceWithID(t *testing.T) {
	clearScheduleEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("SLOT_SOURCE", "calendar")
	t.Setenv("GOOGLE_CALENDAR_ID", "primary")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Schedule.SlotSource != SlotSourceCalendar {
		t.Errorf("Expected calendar slot source, got %s", cfg.Schedule.SlotSource)
	}
}

func TestWorkdayAllowed(t *testing.T) {
	cfg := ScheduleConfig{Weekdays: []time.Weekday{time.Monday, time.Friday}}

	if !cfg.WorkdayAllowed(time.Monday) {
		t.Error("Expected Monday to be allowed")
	}
	if cfg.WorkdayAllowed(time.Sunday) {
		t.Error("Expected Sunday to be rejected")
	}
}

func TestParseWeekdays(t *testing.T) {
	days := parseWeekdays("mon, TUE,junk,Sat")
	want := []time.Weekday{time.Monday, time.Tuesday, time.Saturday}

	if len(days) != len(want) {
		t.Fatalf("Expected %v, got %v", want, days)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("Expected %v at %d, got %v", want[i], i, days[i])
		}
	}
}
