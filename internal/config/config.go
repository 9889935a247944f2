package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Источники слотов
const (
	SlotSourceTemplate = "template"
	SlotSourceCalendar = "calendar"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Schedule ScheduleConfig `json:"schedule"`
	Google   GoogleConfig   `json:"google"`
}

// TelegramConfig содержит настройки Telegram бота
type TelegramConfig struct {
	Token         string `json:"token"`
	WebhookURL    string `json:"webhook_url"`
	AdminChatID   int64  `json:"admin_chat_id"`
	ProviderToken string `json:"provider_token"`
	SessionPrice  int    `json:"session_price"` // в минорных единицах валюты
	Currency      string `json:"currency"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig содержит настройки базы данных
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ScheduleConfig содержит настройки генерации и показа слотов
type ScheduleConfig struct {
	Timezone        string        `json:"timezone"`
	SlotSource      string        `json:"slot_source"` // template или calendar
	StartHour       int           `json:"start_hour"`
	EndHour         int           `json:"end_hour"`
	Weekdays        []time.Weekday `json:"weekdays"`
	DaysAhead       int           `json:"days_ahead"`
	SessionDuration time.Duration `json:"session_duration"`
	GenerateEvery   time.Duration `json:"generate_every"`
	ListHorizon     time.Duration `json:"list_horizon"` // 0 — без ограничения
	ListLimit       int           `json:"list_limit"`
	BookingTTL      time.Duration `json:"booking_ttl"` // 0 — неоплаченные брони не истекают
	NotifyBefore    time.Duration `json:"notify_before"` // за сколько до начала напоминать
	CandidateTimes  []string      `json:"candidate_times"` // локальные HH:MM для calendar-политики
}

// GoogleConfig содержит настройки интеграций с Google
type GoogleConfig struct {
	ServiceAccountJSON string `json:"-"`
	CredentialsFile    string `json:"credentials_file"`
	SheetID            string `json:"sheet_id"`
	WorksheetName      string `json:"worksheet_name"`
	CalendarID         string `json:"calendar_id"`
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Telegram: TelegramConfig{
			Token:         os.Getenv("BOT_TOKEN"),
			WebhookURL:    os.Getenv("WEBHOOK_URL"),
			AdminChatID:   getEnvAsInt64("ADMIN_CHAT_ID", 0),
			ProviderToken: os.Getenv("PROVIDER_TOKEN"),
			SessionPrice:  getEnvAsInt("SESSION_PRICE", 5000),
			Currency:      getEnv("CURRENCY", "EUR"),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_FILE", "bot.db"),
		},
		Schedule: ScheduleConfig{
			Timezone:        getEnv("TZ", "Europe/Stockholm"),
			SlotSource:      getEnv("SLOT_SOURCE", SlotSourceTemplate),
			StartHour:       getEnvAsInt("WORK_START_HOUR", 10),
			EndHour:         getEnvAsInt("WORK_END_HOUR", 18),
			Weekdays:        parseWeekdays(getEnv("WORK_WEEKDAYS", "Mon,Tue,Wed,Thu,Fri")),
			DaysAhead:       getEnvAsInt("SCHEDULE_DAYS", 7),
			SessionDuration: time.Duration(getEnvAsInt("MEETING_DURATION_MIN", 60)) * time.Minute,
			GenerateEvery:   getEnvAsDuration("GENERATE_EVERY", 1*time.Hour),
			ListHorizon:     getEnvAsDuration("LIST_HORIZON", 0),
			ListLimit:       getEnvAsInt("LIST_LIMIT", 20),
			BookingTTL:      getEnvAsDuration("BOOKING_TTL", 0),
			NotifyBefore:    getEnvAsDuration("NOTIFY_BEFORE", 1*time.Hour),
			CandidateTimes:  splitNonEmpty(getEnv("CANDIDATE_TIMES", "10:00,14:00,18:00")),
		},
		Google: GoogleConfig{
			ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
			CredentialsFile:    os.Getenv("GOOGLE_CREDENTIALS_FILE"),
			SheetID:            os.Getenv("GOOGLE_SHEET_ID"),
			WorksheetName:      getEnv("SHEET_WORKSHEET_NAME", "Form Responses"),
			CalendarID:         os.Getenv("GOOGLE_CALENDAR_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации.
// Ядро резервирования должно работать без настроенных интеграций Google,
// поэтому их отсутствие не является ошибкой.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	if c.Schedule.SlotSource != SlotSourceTemplate && c.Schedule.SlotSource != SlotSourceCalendar {
		return fmt.Errorf("SLOT_SOURCE must be %q or %q", SlotSourceTemplate, SlotSourceCalendar)
	}

	if c.Schedule.SlotSource == SlotSourceCalendar && c.Google.CalendarID == "" {
		return fmt.Errorf("GOOGLE_CALENDAR_ID is required when SLOT_SOURCE=calendar")
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid TZ %q: %w", c.Schedule.Timezone, err)
	}

	if c.Schedule.StartHour < 0 || c.Schedule.StartHour > 23 {
		return fmt.Errorf("WORK_START_HOUR must be in [0, 23]")
	}
	if c.Schedule.EndHour <= c.Schedule.StartHour || c.Schedule.EndHour > 24 {
		return fmt.Errorf("WORK_END_HOUR must be in (WORK_START_HOUR, 24]")
	}

	if c.Schedule.SessionDuration <= 0 {
		return fmt.Errorf("MEETING_DURATION_MIN must be positive")
	}
	if c.Schedule.DaysAhead <= 0 {
		return fmt.Errorf("SCHEDULE_DAYS must be positive")
	}
	if c.Schedule.ListLimit <= 0 {
		return fmt.Errorf("LIST_LIMIT must be positive")
	}
	if len(c.Schedule.Weekdays) == 0 {
		return fmt.Errorf("WORK_WEEKDAYS must name at least one weekday")
	}

	for _, t := range c.Schedule.CandidateTimes {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("invalid CANDIDATE_TIMES entry %q (expected HH:MM): %w", t, err)
		}
	}

	return nil
}

// WorkdayAllowed проверяет, входит ли день недели в рабочие дни
func (c *ScheduleConfig) WorkdayAllowed(d time.Weekday) bool {
	for _, wd := range c.Weekdays {
		if wd == d {
			return true
		}
	}
	return false
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// parseWeekdays разбирает список дней недели вида "Mon,Tue,Fri".
// Неизвестные значения игнорируются
func parseWeekdays(s string) []time.Weekday {
	var days []time.Weekday
	for _, part := range splitNonEmpty(s) {
		if wd, ok := weekdayNames[strings.ToLower(part)]; ok {
			days = append(days, wd)
		}
	}
	return days
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvAsInt получает переменную окружения как число
func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvAsInt64 получает переменную окружения как int64
func getEnvAsInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvAsDuration получает переменную окружения как duration
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
