package google

import (
	"context"
	"fmt"
	"time"

	"telegram_consult_bot/internal/config"
	"telegram_consult_bot/internal/generator"

	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

var scopes = []string{
	sheets.SpreadsheetsScope,
	calendar.CalendarReadonlyScope,
}

// Clients держит сконструированные клиенты Google API.
// Создаются один раз на старте процесса и передаются явно —
// никаких лениво инициализируемых глобальных хендлов
type Clients struct {
	calendar *calendar.Service
	sheets   *sheets.Service
	cfg      config.GoogleConfig
}

// NewClients создает клиенты по service-account credentials из конфигурации.
// Возвращает ошибку только если credentials заданы, но непригодны:
// отсутствие настроек Google — штатный режим без интеграций
func NewClients(ctx context.Context, cfg config.GoogleConfig) (*Clients, error) {
	var opts []option.ClientOption

	switch {
	case cfg.ServiceAccountJSON != "":
		creds, err := google.CredentialsFromJSON(ctx, []byte(cfg.ServiceAccountJSON), scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(scopes...))
	default:
		return nil, nil
	}

	calSvc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Clients{calendar: calSvc, sheets: sheetsSvc, cfg: cfg}, nil
}

// BusyIntervals реализует generator.FreeBusySource через freebusy-запрос
// Google Calendar. Возвращаются только непрозрачные занятые интервалы
func (c *Clients) BusyIntervals(ctx context.Context, from, to time.Time) ([]generator.Interval, error) {
	req := &calendar.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: c.cfg.CalendarID}},
	}

	resp, err := c.calendar.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query failed: %w", err)
	}

	cal, ok := resp.Calendars[c.cfg.CalendarID]
	if !ok {
		return nil, nil
	}

	intervals := make([]generator.Interval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy start %q: %w", b.Start, err)
		}
		end, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy end %q: %w", b.End, err)
		}
		intervals = append(intervals, generator.Interval{Start: start, End: end})
	}

	return intervals, nil
}

// AppendFormRow дописывает строку анкеты в рабочий лист таблицы.
// Запись best-effort: ошибка поднимается вызывающему, который логирует
// ее и уведомляет оператора, но никогда не откатывает бронирование
func (c *Clients) AppendFormRow(ctx context.Context, values []string) error {
	if c.cfg.SheetID == "" {
		return nil
	}

	row := make([]interface{}, 0, len(values)+1)
	row = append(row, time.Now().UTC().Format(time.RFC3339))
	for _, v := range values {
		row = append(row, v)
	}

	rangeName := fmt.Sprintf("%s!A1", c.cfg.WorksheetName)
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}

	_, err := c.sheets.Spreadsheets.Values.
		Append(c.cfg.SheetID, rangeName, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheet append failed: %w", err)
	}

	return nil
}
