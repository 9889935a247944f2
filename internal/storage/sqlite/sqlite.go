package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"telegram_consult_bot/internal/storage/models"
	"telegram_consult_bot/pkg/errors"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeFormat — формат хранения моментов времени: RFC3339 в UTC.
// Лексикографический порядок таких строк совпадает с хронологическим,
// поэтому сравнения выполняются прямо в SQL
const timeFormat = time.RFC3339

// SQLiteStorage реализует интерфейс Storage для SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New создает новое подключение к SQLite базе данных
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite поддерживает только одно write-подключение
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	storage := &SQLiteStorage{db: db}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return storage, nil
}

// migrate выполняет миграции базы данных
func (s *SQLiteStorage) migrate() error {
	// Включаем WAL mode для лучшей конкурентности
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Включаем foreign keys
	if _, err := s.db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER UNIQUE NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_at TEXT UNIQUE NOT NULL,
			end_at TEXT NOT NULL,
			is_booked INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			user_chat_id INTEGER NOT NULL,
			slot_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'requested',
			created_at TEXT NOT NULL,
			paid_at TEXT,
			FOREIGN KEY(slot_id) REFERENCES slots(id)
		)`,
		`CREATE TABLE IF NOT EXISTS forms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_chat_id INTEGER NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			position TEXT NOT NULL DEFAULT '',
			ship_type TEXT NOT NULL DEFAULT '',
			experience TEXT NOT NULL DEFAULT '',
			questions TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			telegram TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_free ON slots(is_booked, start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_chat_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status, created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// Close закрывает подключение к базе данных
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping проверяет подключение к базе данных
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertUser сохраняет или обновляет пользователя
func (s *SQLiteStorage) UpsertUser(ctx context.Context, chatID int64, username, firstName, lastName string) error {
	query := `INSERT INTO users (chat_id, username, first_name, last_name) VALUES (?, ?, ?, ?)
			  ON CONFLICT(chat_id) DO UPDATE SET
				username = excluded.username,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				updated_at = CURRENT_TIMESTAMP`

	_, err := s.db.ExecContext(ctx, query, chatID, username, firstName, lastName)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetUserByChatID получает пользователя по chat_id
func (s *SQLiteStorage) GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, chat_id, username, first_name, last_name, created_at, updated_at
			  FROM users WHERE chat_id = ?`

	err := s.db.QueryRowContext(ctx, query, chatID).Scan(
		&user.ID, &user.ChatID, &user.Username, &user.FirstName, &user.LastName,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// InsertSlotIfAbsent создает слот, если слота с таким началом еще нет.
// Коллизия по началу — не ошибка: генератор периодически перепрокатывает
// все окно, и повторные запуски не должны дублировать слоты
func (s *SQLiteStorage) InsertSlotIfAbsent(ctx context.Context, start, end time.Time) (bool, error) {
	if !start.Before(end) {
		return false, fmt.Errorf("slot start %s is not before end %s", start, end)
	}

	query := `INSERT OR IGNORE INTO slots (start_at, end_at) VALUES (?, ?)`

	result, err := s.db.ExecContext(ctx, query, start.UTC().Format(timeFormat), end.UTC().Format(timeFormat))
	if err != nil {
		return false, fmt.Errorf("failed to insert slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// ClaimSlot атомарно переводит слот из свободного в занятый.
// Переход выражен одним условным UPDATE, который исполняет сама БД:
// при конкурентных вызовах ровно один увидит rows_affected = 1.
// Несуществующий слот неотличим от проигранной гонки — вызывающему
// в обоих случаях нужно перепоказать список
func (s *SQLiteStorage) ClaimSlot(ctx context.Context, slotID int64) error {
	query := `UPDATE slots SET is_booked = 1 WHERE id = ? AND is_booked = 0`

	result, err := s.db.ExecContext(ctx, query, slotID)
	if err != nil {
		return errors.ErrDatabase.WithError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.ErrDatabase.WithError(err)
	}

	if rows == 0 {
		return errors.ErrSlotUnavailable
	}

	return nil
}

// ReleaseSlot возвращает слот в свободное состояние.
// Используется только компенсацией координатора и чисткой просроченных
// броней — обычный поток слоты не освобождает
func (s *SQLiteStorage) ReleaseSlot(ctx context.Context, slotID int64) error {
	query := `UPDATE slots SET is_booked = 0 WHERE id = ? AND is_booked = 1`

	if _, err := s.db.ExecContext(ctx, query, slotID); err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}

	return nil
}

// ListFreeSlots возвращает свободные будущие слоты в порядке начала.
// Каждый вызов перечитывает состояние из БД; курсоров между вызовами нет
func (s *SQLiteStorage) ListFreeSlots(ctx context.Context, now time.Time, horizon time.Duration, limit int) ([]*models.Slot, error) {
	query := `SELECT id, start_at, end_at, is_booked, created_at
			  FROM slots WHERE is_booked = 0 AND start_at > ?`
	args := []interface{}{now.UTC().Format(timeFormat)}

	if horizon > 0 {
		query += ` AND start_at < ?`
		args = append(args, now.Add(horizon).UTC().Format(timeFormat))
	}

	query += ` ORDER BY start_at LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list free slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// GetSlotByID получает слот по ID
func (s *SQLiteStorage) GetSlotByID(ctx context.Context, id int64) (*models.Slot, error) {
	query := `SELECT id, start_at, end_at, is_booked, created_at FROM slots WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	slot, err := scanSlot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("slot not found")
		}
		return nil, err
	}

	return slot, nil
}

// GetSlotByStart получает слот по уникальному моменту начала
func (s *SQLiteStorage) GetSlotByStart(ctx context.Context, start time.Time) (*models.Slot, error) {
	query := `SELECT id, start_at, end_at, is_booked, created_at FROM slots WHERE start_at = ?`

	row := s.db.QueryRowContext(ctx, query, start.UTC().Format(timeFormat))
	slot, err := scanSlot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("slot not found")
		}
		return nil, err
	}

	return slot, nil
}

// CountSlots возвращает общее количество слотов
func (s *SQLiteStorage) CountSlots(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

// CreateBooking создает бронирование в статусе requested
func (s *SQLiteStorage) CreateBooking(ctx context.Context, userChatID, slotID int64) (*models.Booking, error) {
	booking := &models.Booking{
		Reference:  uuid.NewString(),
		UserChatID: userChatID,
		SlotID:     slotID,
		Status:     models.BookingRequested,
		CreatedAt:  time.Now().UTC(),
	}

	query := `INSERT INTO bookings (reference, user_chat_id, slot_id, status, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		booking.Reference, userChatID, slotID, string(booking.Status),
		booking.CreatedAt.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get booking ID: %w", err)
	}

	booking.ID = id
	return booking, nil
}

// MarkBookingPaid идемпотентно переводит бронирование в статус paid.
// Повторный вызов для уже оплаченного бронирования — no-op
func (s *SQLiteStorage) MarkBookingPaid(ctx context.Context, bookingID int64) error {
	query := `UPDATE bookings SET status = ?, paid_at = ?
			  WHERE id = ? AND status = ?`

	result, err := s.db.ExecContext(ctx, query,
		string(models.BookingPaid), time.Now().UTC().Format(timeFormat),
		bookingID, string(models.BookingRequested))
	if err != nil {
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		// Либо бронирование уже оплачено (no-op), либо его нет
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, bookingID).Scan(&status)
		if err == sql.ErrNoRows {
			return errors.ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check booking status: %w", err)
		}
		if status == string(models.BookingCancelled) {
			return fmt.Errorf("booking %d is cancelled", bookingID)
		}
	}

	return nil
}

// CancelBooking переводит бронирование в терминальный статус cancelled
func (s *SQLiteStorage) CancelBooking(ctx context.Context, bookingID int64) error {
	query := `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`

	result, err := s.db.ExecContext(ctx, query,
		string(models.BookingCancelled), bookingID, string(models.BookingRequested))
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return errors.ErrBookingNotFound
	}

	return nil
}

// GetBookingByReference получает бронирование по внешнему идентификатору
func (s *SQLiteStorage) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT id, reference, user_chat_id, slot_id, status, created_at, paid_at
			  FROM bookings WHERE reference = ?`

	booking, err := scanBooking(s.db.QueryRowContext(ctx, query, reference))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrBookingNotFound
		}
		return nil, err
	}

	return booking, nil
}

// LatestBookingForUser возвращает последнее созданное бронирование пользователя
func (s *SQLiteStorage) LatestBookingForUser(ctx context.Context, userChatID int64) (*models.Booking, bool, error) {
	query := `SELECT id, reference, user_chat_id, slot_id, status, created_at, paid_at
			  FROM bookings WHERE user_chat_id = ? ORDER BY id DESC LIMIT 1`

	booking, err := scanBooking(s.db.QueryRowContext(ctx, query, userChatID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	return booking, true, nil
}

// ListStaleRequested возвращает неоплаченные бронирования старше указанного момента
func (s *SQLiteStorage) ListStaleRequested(ctx context.Context, olderThan time.Time) ([]*models.Booking, error) {
	query := `SELECT id, reference, user_chat_id, slot_id, status, created_at, paid_at
			  FROM bookings WHERE status = ? AND created_at < ?`

	rows, err := s.db.QueryContext(ctx, query,
		string(models.BookingRequested), olderThan.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to list stale bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// SaveForm сохраняет анкету пользователя
func (s *SQLiteStorage) SaveForm(ctx context.Context, form *models.Form) error {
	query := `INSERT INTO forms (user_chat_id, full_name, position, ship_type, experience, questions, email, telegram)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		form.UserChatID, form.FullName, form.Position, form.ShipType,
		form.Experience, form.Questions, form.Email, form.Telegram)
	if err != nil {
		return fmt.Errorf("failed to save form: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get form ID: %w", err)
	}

	form.ID = id
	return nil
}

// scanner покрывает *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSlot(sc scanner) (*models.Slot, error) {
	slot := &models.Slot{}
	var startStr, endStr string

	if err := sc.Scan(&slot.ID, &startStr, &endStr, &slot.IsBooked, &slot.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan slot: %w", err)
	}

	var err error
	if slot.StartAt, err = time.Parse(timeFormat, startStr); err != nil {
		return nil, fmt.Errorf("failed to parse slot start %q: %w", startStr, err)
	}
	if slot.EndAt, err = time.Parse(timeFormat, endStr); err != nil {
		return nil, fmt.Errorf("failed to parse slot end %q: %w", endStr, err)
	}

	return slot, nil
}

func scanBooking(sc scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var status, createdStr string
	var paidStr sql.NullString

	if err := sc.Scan(&booking.ID, &booking.Reference, &booking.UserChatID,
		&booking.SlotID, &status, &createdStr, &paidStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	booking.Status = models.BookingStatus(status)

	var err error
	if booking.CreatedAt, err = time.Parse(timeFormat, createdStr); err != nil {
		return nil, fmt.Errorf("failed to parse booking created_at %q: %w", createdStr, err)
	}

	if paidStr.Valid {
		paidAt, err := time.Parse(timeFormat, paidStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse booking paid_at %q: %w", paidStr.String, err)
		}
		booking.PaidAt = &paidAt
	}

	return booking, nil
}
