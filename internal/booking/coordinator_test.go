package booking

import (
	"context"
	goerrors "errors"
	"sync"
	"testing"
	"time"

	"telegram_consult_bot/internal/storage"
	"telegram_consult_bot/internal/storage/models"
	"telegram_consult_bot/internal/storage/sqlite"
	"telegram_consult_bot/pkg/errors"
	"telegram_consult_bot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func insertSlot(t *testing.T, store storage.Storage, start time.Time) *models.Slot {
	t.Helper()

	ctx := context.Background()
	created, err := store.InsertSlotIfAbsent(ctx, start, start.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, created)

	slot, err := store.GetSlotByStart(ctx, start)
	require.NoError(t, err)
	return slot
}

func TestReserve_CreatesBookingAndBooksSlot(t *testing.T) {
	store := newTestStore(t)
	coordinator := NewCoordinator(store, logger.New(logger.LevelError))
	ctx := context.Background()

	slot := insertSlot(t, store, time.Now().UTC().Add(time.Hour))

	booking, err := coordinator.Reserve(ctx, 100, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.ID, booking.SlotID)
	assert.Equal(t, int64(100), booking.UserChatID)
	assert.Equal(t, models.BookingRequested, booking.Status)
	assert.NotEmpty(t, booking.Reference)

	reloaded, err := store.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsBooked)
}

func TestReserve_LostRace(t *testing.T) {
	store := newTestStore(t)
	coordinator := NewCoordinator(store, logger.New(logger.LevelError))
	ctx := context.Background()

	slot := insertSlot(t, store, time.Now().UTC().Add(time.Hour))

	_, err := coordinator.Reserve(ctx, 100, slot.ID)
	require.NoError(t, err)

	_, err = coordinator.Reserve(ctx, 200, slot.ID)
	assert.True(t, goerrors.Is(err, errors.ErrSlotUnavailable))

	// Слот, которого никогда не было, выглядит так же
	_, err = coordinator.Reserve(ctx, 200, 99999)
	assert.True(t, goerrors.Is(err, errors.ErrSlotUnavailable))
}

func TestReserve_ConcurrentSingleWinner(t *testing.T) {
	store := newTestStore(t)
	coordinator := NewCoordinator(store, logger.New(logger.LevelError))
	ctx := context.Background()

	slot := insertSlot(t, store, time.Now().UTC().Add(time.Hour))

	const users = 10
	var wg sync.WaitGroup
	results := make(chan error, users)

	for i := 0; i < users; i++ {
		chatID := int64(100 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coordinator.Reserve(ctx, chatID, slot.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.True(t, goerrors.Is(err, errors.ErrSlotUnavailable))
		}
	}
	assert.Equal(t, 1, wins)
}

// failingBookingStore ломает запись в журнал, чтобы проверить компенсацию
type failingBookingStore struct {
	storage.Storage
}

func (f *failingBookingStore) CreateBooking(ctx context.Context, userChatID, slotID int64) (*models.Booking, error) {
	return nil, goerrors.New("ledger write failed")
}

func TestReserve_ReleasesSlotWhenLedgerFails(t *testing.T) {
	store := newTestStore(t)
	coordinator := NewCoordinator(&failingBookingStore{Storage: store}, logger.New(logger.LevelError))
	ctx := context.Background()

	slot := insertSlot(t, store, time.Now().UTC().Add(time.Hour))

	_, err := coordinator.Reserve(ctx, 100, slot.ID)
	require.Error(t, err)

	// Захват компенсирован: слот снова свободен
	reloaded, err := store.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsBooked)
}

func TestConfirmPaid(t *testing.T) {
	store := newTestStore(t)
	coordinator := NewCoordinator(store, logger.New(logger.LevelError))
	ctx := context.Background()

	slot := insertSlot(t, store, time.Now().UTC().Add(time.Hour))
	booking, err := coordinator.Reserve(ctx, 100, slot.ID)
	require.NoError(t, err)

	paid, err := coordinator.ConfirmPaid(ctx, booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaid, paid.Status)

	_, err = coordinator.ConfirmPaid(ctx, "no-such-reference")
	assert.Error(t, err)
}

func TestSweeper_CancelsStaleAndReleasesSlot(t *testing.T) {
	store := newTestStore(t)
	coordinator := NewCoordinator(store, logger.New(logger.LevelError))
	ctx := context.Background()

	slot := insertSlot(t, store, time.Now().UTC().Add(time.Hour))
	booking, err := coordinator.Reserve(ctx, 100, slot.ID)
	require.NoError(t, err)

	// Отрицательный TTL делает только что созданную бронь протухшей
	sweeper := NewSweeper(store, -time.Hour, logger.New(logger.LevelError))
	cancelled := sweeper.SweepOnce(ctx)
	assert.Equal(t, 1, cancelled)

	reloadedSlot, err := store.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, reloadedSlot.IsBooked, "slot freed for rebooking")

	reloadedBooking, err := store.GetBookingByReference(ctx, booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, reloadedBooking.Status)
}

func TestSweeper_LeavesFreshAndPaidAlone(t *testing.T) {
	store := newTestStore(t)
	coordinator := NewCoordinator(store, logger.New(logger.LevelError))
	ctx := context.Background()

	freshSlot := insertSlot(t, store, time.Now().UTC().Add(time.Hour))
	_, err := coordinator.Reserve(ctx, 100, freshSlot.ID)
	require.NoError(t, err)

	paidSlot := insertSlot(t, store, time.Now().UTC().Add(2*time.Hour))
	paidBooking, err := coordinator.Reserve(ctx, 200, paidSlot.ID)
	require.NoError(t, err)
	_, err = coordinator.ConfirmPaid(ctx, paidBooking.Reference)
	require.NoError(t, err)

	// Большой TTL: свежая requested-бронь еще не протухла
	sweeper := NewSweeper(store, 24*time.Hour, logger.New(logger.LevelError))
	assert.Equal(t, 0, sweeper.SweepOnce(ctx))

	// Нулевая граница не трогает оплаченную бронь
	sweeper = NewSweeper(store, -time.Hour, logger.New(logger.LevelError))
	assert.Equal(t, 1, sweeper.SweepOnce(ctx), "only the fresh requested booking expires")

	reloaded, err := store.GetSlotByID(ctx, paidSlot.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsBooked, "paid booking keeps its slot")
}