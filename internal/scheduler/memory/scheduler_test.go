package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"telegram_consult_bot/internal/storage/models"
)

// recordingSender собирает отправленные напоминания
type recordingSender struct {
	mu   sync.Mutex
	sent []int64 // chatID
	done chan struct{}
}

func newRecordingSender(expected int) *recordingSender {
	return &recordingSender{done: make(chan struct{}, expected)}
}

func (r *recordingSender) SendReminder(_ context.Context, chatID int64, _ *models.Slot) error {
	r.mu.Lock()
	r.sent = append(r.sent, chatID)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingSender) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reminder")
	}
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func testSlot(id int64) *models.Slot {
	start := time.Now().UTC().Add(time.Hour)
	return &models.Slot{ID: id, StartAt: start, EndAt: start.Add(time.Hour)}
}

func TestSchedule_FiresAfterDelay(t *testing.T) {
	sender := newRecordingSender(1)
	sched := NewMemoryScheduler(sender)
	defer sched.Stop()

	err := sched.Schedule(context.Background(), 100, testSlot(1), time.Now().Add(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if sched.ActiveTimers() != 1 {
		t.Errorf("Expected 1 active timer, got %d", sched.ActiveTimers())
	}

	sender.wait(t)

	if sender.count() != 1 {
		t.Errorf("Expected 1 reminder, got %d", sender.count())
	}
	if sched.ActiveTimers() != 0 {
		t.Errorf("Expected timer to be removed after firing, got %d", sched.ActiveTimers())
	}
}

func TestSchedule_PastTimeFiresImmediately(t *testing.T) {
	sender := newRecordingSender(1)
	sched := NewMemoryScheduler(sender)
	defer sched.Stop()

	err := sched.Schedule(context.Background(), 100, testSlot(1), time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	sender.wait(t)
	if sender.count() != 1 {
		t.Errorf("Expected immediate reminder, got %d", sender.count())
	}
}

func TestSchedule_ReplacesExistingTimer(t *testing.T) {
	sender := newRecordingSender(1)
	sched := NewMemoryScheduler(sender)
	defer sched.Stop()

	slot := testSlot(1)
	ctx := context.Background()

	// Далекий таймер вытесняется близким для того же слота
	if err := sched.Schedule(ctx, 100, slot, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := sched.Schedule(ctx, 100, slot, time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if sched.ActiveTimers() != 1 {
		t.Errorf("Expected 1 active timer after replacement, got %d", sched.ActiveTimers())
	}

	sender.wait(t)
	if sender.count() != 1 {
		t.Errorf("Expected exactly 1 reminder, got %d", sender.count())
	}
}

func TestCancel_StopsReminder(t *testing.T) {
	sender := newRecordingSender(1)
	sched := NewMemoryScheduler(sender)
	defer sched.Stop()

	ctx := context.Background()
	if err := sched.Schedule(ctx, 100, testSlot(1), time.Now().Add(50*time.Millisecond)); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := sched.Cancel(ctx, 1); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if sched.ActiveTimers() != 0 {
		t.Errorf("Expected no active timers after cancel, got %d", sched.ActiveTimers())
	}

	time.Sleep(100 * time.Millisecond)
	if sender.count() != 0 {
		t.Errorf("Expected no reminders after cancel, got %d", sender.count())
	}
}

func TestStop_RejectsNewSchedules(t *testing.T) {
	sender := newRecordingSender(1)
	sched := NewMemoryScheduler(sender)

	ctx := context.Background()
	if err := sched.Schedule(ctx, 100, testSlot(1), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	if err := sched.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if sched.ActiveTimers() != 0 {
		t.Errorf("Expected all timers stopped, got %d", sched.ActiveTimers())
	}

	if err := sched.Schedule(ctx, 100, testSlot(2), time.Now().Add(time.Hour)); err == nil {
		t.Error("Expected error scheduling on a stopped scheduler")
	}

	// Повторный Stop безопасен
	if err := sched.Stop(); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}
}
