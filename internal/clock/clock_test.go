package clock

import (
	"testing"
	"time"
)

func stockholm(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Fatalf("Failed to load timezone: %v", err)
	}
	return loc
}

func TestNew_UnknownTimezone(t *testing.T) {
	if _, err := New("No/Such_Zone"); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}

func TestAt_ConvertsLocalToUTC(t *testing.T) {
	loc := stockholm(t)
	clk := NewFixed(loc, time.Date(2026, 1, 6, 8, 0, 0, 0, loc))

	day := time.Date(2026, 1, 6, 0, 0, 0, 0, loc)
	got := clk.At(day, 14, 30)

	// Зимой Стокгольм — UTC+1
	want := time.Date(2026, 1, 6, 13, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got.Location() != time.UTC {
		t.Error("Expected result in UTC")
	}
}

func TestAt_SummerTime(t *testing.T) {
	loc := stockholm(t)
	clk := NewFixed(loc, time.Date(2026, 7, 6, 8, 0, 0, 0, loc))

	day := time.Date(2026, 7, 6, 0, 0, 0, 0, loc)
	got := clk.At(day, 14, 0)

	// Летом — UTC+2
	want := time.Date(2026, 7, 6, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestToday_IsLocalMidnight(t *testing.T) {
	loc := stockholm(t)
	// 23:30 местного — по UTC уже следующий день не наступил
	clk := NewFixed(loc, time.Date(2026, 1, 6, 23, 30, 0, 0, loc))

	today := clk.Today()
	if today.Hour() != 0 || today.Minute() != 0 {
		t.Errorf("Expected local midnight, got %v", today)
	}
	if today.Day() != 6 {
		t.Errorf("Expected local day 6, got %d", today.Day())
	}
}

func TestNow_ReturnsUTC(t *testing.T) {
	loc := stockholm(t)
	fixed := time.Date(2026, 1, 6, 12, 0, 0, 0, loc)
	clk := NewFixed(loc, fixed)

	now := clk.Now()
	if now.Location() != time.UTC {
		t.Error("Expected Now in UTC")
	}
	if !now.Equal(fixed) {
		t.Errorf("Expected %v, got %v", fixed, now)
	}
}

func TestParseLocal(t *testing.T) {
	loc := stockholm(t)
	clk := NewFixed(loc, time.Date(2026, 1, 6, 8, 0, 0, 0, loc))

	got, err := clk.ParseLocal("2026-01-06", "14:30")
	if err != nil {
		t.Fatalf("ParseLocal failed: %v", err)
	}
	want := time.Date(2026, 1, 6, 13, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if _, err := clk.ParseLocal("06.01.2026", "14:30"); err == nil {
		t.Error("Expected error for wrong date format")
	}
	if _, err := clk.ParseLocal("2026-01-06", "25:00"); err == nil {
		t.Error("Expected error for impossible time")
	}
}

func TestToLocal_RoundTrip(t *testing.T) {
	loc := stockholm(t)
	clk := NewFixed(loc, time.Date(2026, 1, 6, 8, 0, 0, 0, loc))

	utc := time.Date(2026, 1, 6, 13, 30, 0, 0, time.UTC)
	local := clk.ToLocal(utc)

	if local.Hour() != 14 || local.Minute() != 30 {
		t.Errorf("Expected 14:30 local, got %02d:%02d", local.Hour(), local.Minute())
	}
	if !local.Equal(utc) {
		t.Error("Expected the same instant in another zone")
	}
}
