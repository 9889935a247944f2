package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestBotError_IsMatchesByCode(t *testing.T) {
	wrapped := ErrSlotUnavailable.WithError(fmt.Errorf("row update affected 0 rows"))

	if !goerrors.Is(wrapped, ErrSlotUnavailable) {
		t.Error("Expected wrapped error to match its sentinel by code")
	}
	if goerrors.Is(wrapped, ErrDatabase) {
		t.Error("Expected no match against a different code")
	}
	if goerrors.Is(wrapped, goerrors.New("plain")) {
		t.Error("Expected no match against a plain error")
	}
}

func TestBotError_UnwrapKeepsCause(t *testing.T) {
	cause := goerrors.New("sqlite: database is locked")
	wrapped := ErrDatabase.WithError(cause)

	if !goerrors.Is(wrapped, cause) {
		t.Error("Expected errors.Is to reach the wrapped cause")
	}
	if !strings.Contains(wrapped.Error(), "DATABASE") {
		t.Errorf("Expected code in message, got %q", wrapped.Error())
	}
	if !strings.Contains(wrapped.Error(), cause.Error()) {
		t.Errorf("Expected cause in message, got %q", wrapped.Error())
	}
}

func TestWithError_DoesNotMutateSentinel(t *testing.T) {
	_ = ErrSlotUnavailable.WithError(goerrors.New("cause"))

	if ErrSlotUnavailable.Err != nil {
		t.Error("Expected sentinel to stay untouched")
	}
}

func TestAsBotError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrSlotUnavailable)

	be, ok := AsBotError(wrapped)
	if !ok {
		t.Fatal("Expected to extract BotError from wrapped chain")
	}
	if be.Code != ErrSlotUnavailable.Code {
		t.Errorf("Expected code %s, got %s", ErrSlotUnavailable.Code, be.Code)
	}

	if _, ok := AsBotError(goerrors.New("plain")); ok {
		t.Error("Expected no BotError in a plain error")
	}
}
