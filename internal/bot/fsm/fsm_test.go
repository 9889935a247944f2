package fsm

import (
	"testing"
)

func TestSession_FullFormFlow(t *testing.T) {
	s := NewSession(100)

	if s.State() != StateIdle {
		t.Fatalf("Expected new session in Idle, got %v", s.State())
	}

	prompt := s.StartForm()
	if prompt == "" {
		t.Fatal("Expected first step prompt")
	}
	if s.State() != StateLastName {
		t.Fatalf("Expected StateLastName after StartForm, got %v", s.State())
	}

	answers := []string{
		"Иванов",
		"Иван",
		"Иванович",
		"Старший помощник",
		"Танкер",
		"12 лет",
		"Вопросы по карьере",
		"ivanov@example.com",
		"@ivanov_sea",
	}

	for i, answer := range answers {
		prompt, err := s.Next(answer)
		if err != nil {
			t.Fatalf("Step %d: unexpected error: %v", i, err)
		}
		last := i == len(answers)-1
		if last && prompt != "" {
			t.Errorf("Expected empty prompt after final step, got %q", prompt)
		}
		if !last && prompt == "" {
			t.Errorf("Step %d: expected next prompt", i)
		}
	}

	if s.State() != StateSelectingSlot {
		t.Errorf("Expected StateSelectingSlot after form, got %v", s.State())
	}

	form := s.Form()
	if form.FullName != "Иванов Иван Иванович" {
		t.Errorf("Unexpected full name: %q", form.FullName)
	}
	if form.Email != "ivanov@example.com" {
		t.Errorf("Unexpected email: %q", form.Email)
	}
	if form.Telegram != "@ivanov_sea" {
		t.Errorf("Unexpected telegram: %q", form.Telegram)
	}

	s.SlotChosen()
	if s.State() != StateSelectingPayment {
		t.Errorf("Expected StateSelectingPayment, got %v", s.State())
	}

	s.PaymentDone()
	if s.State() != StateDone {
		t.Errorf("Expected StateDone, got %v", s.State())
	}
}

func TestSession_SkippedPatronymic(t *testing.T) {
	s := NewSession(100)
	s.StartForm()

	for _, answer := range []string{"Иванов", "Иван", "-"} {
		if _, err := s.Next(answer); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if s.Form().FullName != "Иванов Иван" {
		t.Errorf("Expected patronymic to be skipped, got %q", s.Form().FullName)
	}
}

func TestSession_InvalidInputKeepsState(t *testing.T) {
	s := NewSession(100)
	s.StartForm()

	// Доходим до шага e-mail
	for _, answer := range []string{"Иванов", "Иван", "-", "Капитан", "Балкер", "20 лет", "Вопросы"} {
		if _, err := s.Next(answer); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if s.State() != StateEmail {
		t.Fatalf("Expected StateEmail, got %v", s.State())
	}

	prompt, err := s.Next("not-an-email")
	if err == nil {
		t.Error("Expected validation error for bad email")
	}
	if prompt == "" {
		t.Error("Expected the same prompt to be returned")
	}
	if s.State() != StateEmail {
		t.Errorf("Expected state to stay on StateEmail, got %v", s.State())
	}

	// Корректный ввод продвигает автомат
	if _, err := s.Next("ok@example.com"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.State() != StateTelegram {
		t.Errorf("Expected StateTelegram, got %v", s.State())
	}

	for _, bad := range []string{"ivanov", "@ab", "@bad handle"} {
		if _, err := s.Next(bad); err == nil {
			t.Errorf("Expected validation error for %q", bad)
		}
	}
	if _, err := s.Next("@good_handle"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.State() != StateSelectingSlot {
		t.Errorf("Expected StateSelectingSlot, got %v", s.State())
	}
}

func TestSession_TextOutsideForm(t *testing.T) {
	s := NewSession(100)

	if s.Collecting() {
		t.Error("Idle session must not be collecting")
	}
	if _, err := s.Next("произвольный текст"); err == nil {
		t.Error("Expected error for input outside the form")
	}

	s.StartForm()
	if !s.Collecting() {
		t.Error("Session must be collecting after StartForm")
	}

	s.state = StateSelectingSlot
	if s.Collecting() {
		t.Error("Slot selection is not a form step")
	}
}

func TestSession_RestartResetsForm(t *testing.T) {
	s := NewSession(100)
	s.StartForm()
	if _, err := s.Next("Иванов"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s.StartForm()
	if s.Form().FullName != "" {
		t.Errorf("Expected form to be reset, got %q", s.Form().FullName)
	}
	if s.State() != StateLastName {
		t.Errorf("Expected StateLastName after restart, got %v", s.State())
	}
}

func TestStore_GetAndReset(t *testing.T) {
	store := NewStore()

	first := store.Get(100)
	if first.ChatID != 100 {
		t.Errorf("Expected ChatID 100, got %d", first.ChatID)
	}

	if store.Get(100) != first {
		t.Error("Expected the same session for the same chat")
	}
	if store.Get(200) == first {
		t.Error("Expected different sessions for different chats")
	}

	store.Reset(100)
	if store.Get(100) == first {
		t.Error("Expected a fresh session after Reset")
	}
}
