package fsm

import (
	"regexp"
	"strings"
	"sync"

	"telegram_consult_bot/internal/storage/models"
	"telegram_consult_bot/pkg/errors"
)

// State — состояние диалоговой сессии
type State int

const (
	StateIdle State = iota
	StateLastName
	StateFirstName
	StatePatronymic
	StatePosition
	StateShipType
	StateExperience
	StateQuestions
	StateEmail
	StateTelegram
	StateSelectingSlot
	StateSelectingPayment
	StateDone
)

var (
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	telegramRe = regexp.MustCompile(`^@[A-Za-z0-9_]{5,32}$`)
)

// step описывает один шаг анкеты: подсказку, валидацию и запись ответа
type step struct {
	state    State
	prompt   string
	validate func(string) error
	assign   func(*models.Form, string)
}

var formSteps = []step{
	{
		state:  StateLastName,
		prompt: "Введите вашу фамилию:",
		assign: func(f *models.Form, v string) { f.FullName = v },
	},
	{
		state:  StateFirstName,
		prompt: "Введите ваше имя:",
		assign: func(f *models.Form, v string) { f.FullName = joinName(f.FullName, v) },
	},
	{
		state:  StatePatronymic,
		prompt: "Введите ваше отчество (если нет — поставьте '-'):",
		assign: func(f *models.Form, v string) {
			if v != "-" {
				f.FullName = joinName(f.FullName, v)
			}
		},
	},
	{
		state:  StatePosition,
		prompt: "Укажите вашу текущую должность на судне:",
		assign: func(f *models.Form, v string) { f.Position = v },
	},
	{
		state:  StateShipType,
		prompt: "Укажите тип судна (например: танкер, балкер, контейнеровоз):",
		assign: func(f *models.Form, v string) { f.ShipType = v },
	},
	{
		state:  StateExperience,
		prompt: "Ваш опыт работы (в годах или кратко):",
		assign: func(f *models.Form, v string) { f.Experience = v },
	},
	{
		state:  StateQuestions,
		prompt: "Какие вопросы вы хотели бы обсудить на консультации?",
		assign: func(f *models.Form, v string) { f.Questions = v },
	},
	{
		state:  StateEmail,
		prompt: "Введите ваш e-mail:",
		validate: func(v string) error {
			if !emailRe.MatchString(v) {
				return errors.ErrInvalidEmail
			}
			return nil
		},
		assign: func(f *models.Form, v string) { f.Email = v },
	},
	{
		state:  StateTelegram,
		prompt: "Введите ваш ник в Telegram (например, @your_username):",
		validate: func(v string) error {
			if !telegramRe.MatchString(v) {
				return errors.ErrInvalidTelegramHandle
			}
			return nil
		},
		assign: func(f *models.Form, v string) { f.Telegram = v },
	},
}

// Session — конечный автомат одной диалоговой сессии.
// Автомат не знает о транспорте: обработчики передают ему текст
// и получают следующую подсказку
type Session struct {
	ChatID int64

	state State
	form  models.Form
}

// NewSession создает сессию в состоянии Idle
func NewSession(chatID int64) *Session {
	return &Session{ChatID: chatID, state: StateIdle, form: models.Form{UserChatID: chatID}}
}

// State возвращает текущее состояние
func (s *Session) State() State {
	return s.state
}

// Form возвращает собранную анкету
func (s *Session) Form() *models.Form {
	return &s.form
}

// StartForm сбрасывает сессию и начинает анкету.
// Возвращает подсказку первого шага
func (s *Session) StartForm() string {
	s.form = models.Form{UserChatID: s.ChatID}
	s.state = formSteps[0].state
	return formSteps[0].prompt
}

// Next — единственная функция перехода автомата для текстового ввода.
// На шаге анкеты валидирует и записывает ответ; при ошибке валидации
// состояние не меняется и та же подсказка возвращается повторно.
// По завершении анкеты автомат переходит в выбор слота
func (s *Session) Next(input string) (string, error) {
	input = strings.TrimSpace(input)

	idx := s.stepIndex()
	if idx < 0 {
		return "", errors.New("UNEXPECTED_INPUT", "сессия не ожидает текстового ввода")
	}

	st := formSteps[idx]
	if st.validate != nil {
		if err := st.validate(input); err != nil {
			return st.prompt, err
		}
	}
	st.assign(&s.form, input)

	if idx+1 < len(formSteps) {
		s.state = formSteps[idx+1].state
		return formSteps[idx+1].prompt, nil
	}

	s.state = StateSelectingSlot
	return "", nil
}

// SlotChosen переводит автомат от выбора слота к оплате
func (s *Session) SlotChosen() {
	s.state = StateSelectingPayment
}

// PaymentDone завершает сессию
func (s *Session) PaymentDone() {
	s.state = StateDone
}

// Collecting проверяет, находится ли автомат на шаге анкеты
func (s *Session) Collecting() bool {
	return s.stepIndex() >= 0
}

func (s *Session) stepIndex() int {
	for i, st := range formSteps {
		if st.state == s.state {
			return i
		}
	}
	return -1
}

func joinName(base, add string) string {
	if base == "" {
		return add
	}
	return base + " " + add
}

// Store хранит сессии по chat_id. Сессии живут в памяти процесса:
// потеря процесса просто начинает диалог заново
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore создает хранилище сессий
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get возвращает сессию чата, создавая ее при первом обращении
func (st *Store) Get(chatID int64) *Session {
	st.mu.RLock()
	s, ok := st.sessions[chatID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.sessions[chatID]; ok {
		return s
	}
	s = NewSession(chatID)
	st.sessions[chatID] = s
	return s
}

// Reset удаляет сессию чата
func (st *Store) Reset(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
}
