package keyboard

import (
	"fmt"
	"time"

	"telegram_consult_bot/internal/clock"
	"telegram_consult_bot/internal/storage/models"

	tgmodels "github.com/go-telegram/bot/models"
)

// slotLabel форматирует начало слота для кнопки в локальном времени
func slotLabel(clk *clock.Clock, start time.Time) string {
	return clk.ToLocal(start).Format("Mon, 02 Jan 15:04")
}

// SlotSelection создает inline клавиатуру выбора слота из хранилища.
// Callback несет ID слота
func SlotSelection(clk *clock.Clock, slots []*models.Slot) *tgmodels.InlineKeyboardMarkup {
	var rows [][]tgmodels.InlineKeyboardButton

	for _, s := range slots {
		btn := tgmodels.InlineKeyboardButton{
			Text:         slotLabel(clk, s.StartAt),
			CallbackData: fmt.Sprintf("SLOT:%d", s.ID),
		}
		rows = append(rows, []tgmodels.InlineKeyboardButton{btn})
	}

	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// CalendarSelection создает inline клавиатуру выбора времени из
// календарной политики. Callback несет момент начала, поскольку слот
// материализуется в хранилище только при выборе
func CalendarSelection(clk *clock.Clock, starts []time.Time) *tgmodels.InlineKeyboardMarkup {
	var rows [][]tgmodels.InlineKeyboardButton

	for _, start := range starts {
		btn := tgmodels.InlineKeyboardButton{
			Text:         slotLabel(clk, start),
			CallbackData: "CAL:" + start.UTC().Format(time.RFC3339),
		}
		rows = append(rows, []tgmodels.InlineKeyboardButton{btn})
	}

	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// PaymentSelection создает клавиатуру выбора способа оплаты,
// когда платежный провайдер не настроен
func PaymentSelection(reference string) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "Оплата по счету", CallbackData: "PAY:invoice:" + reference},
			},
			{
				{Text: "Оплата при встрече", CallbackData: "PAY:meeting:" + reference},
			},
		},
	}
}
