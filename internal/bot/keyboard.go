package bot

import (
	"fmt"

	"netvoya-bot/internal/request"
	"netvoya-bot/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BOT KEYBOARDS

func (b *Bot) createSelectionKeyboard(pkgs []api.Package, state *request.State) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(pkgs)+1)

	for _, p := range pkgs {
		label := fmt.Sprintf("%s • %s • %s", p.Name, p.Region, formatMoney(p.RetailPrice))
		if state.IsSelected(p.ID) {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "toggle:"+p.ID),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "wizard:back"),
		tgbotapi.NewInlineKeyboardButtonData("Continue ➡️", "wizard:done"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) createDistributionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "wizard:back"),
			tgbotapi.NewInlineKeyboardButtonData("✅ Submit", "wizard:submit"),
		),
	)
}

func (b *Bot) createSubmittedKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 New request", "wizard:reset"),
		),
	)
}

func (b *Bot) createCatalogRetryKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Retry", "wizard:retry"),
		),
	)
}

func (b *Bot) createMainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/request"),
			tgbotapi.NewKeyboardButton("/help"),
		),
	)
}
