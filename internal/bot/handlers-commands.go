package bot

import (
	"context"
	"fmt"

	"netvoya-bot/internal/request"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleCommand(ctx context.Context, chatID int64, cmd string, args []string) {
	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.handleHelp(ctx, chatID)
	case "request":
		b.handleRequestStart(ctx, chatID)
	case "cancel":
		b.handleCancel(ctx, chatID)
	case "packages", "price", "live", "balance", "sync", "export", "stats", "requests", "order":
		b.handleAdminCommand(ctx, chatID, cmd, args)
	default:
		b.handleUnknownCommand(ctx, chatID)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	text := `Welcome to the NetVoya partner portal! 👋

Here you can request eSIM token inventory for your clients.
Volume discounts apply automatically:`

	for _, tier := range b.policy.Tiers() {
		text += fmt.Sprintf("\n• %d+ tokens — %s", tier.Threshold, tier.Label)
	}
	text += "\n\nUse /request to start an inventory request."

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = b.createMainMenuKeyboard()
	b.sendMessage(msg)
}

// handleRequestStart opens a fresh wizard session at the quantity step.
func (b *Bot) handleRequestStart(ctx context.Context, chatID int64) {
	state := request.New()
	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.logger.Error("Failed to start wizard session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong, please try again")
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"🛒 *New inventory request*\n\n"+
			"How many eSIM tokens do you need in total?\n"+
			"Minimum order: %d tokens.",
		b.cfg.Order.MinTokens))
	msg.ParseMode = "Markdown"
	b.sendMessage(msg)
}

func (b *Bot) handleCancel(ctx context.Context, chatID int64) {
	if err := b.state.ClearRequest(ctx, chatID); err != nil {
		b.logger.Error("Failed to clear state on cancel",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	msg := tgbotapi.NewMessage(chatID, "❌ Request cancelled. Use /request to start over.")
	msg.ReplyMarkup = b.createMainMenuKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	helpText := `Available commands:
	/request - Start a new inventory request
	/cancel - Cancel the current request
	/help - Show this help

	If you run into problems, contact support.`

	if b.isAdmin(chatID) {
		helpText += `

	Admin commands:
	/packages - Pricing table (incl. drafts)
	/price <id> <retail> - Update a retail price
	/live <id> on|off - Toggle live/draft
	/balance - Vendor balance
	/sync - Sync catalog with vendor
	/export - Export recorded requests to Excel
	/stats - Request statistics
	/requests [n] - Recent requests
	/order <id> - Request details`
	}

	msg := tgbotapi.NewMessage(chatID, helpText)
	b.sendMessage(msg)
}

func (b *Bot) handleDefault(ctx context.Context, chatID int64) {
	b.sendError(chatID, "I don't understand that. Use /request to start an inventory request or /help for commands.")
}

func (b *Bot) handleUnknownCommand(ctx context.Context, chatID int64) {
	b.sendError(chatID, "Unknown command. Use /help to see what I can do.")
}
