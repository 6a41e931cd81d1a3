package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"netvoya-bot/internal/request"
	"netvoya-bot/internal/storage"
	"netvoya-bot/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var _ request.RequesterProvider = (*Bot)(nil)

// handleSubmit runs the terminal wizard action: payload assembly, the
// backend call, local bookkeeping and admin notification. A failed
// submission leaves the session in the distribution step with every
// entered value intact.
func (b *Bot) handleSubmit(ctx context.Context, chatID int64) {
	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}
	if state.Step != request.StepDistribution {
		return
	}

	if !state.CanSubmit() {
		remaining := state.Remaining()
		if remaining > 0 {
			b.sendError(chatID, fmt.Sprintf("You still have %d tokens to assign.", remaining))
		} else {
			b.sendError(chatID, fmt.Sprintf("You over-assigned by %d tokens.", -remaining))
		}
		b.showDistribution(ctx, chatID, state)
		return
	}

	order, err := request.BuildOrder(state, b.policy, b.Requester(ctx, chatID))
	if err != nil {
		b.logger.Error("Failed to build order payload",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Could not prepare your request. Please review the distribution.")
		return
	}

	backendID, err := b.api.SubmitInventoryRequest(ctx, order)
	if err != nil {
		b.logger.Error("Failed to submit inventory request",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		// Backend rejections carry a user-readable message; show it
		// verbatim and keep the session for a retry.
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			b.sendError(chatID, fmt.Sprintf("Submission failed: %s. Your request is unchanged — fix and submit again.", apiErr.Error()))
		} else {
			b.sendError(chatID, "Submission failed: the backend is unreachable. Your request is unchanged — try again in a moment.")
		}
		b.showDistribution(ctx, chatID, state)
		return
	}

	state.Step = request.StepSubmitted
	state.SubmittedID = backendID
	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.logger.Error("Failed to persist submitted state",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	record := b.recordRequest(ctx, order, backendID)

	msg := tgbotapi.NewMessage(chatID, b.formatSubmitConfirmation(order, backendID))
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = b.createSubmittedKeyboard()
	b.sendMessage(msg)

	go b.NotifyAdminNewRequest(context.WithoutCancel(ctx), order, record)
}

// recordRequest keeps the local audit copy. Failure here never blocks
// the partner: the backend already accepted the request.
func (b *Bot) recordRequest(ctx context.Context, order api.InventoryRequest, backendID string) *storage.InventoryRequest {
	discount := b.policy.DiscountFor(order.TotalTokens)

	record := storage.InventoryRequest{
		BackendID:       backendID,
		ChatID:          order.Requester.ChatID,
		Username:        order.Requester.Username,
		TotalTokens:     order.TotalTokens,
		TotalAmount:     order.TotalAmount,
		DiscountPercent: discount.Percent,
		DiscountLabel:   order.DiscountLabel,
		CreatedAt:       time.Now(),
	}
	for _, line := range order.Packages {
		record.Items = append(record.Items, storage.InventoryRequestItem{
			PackageID:   line.PackageID,
			PackageName: line.Name,
			Region:      line.Region,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
		})
	}

	id, err := b.storage.SaveRequest(ctx, record)
	if err != nil {
		b.logger.Error("Failed to record submitted request locally",
			zap.String("backend_id", backendID),
			zap.Error(err))
		return &record
	}
	record.ID = id
	return &record
}

func (b *Bot) formatSubmitConfirmation(order api.InventoryRequest, backendID string) string {
	var sb strings.Builder
	sb.WriteString("✅ *Inventory request submitted!*\n\n")
	if backendID != "" {
		sb.WriteString(fmt.Sprintf("Reference: `%s`\n", backendID))
	}
	sb.WriteString(fmt.Sprintf("Tokens: %d\n", order.TotalTokens))
	for _, line := range order.Packages {
		sb.WriteString(fmt.Sprintf("• %s — %d × %s = %s\n",
			line.Name, line.Quantity, formatMoney(line.UnitPrice), formatMoney(line.LineTotal)))
	}
	if order.DiscountLabel != "" {
		sb.WriteString(fmt.Sprintf("Discount applied: %s\n", order.DiscountLabel))
	}
	sb.WriteString(fmt.Sprintf("Total: %s\n\nYour tokens will be credited once the request is processed.",
		formatMoney(order.TotalAmount)))
	return sb.String()
}

// Requester resolves the best-effort identity sent with an order from
// the Telegram chat profile.
func (b *Bot) Requester(ctx context.Context, chatID int64) api.Requester {
	requester := api.Requester{ChatID: chatID}

	chat, err := b.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		b.logger.Warn("Failed to resolve requester identity",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return requester
	}

	requester.Username = chat.UserName
	if chat.Title != "" {
		requester.Company = chat.Title
	}
	return requester
}
