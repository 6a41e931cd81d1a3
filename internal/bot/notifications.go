package bot

import (
	"context"
	"fmt"
	"time"

	"netvoya-bot/internal/storage"
	"netvoya-bot/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// NotifyAdminNewRequest fans a freshly submitted inventory request out
// to the configured admins and the announcement channel.
func (b *Bot) NotifyAdminNewRequest(ctx context.Context, order api.InventoryRequest, record *storage.InventoryRequest) {
	text := formatRequestNotification(order, record)

	if b.cfg.Admin.ChannelID != 0 {
		msg := tgbotapi.NewMessage(b.cfg.Admin.ChannelID, text)
		if _, err := b.bot.Send(msg); err != nil {
			b.logger.Error("Failed to send channel notification",
				zap.Int64("channel_id", b.cfg.Admin.ChannelID),
				zap.Error(err))
		}
	}

	for _, adminID := range b.cfg.Admin.IDs {
		if adminID == 0 {
			continue
		}
		msg := tgbotapi.NewMessage(adminID, text)
		if _, err := b.bot.Send(msg); err != nil {
			b.logger.Error("Failed to send admin notification",
				zap.Int64("admin_id", adminID),
				zap.Error(err))
		}
	}
}

// PollNotifications forwards the backend notification feed to admins.
// The backend is polled on a fixed cadence; the last delivered id is
// kept in redis so restarts do not replay old entries.
func (b *Bot) PollNotifications(ctx context.Context) {
	interval := b.cfg.API.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("Notification poller started",
		zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Notification poller stopped")
			return
		case <-ticker.C:
			b.deliverNotifications(ctx)
		}
	}
}

func (b *Bot) deliverNotifications(ctx context.Context) {
	cursor := b.state.NotificationCursor(ctx)

	notifications, err := b.api.GetNotifications(ctx, cursor)
	if err != nil {
		// Transient; the next tick retries.
		b.logger.Warn("Failed to fetch notifications", zap.Error(err))
		return
	}
	if len(notifications) == 0 {
		return
	}

	for _, n := range notifications {
		text := fmt.Sprintf("🔔 *%s*\n%s", n.Title, n.Message)
		for _, adminID := range b.cfg.Admin.IDs {
			if adminID == 0 {
				continue
			}
			msg := tgbotapi.NewMessage(adminID, text)
			msg.ParseMode = "Markdown"
			if _, err := b.bot.Send(msg); err != nil {
				b.logger.Error("Failed to forward notification",
					zap.Int64("admin_id", adminID),
					zap.String("notification_id", n.ID),
					zap.Error(err))
			}
		}
	}

	last := notifications[len(notifications)-1].ID
	if err := b.state.SetNotificationCursor(ctx, last); err != nil {
		b.logger.Warn("Failed to advance notification cursor",
			zap.String("cursor", last),
			zap.Error(err))
	}
}

func formatRequestNotification(order api.InventoryRequest, record *storage.InventoryRequest) string {
	ref := order.Requester.Username
	if ref == "" {
		ref = fmt.Sprintf("chat %d", order.Requester.ChatID)
	}

	text := fmt.Sprintf(
		"📦 New inventory request from @%s\n"+
			"Tokens: %d\n"+
			"Amount: %s\n",
		ref,
		order.TotalTokens,
		formatMoney(order.TotalAmount),
	)
	if order.DiscountLabel != "" {
		text += fmt.Sprintf("Discount: %s\n", order.DiscountLabel)
	}
	for _, line := range order.Packages {
		text += fmt.Sprintf("• %s (%s): %d × %s\n",
			line.Name, line.Region, line.Quantity, formatMoney(line.UnitPrice))
	}
	if record != nil && record.ID != 0 {
		text += fmt.Sprintf("Local record: #%d", record.ID)
	}
	return text
}
