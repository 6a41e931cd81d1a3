package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"netvoya-bot/internal/catalog"
	"netvoya-bot/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const lowBalanceThreshold = 10.0

func (b *Bot) handleAdminCommand(ctx context.Context, chatID int64, cmd string, args []string) {
	if !b.isAdmin(chatID) {
		b.handleUnknownCommand(ctx, chatID)
		return
	}

	switch cmd {
	case "packages":
		b.handlePricingTable(ctx, chatID)
	case "price":
		b.handlePriceUpdate(ctx, chatID, args)
	case "live":
		b.handleStatusToggle(ctx, chatID, args)
	case "balance":
		b.handleVendorBalance(ctx, chatID)
	case "sync":
		b.handleVendorSync(ctx, chatID)
	case "export":
		b.handleExportRequests(ctx, chatID)
	case "stats":
		b.handleRequestStats(ctx, chatID)
	case "requests":
		b.handleRecentRequests(ctx, chatID, args)
	case "order":
		b.handleRequestDetails(ctx, chatID, args)
	}
}

// handlePricingTable renders the full catalog, drafts included, with
// per-package margins. Loss rows and undefined margins are marked so
// they stand out in the flat text table.
func (b *Bot) handlePricingTable(ctx context.Context, chatID int64) {
	pkgs, err := b.api.GetPackages(ctx, true)
	if err != nil {
		b.logger.Error("Failed to fetch admin catalog", zap.Error(err))
		b.sendError(chatID, "Could not load the catalog: "+err.Error())
		return
	}

	if len(pkgs) == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "No packages found. Run /sync to pull the vendor catalog."))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💰 *Package pricing* (%d packages)\n\n", len(pkgs)))

	lossCount := 0
	for _, p := range pkgs {
		status := "🟢 live "
		if !p.IsLive {
			status = "⚪️ draft"
		}

		margin := pricing.Margin(p.WholesaleCost, p.RetailPrice)
		marginText := margin.String()
		if margin.Loss {
			marginText = "🔴 " + marginText + " LOSS"
			lossCount++
		}

		sb.WriteString(fmt.Sprintf("%s `%s`\n   %s • %sGB • %dd\n   wholesale %s → retail %s • margin %s\n",
			status, p.ID,
			p.Name, strconv.FormatFloat(p.DataLimitGB, 'f', -1, 64), p.DurationDays,
			formatMoney(p.WholesaleCost), formatMoney(p.RetailPrice), marginText))
	}

	if lossCount > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ %d package(s) selling at or below wholesale cost.", lossCount))
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"
	b.sendMessage(msg)
}

// handlePriceUpdate PATCHes a retail price. The new value is only
// announced after the backend acks; on failure the prior price stands
// and the admin can retry manually.
func (b *Bot) handlePriceUpdate(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.sendError(chatID, "Usage: /price <package_id> <retail_price>")
		return
	}

	retail, err := strconv.ParseFloat(args[1], 64)
	if err != nil || retail < 0 {
		b.sendError(chatID, "Retail price must be a non-negative number")
		return
	}
	packageID := args[0]

	if err := b.api.UpdatePackagePrice(ctx, packageID, retail); err != nil {
		b.logger.Error("Failed to update retail price",
			zap.String("package_id", packageID),
			zap.Float64("retail_price", retail),
			zap.Error(err))
		b.sendError(chatID, fmt.Sprintf("Price update failed: %s. The previous price is still in effect.", err.Error()))
		return
	}

	text := fmt.Sprintf("✅ Retail price for `%s` set to %s.", packageID, formatMoney(retail))

	// Warn immediately when the new price undercuts wholesale.
	if pkgs, err := b.api.GetPackages(ctx, true); err == nil {
		if pkg, ok := catalog.FindByID(pkgs, packageID); ok {
			if m := pricing.Margin(pkg.WholesaleCost, pkg.RetailPrice); m.Loss {
				text += fmt.Sprintf("\n🔴 This package now sells at a loss (wholesale %s).", formatMoney(pkg.WholesaleCost))
			} else {
				text += fmt.Sprintf("\nNew margin: %s.", m.String())
			}
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	b.sendMessage(msg)
}

// handleStatusToggle flips a package between live and draft, again
// reflecting the change only after the backend ack.
func (b *Bot) handleStatusToggle(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.sendError(chatID, "Usage: /live <package_id> on|off")
		return
	}

	var isLive bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "live":
		isLive = true
	case "off", "false", "draft":
		isLive = false
	default:
		b.sendError(chatID, "Usage: /live <package_id> on|off")
		return
	}
	packageID := args[0]

	if err := b.api.UpdatePackageStatus(ctx, packageID, isLive); err != nil {
		b.logger.Error("Failed to update package status",
			zap.String("package_id", packageID),
			zap.Bool("is_live", isLive),
			zap.Error(err))
		b.sendError(chatID, fmt.Sprintf("Status update failed: %s. The package keeps its previous status.", err.Error()))
		return
	}

	label := "draft"
	if isLive {
		label = "live"
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Package `%s` is now *%s*.", packageID, label))
	msg.ParseMode = "Markdown"
	b.sendMessage(msg)
}

func (b *Bot) handleVendorBalance(ctx context.Context, chatID int64) {
	balance, err := b.api.GetVendorBalance(ctx)
	if err != nil {
		b.logger.Error("Failed to fetch vendor balance", zap.Error(err))
		b.sendError(chatID, "Could not fetch the vendor balance: "+err.Error())
		return
	}

	text := fmt.Sprintf("💳 Vendor balance: %s", formatMoney(balance))
	if balance < lowBalanceThreshold {
		text += fmt.Sprintf("\n⚠️ Balance below %s — issuance will fail at $0.00. Top up the vendor account.",
			formatMoney(lowBalanceThreshold))
	}
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleVendorSync(ctx context.Context, chatID int64) {
	b.sendMessage(tgbotapi.NewMessage(chatID, "⏳ Syncing catalog with vendor..."))

	if err := b.api.SyncVendor(ctx); err != nil {
		b.logger.Error("Vendor sync failed", zap.Error(err))
		b.sendError(chatID, "Sync failed: "+err.Error())
		return
	}

	pkgs, err := b.api.GetPackages(ctx, true)
	if err != nil {
		b.sendMessage(tgbotapi.NewMessage(chatID, "✅ Sync completed, but the catalog could not be re-read. Use /packages to check."))
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID,
		fmt.Sprintf("✅ Sync completed. %d package(s) in the catalog. New packages start as draft.", len(pkgs))))
}

func (b *Bot) handleExportRequests(ctx context.Context, chatID int64) {
	filename := fmt.Sprintf("inventory_requests_%s", time.Now().Format("20060102"))
	filepath, err := b.storage.ExportRequestsToExcel(ctx, filename)
	if err != nil {
		b.logger.Error("Failed to export requests", zap.Error(err))
		b.sendError(chatID, "Failed to export requests")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filepath))
	doc.Caption = "📊 Recorded inventory requests"
	if _, err := b.bot.Send(doc); err != nil {
		b.logger.Error("Failed to send Excel file", zap.Error(err))
		b.sendError(chatID, "Failed to send exported file")
	}
}

func (b *Bot) handleRequestStats(ctx context.Context, chatID int64) {
	stats, err := b.storage.GetRequestStatistics(ctx)
	if err != nil {
		b.logger.Error("Failed to get request statistics", zap.Error(err))
		b.sendError(chatID, "Failed to load statistics")
		return
	}

	msgText := fmt.Sprintf(
		"📊 *Inventory request statistics*\n\n"+
			"Total requests: %d\n"+
			"Total tokens sold: %d\n"+
			"Total revenue: %s\n\n"+
			"Today: %d\n"+
			"Last 7 days: %d\n"+
			"Last 30 days: %d",
		stats.TotalRequests,
		stats.TotalTokens,
		formatMoney(stats.TotalRevenue),
		stats.TodayRequests,
		stats.WeekRequests,
		stats.MonthRequests,
	)

	msg := tgbotapi.NewMessage(chatID, msgText)
	msg.ParseMode = "Markdown"
	b.sendMessage(msg)
}

func (b *Bot) handleRecentRequests(ctx context.Context, chatID int64, args []string) {
	limit := 10
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	requests, err := b.storage.ListRecentRequests(ctx, limit)
	if err != nil {
		b.logger.Error("Failed to list requests", zap.Error(err))
		b.sendError(chatID, "Failed to load requests")
		return
	}

	if len(requests) == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "No inventory requests recorded yet."))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗂 Last %d request(s):\n\n", len(requests)))
	for _, req := range requests {
		who := req.Username
		if who == "" {
			who = fmt.Sprintf("chat %d", req.ChatID)
		}
		sb.WriteString(fmt.Sprintf("#%d • @%s • %d tokens • %s",
			req.ID, who, req.TotalTokens, formatMoney(req.TotalAmount)))
		if req.DiscountLabel != "" {
			sb.WriteString(" • " + req.DiscountLabel)
		}
		sb.WriteString(fmt.Sprintf(" • %s\n", req.CreatedAt.Format("02.01.2006 15:04")))
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, sb.String()))
}

func (b *Bot) handleRequestDetails(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.sendError(chatID, "Usage: /order <request_id>")
		return
	}

	requestID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.sendError(chatID, "Request id must be a number")
		return
	}

	req, err := b.storage.GetRequestByID(ctx, requestID)
	if err != nil {
		b.logger.Error("Failed to get request",
			zap.Int64("request_id", requestID),
			zap.Error(err))
		b.sendError(chatID, "Request not found")
		return
	}

	who := req.Username
	if who == "" {
		who = fmt.Sprintf("chat %d", req.ChatID)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗂 Request #%d\n", req.ID))
	if req.BackendID != "" {
		sb.WriteString(fmt.Sprintf("Backend ref: %s\n", req.BackendID))
	}
	sb.WriteString(fmt.Sprintf("Partner: @%s\nTokens: %d\n", who, req.TotalTokens))
	if req.DiscountLabel != "" {
		sb.WriteString(fmt.Sprintf("Discount: %s\n", req.DiscountLabel))
	}
	sb.WriteString("──────────\n")
	for _, item := range req.Items {
		sb.WriteString(fmt.Sprintf("• %s (%s): %d × %s = %s\n",
			item.PackageName, item.Region, item.Quantity,
			formatMoney(item.UnitPrice), formatMoney(item.LineTotal)))
	}
	sb.WriteString(fmt.Sprintf("──────────\nTotal: %s\nDate: %s",
		formatMoney(req.TotalAmount), req.CreatedAt.Format("02.01.2006 15:04")))

	b.sendMessage(tgbotapi.NewMessage(chatID, sb.String()))
}
