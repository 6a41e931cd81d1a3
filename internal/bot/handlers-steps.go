package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"netvoya-bot/internal/catalog"
	"netvoya-bot/internal/request"
	"netvoya-bot/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// fetchLiveCatalog returns the live package catalog, served from the
// short redis cache when fresh. Partners never see drafts.
func (b *Bot) fetchLiveCatalog(ctx context.Context) ([]api.Package, error) {
	if cached, ok := b.state.CachedCatalog(ctx); ok {
		return cached, nil
	}

	pkgs, err := b.api.GetPackages(ctx, false)
	if err != nil {
		return nil, err
	}

	live := catalog.Live(pkgs)
	if err := b.state.CacheCatalog(ctx, live); err != nil {
		b.logger.Warn("Failed to cache catalog", zap.Error(err))
	}
	return live, nil
}

func (b *Bot) handleQuantityStep(ctx context.Context, chatID int64, text string) {
	total, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		b.sendError(chatID, "Please enter the total number of tokens as a whole number, e.g. 250")
		return
	}

	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}

	// Below-minimum totals are kept as entered; the partner gets a
	// warning instead of a silent correction.
	if warn := state.SetTotalTokens(total, b.cfg.Order.MinTokens); warn != nil {
		if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
			b.replyStateError(chatID, err)
			return
		}
		b.sendError(chatID, fmt.Sprintf("⚠️ %s. You entered %d — please enter a larger amount.", warn.Error(), total))
		return
	}

	if err := state.Advance(b.cfg.Order.MinTokens); err != nil {
		b.sendError(chatID, err.Error())
		return
	}
	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.replyStateError(chatID, err)
		return
	}

	discount := b.policy.DiscountFor(state.TotalTokens)
	intro := fmt.Sprintf("Got it — %d tokens.", state.TotalTokens)
	if discount.Active {
		intro += fmt.Sprintf(" Your order qualifies for the %s. 🎉", discount.Label)
	}
	b.sendMessage(tgbotapi.NewMessage(chatID, intro))

	b.showSelection(ctx, chatID, state)
}

// showSelection renders the live catalog with toggle buttons, applying
// the chat's current search filter.
func (b *Bot) showSelection(ctx context.Context, chatID int64, state *request.State) {
	pkgs, err := b.fetchLiveCatalog(ctx)
	if err != nil {
		b.logger.Error("Failed to fetch catalog",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		msg := tgbotapi.NewMessage(chatID, "❌ Could not load the package catalog. Please retry.")
		msg.ReplyMarkup = b.createCatalogRetryKeyboard()
		b.sendMessage(msg)
		return
	}

	if len(pkgs) == 0 {
		msg := tgbotapi.NewMessage(chatID, "No packages are available right now. Please check back later.")
		msg.ReplyMarkup = b.createCatalogRetryKeyboard()
		b.sendMessage(msg)
		return
	}

	filtered := catalog.Filter(pkgs, state.SearchQuery)

	text := fmt.Sprintf("📦 *Select packages* (%d selected)\n\nTap to select or deselect. Send text to filter by name or region.",
		len(state.Selected))
	if state.SearchQuery != "" {
		text += fmt.Sprintf("\nFilter: _%s_ (%d of %d match, send a new filter or \"-\" to clear)",
			state.SearchQuery, len(filtered), len(pkgs))
	}
	if len(filtered) == 0 {
		text += "\n\nNothing matches this filter."
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = b.createSelectionKeyboard(filtered, state)
	b.sendMessage(msg)
}

// handleSelectionStep treats free text on the selection step as a
// catalog filter.
func (b *Bot) handleSelectionStep(ctx context.Context, chatID int64, text string) {
	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}

	query := strings.TrimSpace(text)
	if query == "-" {
		query = ""
	}
	state.SearchQuery = query

	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.replyStateError(chatID, err)
		return
	}
	b.showSelection(ctx, chatID, state)
}

func (b *Bot) handlePackageToggle(ctx context.Context, chatID int64, packageID string) {
	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}
	if state.Step != request.StepSelection {
		return
	}

	pkgs, err := b.fetchLiveCatalog(ctx)
	if err != nil {
		b.sendError(chatID, "Could not load the package catalog. Please retry.")
		return
	}

	pkg, ok := catalog.FindByID(pkgs, packageID)
	if !ok {
		b.sendError(chatID, "That package is no longer available.")
		return
	}

	state.Toggle(pkg)
	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.replyStateError(chatID, err)
		return
	}

	b.showSelection(ctx, chatID, state)
}

func (b *Bot) handleSelectionDone(ctx context.Context, chatID int64) {
	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}
	if state.Step != request.StepSelection {
		return
	}

	if err := state.Advance(b.cfg.Order.MinTokens); err != nil {
		b.sendError(chatID, err.Error())
		return
	}
	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.replyStateError(chatID, err)
		return
	}

	b.showDistribution(ctx, chatID, state)
}

// showDistribution renders the per-package quantity summary with the
// discounted line totals and the remaining token balance.
func (b *Bot) showDistribution(ctx context.Context, chatID int64, state *request.State) {
	var sb strings.Builder
	sb.WriteString("🧮 *Distribute your tokens*\n\n")
	sb.WriteString("Assign quantities with `<number> <quantity>`, e.g. `1 50`.\n\n")

	discount := b.policy.DiscountFor(state.TotalTokens)
	grandTotal := 0.0
	for i, pkg := range state.Selected {
		qty := state.Quantities[pkg.ID]
		unit := b.policy.DiscountedPrice(pkg.RetailPrice, state.TotalTokens)
		lineTotal := unit * float64(qty)
		grandTotal += lineTotal
		sb.WriteString(fmt.Sprintf("%d. %s (%s) — %d × %s = %s\n",
			i+1, pkg.Name, pkg.Region, qty, formatMoney(unit), formatMoney(lineTotal)))
	}

	sb.WriteString(fmt.Sprintf("\nRequested total: %d tokens\nAssigned: %d tokens\n",
		state.TotalTokens, state.Assigned()))

	remaining := state.Remaining()
	switch {
	case remaining > 0:
		sb.WriteString(fmt.Sprintf("Remaining to assign: %d\n", remaining))
	case remaining < 0:
		sb.WriteString(fmt.Sprintf("⚠️ Over-assigned by %d tokens — remove %d before submitting.\n",
			-remaining, -remaining))
	default:
		sb.WriteString("All tokens assigned. ✅\n")
	}

	if discount.Active {
		sb.WriteString(fmt.Sprintf("\nDiscount: %s\n", discount.Label))
	}
	sb.WriteString(fmt.Sprintf("Order total: %s", formatMoney(grandTotal)))

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = b.createDistributionKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleDistributionStep(ctx context.Context, chatID int64, text string) {
	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}

	parts := strings.Fields(text)
	if len(parts) != 2 {
		b.sendError(chatID, "Use the format `<number> <quantity>`, e.g. `1 50`")
		return
	}

	index, err := strconv.Atoi(parts[0])
	if err != nil || index < 1 || index > len(state.Selected) {
		b.sendError(chatID, fmt.Sprintf("Package number must be between 1 and %d", len(state.Selected)))
		return
	}

	qty, err := strconv.Atoi(parts[1])
	if err != nil {
		b.sendError(chatID, "Quantity must be a whole number")
		return
	}

	state.SetQuantity(state.Selected[index-1].ID, qty)
	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.replyStateError(chatID, err)
		return
	}

	b.showDistribution(ctx, chatID, state)
}

func (b *Bot) handleSubmittedStep(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "Your request has been submitted. Start a new one?")
	msg.ReplyMarkup = b.createSubmittedKeyboard()
	b.sendMessage(msg)
}

// handleBack walks one wizard step backwards without discarding
// anything the partner has already entered.
func (b *Bot) handleBack(ctx context.Context, chatID int64) {
	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}

	state.Back()
	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.replyStateError(chatID, err)
		return
	}

	switch state.Step {
	case request.StepQuantity:
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"How many eSIM tokens do you need in total? (currently %d)", state.TotalTokens))
		b.sendMessage(msg)
	case request.StepSelection:
		b.showSelection(ctx, chatID, state)
	case request.StepDistribution:
		b.showDistribution(ctx, chatID, state)
	}
}

func (b *Bot) handleReset(ctx context.Context, chatID int64) {
	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}

	state.Reset()
	if err := b.state.SaveRequest(ctx, chatID, state); err != nil {
		b.replyStateError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"🛒 *New inventory request*\n\nHow many eSIM tokens do you need in total?\nMinimum order: %d tokens.",
		b.cfg.Order.MinTokens))
	msg.ParseMode = "Markdown"
	b.sendMessage(msg)
}

func (b *Bot) handleCatalogRetry(ctx context.Context, chatID int64) {
	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.replyStateError(chatID, err)
		return
	}
	if state.Step != request.StepSelection {
		return
	}
	b.showSelection(ctx, chatID, state)
}

func (b *Bot) replyStateError(chatID int64, err error) {
	b.logger.Error("Wizard state error",
		zap.Int64("chat_id", chatID),
		zap.Error(err))
	b.sendError(chatID, "Something went wrong, please try again")
}
