package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"netvoya-bot/internal/config"
	"netvoya-bot/internal/pricing"
	"netvoya-bot/internal/request"
	"netvoya-bot/internal/storage"
	"netvoya-bot/pkg/api"
	"netvoya-bot/pkg/redis"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Bot struct {
	bot     *tgbotapi.BotAPI
	logger  *zap.Logger
	state   *StateStorage
	api     *api.Client
	storage *storage.PostgresStorage
	policy  *pricing.Policy
	cfg     *config.Config

	mu       sync.Mutex
	handlers map[string]func(context.Context, int64, string)
}

func New(
	token string,
	apiClient *api.Client,
	redisClient *redis.Client,
	pgStorage *storage.PostgresStorage,
	policy *pricing.Policy,
	cfg *config.Config,
	logger *zap.Logger,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	b := &Bot{
		bot:     botAPI,
		logger:  logger,
		state:   NewStateStorage(redisClient),
		api:     apiClient,
		storage: pgStorage,
		policy:  policy,
		cfg:     cfg,
	}

	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.handlers = map[string]func(context.Context, int64, string){
		request.StepQuantity:     b.handleQuantityStep,
		request.StepSelection:    b.handleSelectionStep,
		request.StepDistribution: b.handleDistributionStep,
		request.StepSubmitted:    b.handleSubmittedStep,
	}
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	go b.PollNotifications(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			return nil

		case update := <-updates:
			b.mu.Lock()
			if update.Message != nil {
				b.processMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.processCallback(ctx, update.CallbackQuery)
			}
			b.mu.Unlock()
		}
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		args := strings.Fields(msg.CommandArguments())
		b.handleCommand(ctx, chatID, msg.Command(), args)
		return
	}

	state, err := b.state.GetRequest(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get wizard state",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong, please try again")
		return
	}

	if handler, exists := b.handlers[state.Step]; exists {
		handler(ctx, chatID, msg.Text)
	} else {
		b.handleDefault(ctx, chatID)
	}
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", data))

	// Acknowledge so the client stops its spinner.
	if _, err := b.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}

	switch {
	case strings.HasPrefix(data, "toggle:"):
		b.handlePackageToggle(ctx, chatID, strings.TrimPrefix(data, "toggle:"))
	case data == "wizard:done":
		b.handleSelectionDone(ctx, chatID)
	case data == "wizard:back":
		b.handleBack(ctx, chatID)
	case data == "wizard:submit":
		b.handleSubmit(ctx, chatID)
	case data == "wizard:reset":
		b.handleReset(ctx, chatID)
	case data == "wizard:retry":
		b.handleCatalogRetry(ctx, chatID)
	default:
		b.logger.Warn("Unknown callback data",
			zap.Int64("chat_id", chatID),
			zap.String("data", data))
	}
}

func (b *Bot) isAdmin(chatID int64) bool {
	for _, id := range b.cfg.Admin.IDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}

func (b *Bot) sendError(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	b.sendMessage(msg)
}
