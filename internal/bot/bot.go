package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"devis-bot/internal/config"
	"devis-bot/internal/devis"
	"devis-bot/internal/storage"
	"devis-bot/pkg/redis"
)

type Bot struct {
	bot      *tgbotapi.BotAPI
	logger   *zap.Logger
	state    *StateStore
	storage  *storage.PostgresStorage
	cfg      *config.Config
	mu       sync.Mutex
	sessions map[int64]*session
	handlers map[string]func(context.Context, int64, string)
}

// session holds one chat's orchestrator and its collection subscriptions.
// The chat id doubles as the storage namespace (identity boundary).
type session struct {
	orch           *devis.Orchestrator
	cancelQuotes   func()
	cancelProducts func()
}

func New(
	token string,
	redisClient *redis.Client,
	pgStorage *storage.PostgresStorage,
	logger *zap.Logger,
	cfg *config.Config,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	b := &Bot{
		bot:      botAPI,
		logger:   logger,
		state:    NewStateStore(redisClient),
		storage:  pgStorage,
		cfg:      cfg,
		sessions: make(map[int64]*session),
	}

	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.handlers = map[string]func(context.Context, int64, string){
		StepMainMenu:           b.handleMainMenu,
		StepClientName:         b.handleClientName,
		StepClientAddress:      b.handleClientAddress,
		StepClientEmail:        b.handleClientEmail,
		StepQuoteNumber:        b.handleQuoteNumber,
		StepQuoteDate:          b.handleQuoteDate,
		StepTaxRate:            b.handleTaxRate,
		StepItemMenu:           b.handleItemMenu,
		StepItemSelect:         b.handleItemSelect,
		StepItemDescription:    b.handleItemField(devis.FieldDescription),
		StepItemPurchasePrice:  b.handleItemField(devis.FieldPurchasePrice),
		StepItemMargin:         b.handleItemField(devis.FieldMargin),
		StepItemQuantity:       b.handleItemField(devis.FieldQuantity),
		StepProductName:        b.handleProductName,
		StepProductDescription: b.handleProductDescription,
		StepProductPrice:       b.handleProductPrice,
		StepProductMargin:      b.handleProductMargin,
	}
}

// namespace builds the per-user storage namespace from the chat id.
func namespace(chatID int64) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// session returns the chat's orchestrator, starting the collection
// subscriptions on first use. Snapshots replace the cached lists wholesale.
func (b *Bot) session(ctx context.Context, chatID int64) *session {
	if s, ok := b.sessions[chatID]; ok {
		return s
	}

	ns := namespace(chatID)
	orch := devis.NewOrchestrator(b.storage, ns, b.cfg.DefaultTaxRate, b.logger)

	quotes, cancelQuotes := b.storage.SubscribeQuotes(ctx, ns)
	products, cancelProducts := b.storage.SubscribeProducts(ctx, ns)
	go func() {
		for snapshot := range quotes {
			orch.ReplaceQuotes(snapshot)
		}
	}()
	go func() {
		for snapshot := range products {
			orch.ReplaceProducts(snapshot)
		}
	}()

	s := &session{orch: orch, cancelQuotes: cancelQuotes, cancelProducts: cancelProducts}
	b.sessions[chatID] = s
	return s
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	defer b.teardown()

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

// teardown releases every chat's collection subscriptions.
func (b *Bot) teardown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for chatID, s := range b.sessions {
		s.cancelQuotes()
		s.cancelProducts()
		delete(b.sessions, chatID)
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, msg.Command())
		return
	}

	state, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Erreur lors du traitement de la demande")
		return
	}

	if handler, exists := b.handlers[state.Step]; exists {
		handler(ctx, chatID, msg.Text)
	} else {
		b.handleDefault(ctx, chatID)
	}
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	data := callback.Data

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", data))

	// Acknowledge so the client stops the spinner.
	if _, err := b.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}

	b.handleCallback(ctx, chatID, data)
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendError(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	b.sendMessage(msg)
}
