package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command string) {
	switch command {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.handleHelp(ctx, chatID)
	case "annuler":
		b.handleCancel(ctx, chatID)
	default:
		b.handleUnknownCommand(ctx, chatID)
	}
}

func (b *Bot) handleDefault(ctx context.Context, chatID int64) {
	b.sendError(chatID, "Je ne comprends pas cette demande. Utilisez le menu ci-dessous.")
	b.showMainMenu(ctx, chatID)
}

func (b *Bot) handleUnknownCommand(ctx context.Context, chatID int64) {
	b.sendError(chatID, "Commande inconnue. Utilisez /start pour commencer.")
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	helpText := `Commandes disponibles :
	/start - Ouvrir le menu principal
	/annuler - Abandonner le devis en cours
	/help - Afficher cette aide

	Créez un devis ligne par ligne, choisissez des produits du catalogue,
	puis enregistrez : les totaux sont recalculés automatiquement.`
	b.sendMessage(tgbotapi.NewMessage(chatID, helpText))
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.session(ctx, chatID)

	msg := tgbotapi.NewMessage(chatID, "Bienvenue dans l'application de devis ! 👋\n\nQue souhaitez-vous faire ?")
	msg.ReplyMarkup = b.createMainMenuKeyboard()
	b.sendMessage(msg)

	if err := b.state.SetStep(ctx, chatID, StepMainMenu); err != nil {
		b.logger.Error("Failed to set main menu state",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (b *Bot) handleCancel(ctx context.Context, chatID int64) {
	b.session(ctx, chatID).orch.NewQuote()
	b.sendText(chatID, "Devis abandonné.")
	b.showMainMenu(ctx, chatID)
}

func (b *Bot) showMainMenu(ctx context.Context, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Menu principal :")
	msg.ReplyMarkup = b.createMainMenuKeyboard()
	b.sendMessage(msg)

	if err := b.state.SetStep(ctx, chatID, StepMainMenu); err != nil {
		b.logger.Error("Failed to set main menu state",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (b *Bot) handleMainMenu(ctx context.Context, chatID int64, text string) {
	switch text {
	case btnNewQuote:
		b.startNewQuote(ctx, chatID)
	case btnMyQuotes:
		b.listQuotes(ctx, chatID)
	case btnProducts:
		b.listProducts(ctx, chatID)
	case btnNewProduct:
		b.startNewProduct(ctx, chatID)
	case btnBackToMenu:
		b.showMainMenu(ctx, chatID)
	default:
		b.handleDefault(ctx, chatID)
	}
}
