package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"devis-bot/internal/devis"
	"devis-bot/internal/export"
)

func (b *Bot) listQuotes(ctx context.Context, chatID int64) {
	quotes := b.session(ctx, chatID).orch.Quotes()
	if len(quotes) == 0 {
		b.sendText(chatID, "Aucun devis enregistré pour le moment.")
		b.showMainMenu(ctx, chatID)
		return
	}

	b.sendText(chatID, fmt.Sprintf("📋 Vos devis (%d) :", len(quotes)))
	for _, q := range quotes {
		text := fmt.Sprintf("🧾 %s — %s\n%s | Total : %s €",
			q.QuoteNumber, q.ClientName, q.QuoteDate, export.NewDetailView(q).GrandTotal)
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = b.createQuoteActionsKeyboard(q.ID)
		b.sendMessage(msg)
	}

	if err := b.state.SetStep(ctx, chatID, StepMainMenu); err != nil {
		b.logger.Error("Failed to set main menu state", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, chatID int64, data string) {
	action, payload, found := strings.Cut(data, ":")
	if !found {
		b.logger.Warn("Malformed callback data", zap.String("data", data))
		return
	}

	switch action {
	case "view":
		b.viewQuote(ctx, chatID, payload)
	case "edit":
		b.editQuote(ctx, chatID, payload)
	case "del":
		b.deleteQuote(ctx, chatID, payload)
	case "export":
		b.exportQuote(ctx, chatID, payload)
	case "pickprod":
		b.handlePickProduct(ctx, chatID, payload)
	case "prodedit":
		b.editProduct(ctx, chatID, payload)
	case "proddel":
		b.deleteProduct(ctx, chatID, payload)
	default:
		b.logger.Warn("Unknown callback action", zap.String("action", action))
	}
}

// quoteByID serves from the subscription cache, falling back to storage when
// the snapshot has not arrived yet.
func (b *Bot) quoteByID(ctx context.Context, chatID int64, id string) *devis.Quote {
	if q := b.session(ctx, chatID).orch.QuoteByID(id); q != nil {
		return q
	}
	q, err := b.storage.GetQuote(ctx, namespace(chatID), id)
	if err != nil {
		b.logger.Error("Failed to load quote",
			zap.Int64("chat_id", chatID),
			zap.String("quote_id", id),
			zap.Error(err))
		return nil
	}
	return q
}

func (b *Bot) viewQuote(ctx context.Context, chatID int64, id string) {
	q := b.quoteByID(ctx, chatID, id)
	if q == nil {
		b.sendError(chatID, "Devis introuvable.")
		return
	}

	view := export.NewDetailView(*q)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧾 Devis N° %s\n", view.QuoteNumber))
	sb.WriteString(fmt.Sprintf("Date : %s\n", view.QuoteDate))
	sb.WriteString(fmt.Sprintf("Client : %s\n", view.ClientName))
	if view.ClientAddress != "" {
		sb.WriteString(fmt.Sprintf("Adresse : %s\n", view.ClientAddress))
	}
	if view.ClientEmail != "" {
		sb.WriteString(fmt.Sprintf("Email : %s\n", view.ClientEmail))
	}
	sb.WriteString("──────────────────\n")
	for _, l := range view.Lines {
		sb.WriteString(fmt.Sprintf("• %s\n  %s × %s € = %s €\n", l.Description, l.Quantity, l.UnitPrice, l.Total))
	}
	sb.WriteString("──────────────────\n")
	sb.WriteString(fmt.Sprintf("Sous-total : %s €\n", view.Subtotal))
	sb.WriteString(fmt.Sprintf("TVA (%s) : %s €\n", view.TaxRate, view.Tax))
	sb.WriteString(fmt.Sprintf("Total général : %s €", view.GrandTotal))

	b.sendText(chatID, sb.String())
}

func (b *Bot) editQuote(ctx context.Context, chatID int64, id string) {
	q := b.quoteByID(ctx, chatID, id)
	if q == nil {
		b.sendError(chatID, "Devis introuvable.")
		return
	}

	if err := b.session(ctx, chatID).orch.EditQuote(*q); err != nil {
		b.sendError(chatID, "Impossible d'ouvrir ce devis en modification.")
		return
	}

	if err := b.state.Save(ctx, chatID, UserState{Step: StepItemMenu}); err != nil {
		b.logger.Error("Failed to enter edit mode", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.showItemMenu(ctx, chatID)
}

func (b *Bot) deleteQuote(ctx context.Context, chatID int64, id string) {
	if err := b.session(ctx, chatID).orch.DeleteQuote(ctx, id); err != nil {
		b.sendError(chatID, "Erreur lors de la suppression du devis.")
		return
	}
	b.sendText(chatID, "🗑 Devis supprimé.")
}

func (b *Bot) exportQuote(ctx context.Context, chatID int64, id string) {
	q := b.quoteByID(ctx, chatID, id)
	if q == nil {
		b.sendError(chatID, "Devis introuvable.")
		return
	}

	path, err := export.WriteExcel(export.NewDetailView(*q), b.cfg.ExportDir)
	if err != nil {
		b.logger.Error("Failed to export quote",
			zap.Int64("chat_id", chatID),
			zap.String("quote_id", id),
			zap.Error(err))
		b.sendError(chatID, "Erreur lors de l'export du devis.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("📤 Devis %s", q.QuoteNumber)
	if _, err := b.bot.Send(doc); err != nil {
		b.logger.Error("Failed to send export",
			zap.Int64("chat_id", chatID),
			zap.String("path", path),
			zap.Error(err))
		b.sendError(chatID, "Erreur lors de l'envoi du fichier.")
	}
}
