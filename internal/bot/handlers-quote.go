package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"devis-bot/internal/devis"
	"devis-bot/internal/pricing"
)

func (b *Bot) startNewQuote(ctx context.Context, chatID int64) {
	b.session(ctx, chatID).orch.NewQuote()

	if err := b.state.Save(ctx, chatID, UserState{Step: StepItemMenu}); err != nil {
		b.logger.Error("Failed to reset quote state", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.showItemMenu(ctx, chatID)
}

// showItemMenu renders the draft summary with the editor keyboard. Totals
// are recomputed from the current rows on every render.
func (b *Bot) showItemMenu(ctx context.Context, chatID int64) {
	state, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.sendError(chatID, "Erreur lors du traitement de la demande")
		return
	}

	msg := tgbotapi.NewMessage(chatID, b.renderDraft(ctx, chatID, state.ItemIndex))
	msg.ReplyMarkup = b.createItemMenuKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) renderDraft(ctx context.Context, chatID int64, itemIndex int) string {
	d := b.session(ctx, chatID).orch.Draft()

	var sb strings.Builder
	if d.ID == "" {
		sb.WriteString("🆕 Nouveau devis\n")
	} else {
		sb.WriteString("✏️ Modification du devis\n")
	}
	sb.WriteString(fmt.Sprintf("Client : %s\n", orDash(d.ClientName)))
	sb.WriteString(fmt.Sprintf("N° : %s (auto si vide)\n", orDash(d.QuoteNumber)))
	sb.WriteString(fmt.Sprintf("Date : %s | TVA : %.2f %%\n", d.QuoteDate, d.TaxRate))
	sb.WriteString("──────────────────\n")

	for i, li := range d.LineItems {
		marker := "  "
		if i == itemIndex {
			marker = "▶ "
		}
		sb.WriteString(fmt.Sprintf("%sLigne %d : %s\n", marker, i+1, orDash(li.Description)))
		sb.WriteString(fmt.Sprintf("   %g × %.2f € (achat %.2f €, marge %.2f %%) = %.2f €\n",
			li.Quantity, pricing.Round2(li.UnitPrice), li.PurchasePrice, li.Margin, pricing.Round2(li.Total())))
	}

	subtotal, tax, grandTotal := d.Totals()
	sb.WriteString("──────────────────\n")
	sb.WriteString(fmt.Sprintf("Sous-total : %.2f €\n", pricing.Round2(subtotal)))
	sb.WriteString(fmt.Sprintf("TVA (%.2f %%) : %.2f €\n", d.TaxRate, pricing.Round2(tax)))
	sb.WriteString(fmt.Sprintf("Total général : %.2f €", pricing.Round2(grandTotal)))
	return sb.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func (b *Bot) handleItemMenu(ctx context.Context, chatID int64, text string) {
	sess := b.session(ctx, chatID)

	switch text {
	case btnClient:
		b.prompt(ctx, chatID, StepClientName, "Nom du client :")
	case btnQuoteNumber:
		b.prompt(ctx, chatID, StepQuoteNumber, "Numéro de devis (- pour numérotation automatique) :")
	case btnQuoteDate:
		b.prompt(ctx, chatID, StepQuoteDate, "Date du devis (AAAA-MM-JJ) :")
	case btnTaxRate:
		b.prompt(ctx, chatID, StepTaxRate, "Taux de TVA en % :")
	case btnDescription:
		b.prompt(ctx, chatID, StepItemDescription, "Description de la ligne :")
	case btnPurchasePrice:
		b.prompt(ctx, chatID, StepItemPurchasePrice, "Prix d'achat en € :")
	case btnMargin:
		b.prompt(ctx, chatID, StepItemMargin, "Marge en % :")
	case btnQuantity:
		b.prompt(ctx, chatID, StepItemQuantity, "Quantité :")
	case btnPickProduct:
		b.showProductPicker(ctx, chatID)
	case btnAddItem:
		sess.orch.Draft().AddLineItem()
		if err := b.state.SetItemIndex(ctx, chatID, len(sess.orch.Draft().LineItems)-1); err != nil {
			b.logger.Error("Failed to move to new line", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		b.showItemMenu(ctx, chatID)
	case btnRemoveItem:
		b.removeCurrentItem(ctx, chatID)
	case btnSwitchItem:
		b.prompt(ctx, chatID, StepItemSelect, "Numéro de la ligne à modifier :")
	case btnSaveQuote:
		b.saveQuote(ctx, chatID)
	case btnCancel:
		b.handleCancel(ctx, chatID)
	default:
		b.sendError(chatID, "Utilisez les boutons du clavier pour modifier le devis.")
	}
}

func (b *Bot) prompt(ctx context.Context, chatID int64, step, text string) {
	b.sendText(chatID, text)
	if err := b.state.SetStep(ctx, chatID, step); err != nil {
		b.logger.Error("Failed to set step",
			zap.Int64("chat_id", chatID),
			zap.String("step", step),
			zap.Error(err))
	}
}

func (b *Bot) removeCurrentItem(ctx context.Context, chatID int64) {
	state, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.sendError(chatID, "Erreur lors du traitement de la demande")
		return
	}

	d := b.session(ctx, chatID).orch.Draft()
	d.RemoveLineItem(state.ItemIndex)
	if len(d.LineItems) == 0 {
		d.AddLineItem()
	}
	if state.ItemIndex >= len(d.LineItems) {
		if err := b.state.SetItemIndex(ctx, chatID, len(d.LineItems)-1); err != nil {
			b.logger.Error("Failed to clamp line index", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	b.showItemMenu(ctx, chatID)
}

func (b *Bot) handleItemSelect(ctx context.Context, chatID int64, text string) {
	d := b.session(ctx, chatID).orch.Draft()

	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(d.LineItems) {
		b.sendError(chatID, fmt.Sprintf("Numéro de ligne invalide. Choisissez entre 1 et %d.", len(d.LineItems)))
		return
	}

	if err := b.state.Save(ctx, chatID, UserState{Step: StepItemMenu, ItemIndex: n - 1}); err != nil {
		b.logger.Error("Failed to switch line", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.showItemMenu(ctx, chatID)
}

// handleItemField builds the input handler for one editable line field.
// Unparseable numeric input falls back to zero rather than failing, like
// the original form fields; negative values are refused at the prompt.
func (b *Bot) handleItemField(field string) func(context.Context, int64, string) {
	return func(ctx context.Context, chatID int64, text string) {
		if field != devis.FieldDescription && pricing.ParseAmount(text) < 0 {
			b.sendError(chatID, "Les valeurs négatives ne sont pas acceptées.")
			return
		}

		state, err := b.state.Get(ctx, chatID)
		if err != nil {
			b.sendError(chatID, "Erreur lors du traitement de la demande")
			return
		}

		b.session(ctx, chatID).orch.Draft().EditLineItemField(state.ItemIndex, field, text)

		if err := b.state.SetStep(ctx, chatID, StepItemMenu); err != nil {
			b.logger.Error("Failed to return to item menu", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		b.showItemMenu(ctx, chatID)
	}
}

func (b *Bot) showProductPicker(ctx context.Context, chatID int64) {
	products := b.session(ctx, chatID).orch.Products()
	if len(products) == 0 {
		b.sendText(chatID, "Aucun produit enregistré pour le moment. Ajoutez-en via « Gérer les produits ».")
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Sélectionner un produit :")
	msg.ReplyMarkup = b.createProductPickerKeyboard(products)
	b.sendMessage(msg)
}

func (b *Bot) handlePickProduct(ctx context.Context, chatID int64, productID string) {
	state, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.sendError(chatID, "Erreur lors du traitement de la demande")
		return
	}

	b.session(ctx, chatID).orch.SelectProduct(state.ItemIndex, productID)
	b.showItemMenu(ctx, chatID)
}

func (b *Bot) handleClientName(ctx context.Context, chatID int64, text string) {
	b.session(ctx, chatID).orch.Draft().ClientName = strings.TrimSpace(text)
	b.prompt(ctx, chatID, StepClientAddress, "Adresse du client (- pour passer) :")
}

func (b *Bot) handleClientAddress(ctx context.Context, chatID int64, text string) {
	b.session(ctx, chatID).orch.Draft().ClientAddress = skippable(text)
	b.prompt(ctx, chatID, StepClientEmail, "Email du client (- pour passer) :")
}

func (b *Bot) handleClientEmail(ctx context.Context, chatID int64, text string) {
	b.session(ctx, chatID).orch.Draft().ClientEmail = skippable(text)
	if err := b.state.SetStep(ctx, chatID, StepItemMenu); err != nil {
		b.logger.Error("Failed to return to item menu", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.showItemMenu(ctx, chatID)
}

func (b *Bot) handleQuoteNumber(ctx context.Context, chatID int64, text string) {
	b.session(ctx, chatID).orch.Draft().QuoteNumber = skippable(text)
	if err := b.state.SetStep(ctx, chatID, StepItemMenu); err != nil {
		b.logger.Error("Failed to return to item menu", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.showItemMenu(ctx, chatID)
}

func (b *Bot) handleQuoteDate(ctx context.Context, chatID int64, text string) {
	if trimmed := strings.TrimSpace(text); trimmed != "" && trimmed != "-" {
		b.session(ctx, chatID).orch.Draft().QuoteDate = trimmed
	}
	if err := b.state.SetStep(ctx, chatID, StepItemMenu); err != nil {
		b.logger.Error("Failed to return to item menu", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.showItemMenu(ctx, chatID)
}

func (b *Bot) handleTaxRate(ctx context.Context, chatID int64, text string) {
	rate := pricing.ParseAmount(text)
	if rate < 0 {
		b.sendError(chatID, "Les valeurs négatives ne sont pas acceptées.")
		return
	}
	b.session(ctx, chatID).orch.Draft().TaxRate = rate
	if err := b.state.SetStep(ctx, chatID, StepItemMenu); err != nil {
		b.logger.Error("Failed to return to item menu", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.showItemMenu(ctx, chatID)
}

// skippable turns the "-" placeholder into an empty value.
func skippable(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "-" {
		return ""
	}
	return trimmed
}

func (b *Bot) saveQuote(ctx context.Context, chatID int64) {
	q, err := b.session(ctx, chatID).orch.Save(ctx)
	if err != nil {
		switch {
		case devis.IsValidation(err):
			b.sendError(chatID, "Veuillez remplir toutes les informations requises (nom du client et au moins une ligne avec description).")
		case errors.Is(err, devis.ErrSaveInFlight):
			b.sendError(chatID, "Un enregistrement est déjà en cours. Veuillez patienter.")
		default:
			b.sendError(chatID, "Erreur lors de la sauvegarde du devis. Veuillez réessayer.")
		}
		return
	}

	b.sendText(chatID, fmt.Sprintf("✅ Devis %s enregistré (total %.2f €).", q.QuoteNumber, pricing.Round2(q.GrandTotal)))
	b.listQuotes(ctx, chatID)
}
