package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"devis-bot/internal/devis"
	"devis-bot/internal/pricing"
)

func (b *Bot) listProducts(ctx context.Context, chatID int64) {
	products := b.session(ctx, chatID).orch.Products()

	if len(products) == 0 {
		msg := tgbotapi.NewMessage(chatID, "Aucun produit dans le catalogue.")
		msg.ReplyMarkup = b.createProductsKeyboard()
		b.sendMessage(msg)
	} else {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("📦 Catalogue (%d produits) :", len(products)))
		msg.ReplyMarkup = b.createProductsKeyboard()
		b.sendMessage(msg)

		for _, p := range products {
			text := fmt.Sprintf("📦 %s\nPrix d'achat : %.2f € | Marge : %.2f %%",
				p.Name, p.PurchasePrice, p.DefaultMargin)
			if p.Description != "" {
				text += "\n" + p.Description
			}
			card := tgbotapi.NewMessage(chatID, text)
			card.ReplyMarkup = b.createProductActionsKeyboard(p.ID)
			b.sendMessage(card)
		}
	}

	if err := b.state.SetStep(ctx, chatID, StepMainMenu); err != nil {
		b.logger.Error("Failed to set main menu state", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) startNewProduct(ctx context.Context, chatID int64) {
	b.session(ctx, chatID).orch.NewProduct()
	b.prompt(ctx, chatID, StepProductName, "Nom du produit :")
}

func (b *Bot) editProduct(ctx context.Context, chatID int64, id string) {
	p := b.session(ctx, chatID).orch.ProductByID(id)
	if p == nil {
		b.sendError(chatID, "Produit introuvable.")
		return
	}

	b.session(ctx, chatID).orch.StartProductEdit(*p)
	b.prompt(ctx, chatID, StepProductName,
		fmt.Sprintf("Nom du produit (- pour garder « %s ») :", p.Name))
}

func (b *Bot) deleteProduct(ctx context.Context, chatID int64, id string) {
	if err := b.session(ctx, chatID).orch.DeleteProduct(ctx, id); err != nil {
		b.sendError(chatID, "Erreur lors de la suppression du produit.")
		return
	}
	b.sendText(chatID, "🗑 Produit supprimé.")
}

// productDraft returns the chat's in-flight product form, starting an empty
// one when the dialog step outlived the session (Redis state survives
// restarts, the orchestrator does not).
func (b *Bot) productDraft(ctx context.Context, chatID int64) *devis.Product {
	orch := b.session(ctx, chatID).orch
	if orch.ProductDraft() == nil {
		orch.NewProduct()
	}
	return orch.ProductDraft()
}

func (b *Bot) handleProductName(ctx context.Context, chatID int64, text string) {
	draft := b.productDraft(ctx, chatID)
	if trimmed := strings.TrimSpace(text); trimmed != "-" {
		draft.Name = trimmed
	}
	b.prompt(ctx, chatID, StepProductDescription, "Description du produit (- pour garder/passer) :")
}

func (b *Bot) handleProductDescription(ctx context.Context, chatID int64, text string) {
	draft := b.productDraft(ctx, chatID)
	if trimmed := strings.TrimSpace(text); trimmed != "-" {
		draft.Description = trimmed
	}
	b.prompt(ctx, chatID, StepProductPrice, "Prix d'achat en € :")
}

func (b *Bot) handleProductPrice(ctx context.Context, chatID int64, text string) {
	price := pricing.ParseAmount(text)
	if price < 0 {
		b.sendError(chatID, "Les valeurs négatives ne sont pas acceptées.")
		return
	}
	b.productDraft(ctx, chatID).PurchasePrice = price
	b.prompt(ctx, chatID, StepProductMargin, "Marge par défaut en % :")
}

func (b *Bot) handleProductMargin(ctx context.Context, chatID int64, text string) {
	margin := pricing.ParseAmount(text)
	if margin < 0 {
		b.sendError(chatID, "Les valeurs négatives ne sont pas acceptées.")
		return
	}
	b.productDraft(ctx, chatID).DefaultMargin = margin

	p, err := b.session(ctx, chatID).orch.SaveProduct(ctx)
	if err != nil {
		if devis.IsValidation(err) {
			b.sendError(chatID, "Le nom et la description du produit sont obligatoires.")
		} else {
			b.sendError(chatID, "Erreur lors de la sauvegarde du produit. Veuillez réessayer.")
		}
		return
	}

	b.sendText(chatID, fmt.Sprintf("✅ Produit « %s » enregistré.", p.Name))
	b.listProducts(ctx, chatID)
}
