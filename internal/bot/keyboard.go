package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"devis-bot/internal/devis"
)

// Main menu buttons.
const (
	btnNewQuote = "🆕 Nouveau devis"
	btnMyQuotes = "📋 Mes devis"
	btnProducts = "📦 Gérer les produits"
)

// Quote editor buttons.
const (
	btnClient        = "👤 Client"
	btnQuoteNumber   = "🧾 N° de devis"
	btnQuoteDate     = "📅 Date"
	btnTaxRate       = "💹 Taux de TVA"
	btnDescription   = "✏️ Description"
	btnPurchasePrice = "💶 Prix d'achat"
	btnMargin        = "📈 Marge"
	btnQuantity      = "🔢 Quantité"
	btnPickProduct   = "📦 Choisir un produit"
	btnAddItem       = "➕ Ajouter une ligne"
	btnRemoveItem    = "🗑 Supprimer la ligne"
	btnSwitchItem    = "↔️ Changer de ligne"
	btnSaveQuote     = "💾 Enregistrer"
	btnCancel        = "❌ Annuler"
)

// Product menu buttons.
const (
	btnNewProduct = "➕ Nouveau produit"
	btnBackToMenu = "⬅️ Menu principal"
)

func (b *Bot) createMainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnNewQuote),
			tgbotapi.NewKeyboardButton(btnMyQuotes),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProducts),
		),
	)
}

func (b *Bot) createItemMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnClient),
			tgbotapi.NewKeyboardButton(btnQuoteNumber),
			tgbotapi.NewKeyboardButton(btnQuoteDate),
			tgbotapi.NewKeyboardButton(btnTaxRate),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDescription),
			tgbotapi.NewKeyboardButton(btnPurchasePrice),
			tgbotapi.NewKeyboardButton(btnMargin),
			tgbotapi.NewKeyboardButton(btnQuantity),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPickProduct),
			tgbotapi.NewKeyboardButton(btnAddItem),
			tgbotapi.NewKeyboardButton(btnRemoveItem),
			tgbotapi.NewKeyboardButton(btnSwitchItem),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSaveQuote),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
}

func (b *Bot) createProductsKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnNewProduct),
			tgbotapi.NewKeyboardButton(btnBackToMenu),
		),
	)
}

// createProductPickerKeyboard lists the catalog as inline buttons plus the
// "no product" choice that clears the line.
func (b *Bot) createProductPickerKeyboard(products []devis.Product) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("— Aucun produit (vider la ligne)", "pickprod:"),
		),
	}
	for _, p := range products {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Name, "pickprod:"+p.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) createQuoteActionsKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👁 Voir", "view:"+id),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Modifier", "edit:"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Exporter", "export:"+id),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Supprimer", "del:"+id),
		),
	)
}

func (b *Bot) createProductActionsKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Modifier", "prodedit:"+id),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Supprimer", "proddel:"+id),
		),
	)
}
