// Package export turns a viewed quote into its downloadable document. The
// engine only promises a stable, fully-rendered detail projection; the
// renderer captures that projection as a file.
package export

import (
	"fmt"

	"devis-bot/internal/devis"
	"devis-bot/internal/pricing"
)

// LineView is one fully-rendered table row of the detail view. All amounts
// are formatted with two decimals.
type LineView struct {
	Description   string
	Quantity      string
	PurchasePrice string
	Margin        string
	UnitPrice     string
	Total         string
}

// DetailView is the stable projection of a persisted quote that the
// renderer consumes. Everything is already formatted; the renderer does no
// arithmetic.
type DetailView struct {
	QuoteNumber   string
	QuoteDate     string
	ClientName    string
	ClientAddress string
	ClientEmail   string
	TaxRate       string
	Lines         []LineView
	Subtotal      string
	Tax           string
	GrandTotal    string
	Filename      string
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", pricing.Round2(v))
}

// NewDetailView projects a quote into its rendered form. The file name
// follows the devis-<quoteNumber> convention.
func NewDetailView(q devis.Quote) DetailView {
	view := DetailView{
		QuoteNumber:   q.QuoteNumber,
		QuoteDate:     q.QuoteDate,
		ClientName:    q.ClientName,
		ClientAddress: q.ClientAddress,
		ClientEmail:   q.ClientEmail,
		TaxRate:       fmt.Sprintf("%.2f %%", q.TaxRate),
		Subtotal:      money(q.Subtotal),
		Tax:           money(q.Tax),
		GrandTotal:    money(q.GrandTotal),
		Filename:      fmt.Sprintf("devis-%s.xlsx", q.QuoteNumber),
	}
	for _, li := range q.LineItems {
		view.Lines = append(view.Lines, LineView{
			Description:   li.Description,
			Quantity:      fmt.Sprintf("%g", li.Quantity),
			PurchasePrice: money(li.PurchasePrice),
			Margin:        fmt.Sprintf("%.2f %%", li.Margin),
			UnitPrice:     money(li.UnitPrice),
			Total:         money(li.Total()),
		})
	}
	return view
}
