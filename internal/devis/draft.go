package devis

import (
	"time"

	"github.com/tiendc/go-deepcopy"

	"devis-bot/internal/pricing"
)

// Editable line item fields.
const (
	FieldDescription   = "description"
	FieldQuantity      = "quantity"
	FieldPurchasePrice = "purchasePrice"
	FieldMargin        = "margin"
)

// Draft is the single in-memory quote being edited. ID stays empty until
// the quote has been persisted once; a non-empty ID means saving updates
// the existing record.
type Draft struct {
	ID            string
	ClientName    string
	ClientAddress string
	ClientEmail   string
	QuoteNumber   string
	QuoteDate     string
	LineItems     []LineItem
	TaxRate       float64

	createdAt time.Time // preserved across edit/re-save
}

func emptyLineItem() LineItem {
	return LineItem{Quantity: 1}
}

// NewDraft returns a fresh draft: one empty line item, today's date and the
// default tax rate.
func NewDraft(defaultTaxRate float64, now time.Time) *Draft {
	return &Draft{
		QuoteDate: now.Format("2006-01-02"),
		LineItems: []LineItem{emptyLineItem()},
		TaxRate:   defaultTaxRate,
	}
}

// AddLineItem appends an empty row.
func (d *Draft) AddLineItem() {
	d.LineItems = append(d.LineItems, emptyLineItem())
}

// RemoveLineItem deletes the row at index; out of range is a no-op.
func (d *Draft) RemoveLineItem(index int) {
	if index < 0 || index >= len(d.LineItems) {
		return
	}
	d.LineItems = append(d.LineItems[:index], d.LineItems[index+1:]...)
}

// EditLineItemField sets one field of a row from raw user input. Numeric
// fields parse with zero as the fallback; editing the purchase price, the
// margin or the quantity re-derives the unit price. Out of range is a no-op.
func (d *Draft) EditLineItemField(index int, field, value string) {
	if index < 0 || index >= len(d.LineItems) {
		return
	}
	item := &d.LineItems[index]
	switch field {
	case FieldDescription:
		item.Description = value
		return
	case FieldQuantity:
		item.Quantity = pricing.ParseAmount(value)
	case FieldPurchasePrice:
		item.PurchasePrice = pricing.ParseAmount(value)
	case FieldMargin:
		item.Margin = pricing.ParseAmount(value)
	default:
		return
	}
	item.UnitPrice = pricing.UnitPrice(item.PurchasePrice, item.Margin)
}

// SelectProduct fills a row from a catalog product. A nil product resets
// the row to its empty state (the "no product" choice); otherwise the
// product's description, purchase price and default margin are copied and
// the unit price re-derived. Quantity is never forced by selection.
func (d *Draft) SelectProduct(index int, p *Product) {
	if index < 0 || index >= len(d.LineItems) {
		return
	}
	if p == nil {
		d.LineItems[index] = emptyLineItem()
		return
	}
	item := &d.LineItems[index]
	item.Description = p.Description
	item.PurchasePrice = p.PurchasePrice
	item.Margin = p.DefaultMargin
	item.UnitPrice = pricing.UnitPrice(p.PurchasePrice, p.DefaultMargin)
}

// Totals recomputes subtotal, tax and grand total from the current rows.
// Nothing is maintained incrementally.
func (d *Draft) Totals() (subtotal, tax, grandTotal float64) {
	lines := make([]pricing.Line, len(d.LineItems))
	for i, li := range d.LineItems {
		lines[i] = li.pricingLine()
	}
	subtotal = pricing.Subtotal(lines)
	tax = pricing.Tax(subtotal, d.TaxRate)
	return subtotal, tax, pricing.GrandTotal(subtotal, tax)
}

// LoadForEdit deep-copies a persisted quote into a fresh draft. Stored rows
// missing a unit price (legacy data) get it recomputed from purchase price
// and margin, defaulting to zero.
func LoadForEdit(q Quote) (*Draft, error) {
	var items []LineItem
	if err := deepcopy.Copy(&items, q.LineItems); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].UnitPrice == 0 {
			items[i].UnitPrice = pricing.UnitPrice(items[i].PurchasePrice, items[i].Margin)
		}
	}
	if len(items) == 0 {
		items = []LineItem{emptyLineItem()}
	}
	return &Draft{
		ID:            q.ID,
		ClientName:    q.ClientName,
		ClientAddress: q.ClientAddress,
		ClientEmail:   q.ClientEmail,
		QuoteNumber:   q.QuoteNumber,
		QuoteDate:     q.QuoteDate,
		LineItems:     items,
		TaxRate:       q.TaxRate,
		createdAt:     q.CreatedAt,
	}, nil
}
