// Package devis carries the quote domain: models, the in-memory draft a
// user edits, and the orchestrator that moves drafts in and out of storage.
package devis

import (
	"time"

	"devis-bot/internal/pricing"
)

// LineItem is one priced row on a quote. UnitPrice is derived from
// PurchasePrice and Margin whenever either changes; it is only set directly
// when importing stored data.
type LineItem struct {
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchasePrice"`
	Margin        float64 `json:"margin"`
	UnitPrice     float64 `json:"unitPrice"`
}

func (li LineItem) pricingLine() pricing.Line {
	return pricing.Line{Quantity: li.Quantity, UnitPrice: li.UnitPrice}
}

// Total returns the line total at full precision.
func (li LineItem) Total() float64 {
	return pricing.LineTotal(li.pricingLine())
}

// Quote is the persisted aggregate. Subtotal, Tax and GrandTotal are
// recomputed from the line items on every save; stored copies are a display
// cache, never trusted on load.
type Quote struct {
	ID            string     `json:"id" db:"id"`
	ClientName    string     `json:"clientName" db:"client_name"`
	ClientAddress string     `json:"clientAddress" db:"client_address"`
	ClientEmail   string     `json:"clientEmail" db:"client_email"`
	QuoteNumber   string     `json:"quoteNumber" db:"quote_number"`
	QuoteDate     string     `json:"quoteDate" db:"quote_date"`
	LineItems     []LineItem `json:"lineItems"`
	TaxRate       float64    `json:"taxRate" db:"tax_rate"`
	Subtotal      float64    `json:"subtotal" db:"subtotal"`
	Tax           float64    `json:"tax" db:"tax"`
	GrandTotal    float64    `json:"grandTotal" db:"grand_total"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// Product is a reusable catalog entry used to pre-fill line items. Line
// items copy its fields at selection time; deleting a product never touches
// quotes built from it.
type Product struct {
	ID            string  `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	Description   string  `json:"description" db:"description"`
	PurchasePrice float64 `json:"purchasePrice" db:"purchase_price"`
	DefaultMargin float64 `json:"defaultMargin" db:"default_margin"`
}

// QuoteNumber builds the auto-generated number used when the user leaves
// the field blank, e.g. DEV-240105-140307.
func QuoteNumber(now time.Time) string {
	return "DEV-" + now.Format("060102-150405")
}
