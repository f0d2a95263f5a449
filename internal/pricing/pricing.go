// Package pricing holds the pure quote arithmetic: purchase price plus
// margin gives the unit price, line totals roll up into subtotal, tax and
// grand total. Stored values keep full float precision; only presentation
// rounds to two decimals.
package pricing

import (
	"math"
	"strconv"
	"strings"
)

// Line is the minimal per-row input the roll-up functions need.
type Line struct {
	Quantity  float64
	UnitPrice float64
}

// UnitPrice derives the selling price from the purchase price and a margin
// expressed in percent. Non-finite inputs are treated as zero so that a bad
// parse can never poison stored data.
func UnitPrice(purchasePrice, margin float64) float64 {
	return sanitize(purchasePrice) * (1 + sanitize(margin)/100)
}

// LineTotal returns quantity * unit price for one row.
func LineTotal(l Line) float64 {
	return sanitize(l.Quantity) * sanitize(l.UnitPrice)
}

// Subtotal sums the line totals without rounding.
func Subtotal(lines []Line) float64 {
	var sum float64
	for _, l := range lines {
		sum += LineTotal(l)
	}
	return sum
}

// Tax returns the tax amount for a subtotal at a rate in percent.
func Tax(subtotal, taxRate float64) float64 {
	return sanitize(subtotal) * sanitize(taxRate) / 100
}

// GrandTotal returns subtotal + tax.
func GrandTotal(subtotal, tax float64) float64 {
	return sanitize(subtotal) + sanitize(tax)
}

// Round2 rounds to two decimals for display.
func Round2(v float64) float64 {
	return math.Round(sanitize(v)*100) / 100
}

// ParseAmount converts free-form user input to a number, defaulting to zero
// on anything unparsable. Accepts the French comma decimal separator.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return sanitize(v)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
