package pricing

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestUnitPrice(t *testing.T) {
	nearlyEqual(t, "100 at 20%", UnitPrice(100, 20), 120)
	nearlyEqual(t, "zero margin", UnitPrice(50, 0), 50)
	nearlyEqual(t, "zero price", UnitPrice(0, 35), 0)
}

func TestUnitPrice_NonFiniteInputsBecomeZero(t *testing.T) {
	nearlyEqual(t, "NaN price", UnitPrice(math.NaN(), 20), 0)
	nearlyEqual(t, "Inf margin", UnitPrice(100, math.Inf(1)), 100)
}

func TestUnitPrice_MonotonicInMargin(t *testing.T) {
	prev := UnitPrice(80, 0)
	for margin := 1.0; margin <= 200; margin++ {
		cur := UnitPrice(80, margin)
		if cur < prev {
			t.Fatalf("unit price decreased at margin %.0f: %v < %v", margin, cur, prev)
		}
		prev = cur
	}
}

func TestLineTotal_Scenario(t *testing.T) {
	// purchase 100, margin 20%, quantity 3
	unit := UnitPrice(100, 20)
	nearlyEqual(t, "unit price", unit, 120)
	nearlyEqual(t, "line total", LineTotal(Line{Quantity: 3, UnitPrice: unit}), 360)
}

func TestQuoteTotals_Scenario(t *testing.T) {
	lines := []Line{{Quantity: 3, UnitPrice: UnitPrice(100, 20)}}
	subtotal := Subtotal(lines)
	tax := Tax(subtotal, 20)
	nearlyEqual(t, "subtotal", subtotal, 360)
	nearlyEqual(t, "tax", tax, 72)
	nearlyEqual(t, "grand total", GrandTotal(subtotal, tax), 432)
}

func TestSubtotal_EmptyLines(t *testing.T) {
	subtotal := Subtotal(nil)
	tax := Tax(subtotal, 20)
	nearlyEqual(t, "subtotal", subtotal, 0)
	nearlyEqual(t, "tax", tax, 0)
	nearlyEqual(t, "grand total", GrandTotal(subtotal, tax), 0)
}

func TestNegativeQuantityPassesThrough(t *testing.T) {
	// Credit lines: the calculator imposes no guard, callers decide.
	nearlyEqual(t, "negative line", LineTotal(Line{Quantity: -2, UnitPrice: 50}), -100)
	nearlyEqual(t, "negative margin", UnitPrice(100, -50), 50)
}

func TestRound2(t *testing.T) {
	nearlyEqual(t, "round down", Round2(1.004), 1.00)
	nearlyEqual(t, "round up", Round2(1.006), 1.01)
	nearlyEqual(t, "negative", Round2(-2.675), -2.67)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12.5", 12.5},
		{"12,5", 12.5},
		{" 40 ", 40},
		{"", 0},
		{"abc", 0},
		{"12abc", 0},
		{"-3", -3},
	}
	for _, c := range cases {
		nearlyEqual(t, "ParseAmount("+c.in+")", ParseAmount(c.in), c.want)
	}
}
