package devis

import (
	"math"
	"testing"
	"time"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func testNow() time.Time {
	return time.Date(2024, 1, 5, 14, 3, 7, 0, time.UTC)
}

func TestNewDraft_Defaults(t *testing.T) {
	d := NewDraft(20, testNow())
	if len(d.LineItems) != 1 {
		t.Fatalf("expected one empty line item, got %d", len(d.LineItems))
	}
	li := d.LineItems[0]
	if li.Description != "" || li.Quantity != 1 || li.PurchasePrice != 0 || li.Margin != 0 || li.UnitPrice != 0 {
		t.Fatalf("unexpected initial line item: %+v", li)
	}
	if d.TaxRate != 20 {
		t.Fatalf("tax rate = %v, want 20", d.TaxRate)
	}
	if d.QuoteDate != "2024-01-05" {
		t.Fatalf("quote date = %q", d.QuoteDate)
	}
}

func TestQuoteNumber_TimestampScheme(t *testing.T) {
	got := QuoteNumber(testNow())
	if got != "DEV-240105-140307" {
		t.Fatalf("quote number = %q, want DEV-240105-140307", got)
	}
}

func TestAddRemoveLineItem(t *testing.T) {
	d := NewDraft(20, testNow())
	d.AddLineItem()
	d.AddLineItem()
	if len(d.LineItems) != 3 {
		t.Fatalf("expected 3 items, got %d", len(d.LineItems))
	}

	d.RemoveLineItem(1)
	if len(d.LineItems) != 2 {
		t.Fatalf("expected 2 items after remove, got %d", len(d.LineItems))
	}

	// Out of range indices are no-ops.
	d.RemoveLineItem(-1)
	d.RemoveLineItem(5)
	if len(d.LineItems) != 2 {
		t.Fatalf("out-of-range remove changed the count: %d", len(d.LineItems))
	}
}

func TestEditLineItemField_DerivesUnitPrice(t *testing.T) {
	d := NewDraft(20, testNow())
	d.EditLineItemField(0, FieldDescription, "Pose de parquet")
	d.EditLineItemField(0, FieldPurchasePrice, "100")
	d.EditLineItemField(0, FieldMargin, "20")
	d.EditLineItemField(0, FieldQuantity, "3")

	li := d.LineItems[0]
	if li.Description != "Pose de parquet" {
		t.Fatalf("description = %q", li.Description)
	}
	nearlyEqual(t, "unit price", li.UnitPrice, 120)
	nearlyEqual(t, "line total", li.Total(), 360)

	subtotal, tax, grand := d.Totals()
	nearlyEqual(t, "subtotal", subtotal, 360)
	nearlyEqual(t, "tax", tax, 72)
	nearlyEqual(t, "grand total", grand, 432)
}

func TestEditLineItemField_Idempotent(t *testing.T) {
	d := NewDraft(20, testNow())
	d.EditLineItemField(0, FieldPurchasePrice, "80")
	d.EditLineItemField(0, FieldMargin, "25")
	first := d.LineItems[0].UnitPrice

	d.EditLineItemField(0, FieldMargin, "25")
	d.EditLineItemField(0, FieldPurchasePrice, "80")
	if d.LineItems[0].UnitPrice != first {
		t.Fatalf("unit price changed on repeated edit: %v -> %v", first, d.LineItems[0].UnitPrice)
	}
}

func TestEditLineItemField_ParseFailureDefaultsZero(t *testing.T) {
	d := NewDraft(20, testNow())
	d.EditLineItemField(0, FieldPurchasePrice, "100")
	d.EditLineItemField(0, FieldMargin, "n/a")
	nearlyEqual(t, "margin", d.LineItems[0].Margin, 0)
	nearlyEqual(t, "unit price", d.LineItems[0].UnitPrice, 100)
}

func TestEditLineItemField_QuantityDoesNotChangeUnitPrice(t *testing.T) {
	d := NewDraft(20, testNow())
	d.EditLineItemField(0, FieldPurchasePrice, "100")
	d.EditLineItemField(0, FieldMargin, "20")
	d.EditLineItemField(0, FieldQuantity, "7")
	nearlyEqual(t, "unit price", d.LineItems[0].UnitPrice, 120)
	nearlyEqual(t, "line total", d.LineItems[0].Total(), 840)
}

func TestSelectProduct_CopiesFieldsAndKeepsQuantity(t *testing.T) {
	d := NewDraft(20, testNow())
	d.EditLineItemField(0, FieldQuantity, "4")
	p := &Product{ID: "p1", Name: "Parquet chêne", Description: "Parquet chêne massif", PurchasePrice: 50, DefaultMargin: 30}

	d.SelectProduct(0, p)
	li := d.LineItems[0]
	if li.Description != "Parquet chêne massif" {
		t.Fatalf("description = %q", li.Description)
	}
	nearlyEqual(t, "purchase price", li.PurchasePrice, 50)
	nearlyEqual(t, "margin", li.Margin, 30)
	nearlyEqual(t, "unit price", li.UnitPrice, 65)
	nearlyEqual(t, "quantity untouched", li.Quantity, 4)
}

func TestSelectProduct_NilResetsRow(t *testing.T) {
	d := NewDraft(20, testNow())
	d.EditLineItemField(0, FieldDescription, "Quelque chose")
	d.EditLineItemField(0, FieldPurchasePrice, "100")
	d.EditLineItemField(0, FieldMargin, "20")
	d.EditLineItemField(0, FieldQuantity, "3")

	d.SelectProduct(0, nil)
	li := d.LineItems[0]
	if li.Description != "" || li.Quantity != 1 || li.PurchasePrice != 0 || li.Margin != 0 || li.UnitPrice != 0 {
		t.Fatalf("row not reset: %+v", li)
	}
}

func TestLoadForEdit_RecomputesMissingUnitPrice(t *testing.T) {
	q := Quote{
		ID:         "q1",
		ClientName: "Dupont",
		LineItems: []LineItem{
			{Description: "Ligne héritée", Quantity: 2, PurchasePrice: 100, Margin: 20}, // no unit price stored
			{Description: "Ligne vide"}, // nothing stored at all
		},
		TaxRate: 20,
	}
	d, err := LoadForEdit(q)
	if err != nil {
		t.Fatal(err)
	}
	nearlyEqual(t, "recomputed unit price", d.LineItems[0].UnitPrice, 120)
	nearlyEqual(t, "defaulted unit price", d.LineItems[1].UnitPrice, 0)
}

func TestLoadForEdit_DeepCopies(t *testing.T) {
	q := Quote{
		ID:        "q1",
		LineItems: []LineItem{{Description: "original", Quantity: 1, UnitPrice: 10}},
	}
	d, err := LoadForEdit(q)
	if err != nil {
		t.Fatal(err)
	}
	d.EditLineItemField(0, FieldDescription, "modifié")
	if q.LineItems[0].Description != "original" {
		t.Fatal("editing the draft mutated the persisted quote")
	}
}
