package devis

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeRepo struct {
	createQuotes   int
	updateQuotes   int
	deleteQuotes   int
	createProducts int
	updateProducts int
	deleteProducts int

	lastQuote Quote
	failWith  error
	onCreate  func() // hook to exercise reentrancy
}

func (f *fakeRepo) CreateQuote(_ context.Context, _ string, q Quote) (string, error) {
	f.createQuotes++
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.failWith != nil {
		return "", f.failWith
	}
	f.lastQuote = q
	return "generated-id", nil
}

func (f *fakeRepo) UpdateQuote(_ context.Context, _ string, q Quote) error {
	f.updateQuotes++
	if f.failWith != nil {
		return f.failWith
	}
	f.lastQuote = q
	return nil
}

func (f *fakeRepo) DeleteQuote(_ context.Context, _, _ string) error {
	f.deleteQuotes++
	return f.failWith
}

func (f *fakeRepo) CreateProduct(_ context.Context, _ string, _ Product) (string, error) {
	f.createProducts++
	if f.failWith != nil {
		return "", f.failWith
	}
	return "product-id", nil
}

func (f *fakeRepo) UpdateProduct(_ context.Context, _ string, _ Product) error {
	f.updateProducts++
	return f.failWith
}

func (f *fakeRepo) DeleteProduct(_ context.Context, _, _ string) error {
	f.deleteProducts++
	return f.failWith
}

func (f *fakeRepo) writes() int {
	return f.createQuotes + f.updateQuotes + f.deleteQuotes +
		f.createProducts + f.updateProducts + f.deleteProducts
}

func newTestOrchestrator(repo Repository) *Orchestrator {
	o := NewOrchestrator(repo, "chat:42", 20, zap.NewNop())
	o.now = testNow
	o.NewQuote() // re-seed the draft with the fixed clock
	return o
}

func fillValidDraft(o *Orchestrator) {
	d := o.Draft()
	d.ClientName = "Dupont"
	d.EditLineItemField(0, FieldDescription, "Pose de parquet")
	d.EditLineItemField(0, FieldPurchasePrice, "100")
	d.EditLineItemField(0, FieldMargin, "20")
	d.EditLineItemField(0, FieldQuantity, "3")
}

func TestSave_MissingClientNameIssuesNoWrite(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)
	o.Draft().EditLineItemField(0, FieldDescription, "Quelque chose")

	_, err := o.Save(context.Background())
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.writes() != 0 {
		t.Fatalf("expected zero repository calls, got %d", repo.writes())
	}
}

func TestSave_MissingDescriptionIssuesNoWrite(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)
	o.Draft().ClientName = "Dupont"

	_, err := o.Save(context.Background())
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.writes() != 0 {
		t.Fatalf("expected zero repository calls, got %d", repo.writes())
	}
}

func TestSave_ComputesTotalsAndClearsDraft(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)
	fillValidDraft(o)

	q, err := o.Save(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if repo.createQuotes != 1 || repo.updateQuotes != 0 {
		t.Fatalf("expected exactly one create, got %d creates / %d updates", repo.createQuotes, repo.updateQuotes)
	}
	if q.ID != "generated-id" {
		t.Fatalf("id = %q", q.ID)
	}
	if q.QuoteNumber != "DEV-240105-140307" {
		t.Fatalf("auto-generated number = %q", q.QuoteNumber)
	}
	nearlyEqual(t, "subtotal", q.Subtotal, 360)
	nearlyEqual(t, "tax", q.Tax, 72)
	nearlyEqual(t, "grand total", q.GrandTotal, 432)
	if q.CreatedAt.IsZero() || q.UpdatedAt.IsZero() {
		t.Fatal("timestamps not stamped")
	}

	// Draft cleared back to the creating state.
	if o.Draft().ClientName != "" || o.Draft().ID != "" || len(o.Draft().LineItems) != 1 {
		t.Fatalf("draft not cleared: %+v", o.Draft())
	}
}

func TestSave_RoundTripThroughLoadForEdit(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)
	fillValidDraft(o)
	o.Draft().AddLineItem()
	o.Draft().EditLineItemField(1, FieldDescription, "Finitions")
	o.Draft().EditLineItemField(1, FieldPurchasePrice, "30")

	saved, err := o.Save(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if err := o.EditQuote(saved); err != nil {
		t.Fatal(err)
	}
	d := o.Draft()
	if len(d.LineItems) != len(saved.LineItems) {
		t.Fatalf("line item count changed: %d != %d", len(d.LineItems), len(saved.LineItems))
	}
	for i := range d.LineItems {
		if d.LineItems[i].Description != saved.LineItems[i].Description {
			t.Fatalf("description %d changed: %q", i, d.LineItems[i].Description)
		}
	}
	subtotal, tax, grand := d.Totals()
	nearlyEqual(t, "subtotal", subtotal, saved.Subtotal)
	nearlyEqual(t, "tax", tax, saved.Tax)
	nearlyEqual(t, "grand total", grand, saved.GrandTotal)

	// Re-saving an edited quote must be exactly one update on the same id.
	if _, err := o.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if repo.updateQuotes != 1 {
		t.Fatalf("expected one update, got %d", repo.updateQuotes)
	}
	if repo.lastQuote.ID != saved.ID {
		t.Fatalf("update targeted id %q, want %q", repo.lastQuote.ID, saved.ID)
	}
	if repo.lastQuote.CreatedAt != saved.CreatedAt {
		t.Fatal("createdAt not preserved across edit/re-save")
	}
}

func TestSave_RepositoryFailurePreservesDraft(t *testing.T) {
	repo := &fakeRepo{failWith: errors.New("storage down")}
	o := newTestOrchestrator(repo)
	fillValidDraft(o)

	_, err := o.Save(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if o.Draft().ClientName != "Dupont" {
		t.Fatal("draft was cleared despite the failed write")
	}
	if len(o.Draft().LineItems) != 1 || o.Draft().LineItems[0].Description != "Pose de parquet" {
		t.Fatalf("draft mutated on failure: %+v", o.Draft().LineItems)
	}
}

func TestSave_SecondSaveWhileInFlightIsRejected(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)
	fillValidDraft(o)

	var reentrant error
	repo.onCreate = func() {
		_, reentrant = o.Save(context.Background())
	}
	if _, err := o.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(reentrant, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", reentrant)
	}
	if repo.createQuotes != 1 {
		t.Fatalf("expected one create, got %d", repo.createQuotes)
	}
}

func TestDeleteQuote_IndependentOfDraft(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)

	if err := o.DeleteQuote(context.Background(), "q9"); err != nil {
		t.Fatal(err)
	}
	if repo.deleteQuotes != 1 {
		t.Fatalf("expected one delete, got %d", repo.deleteQuotes)
	}
}

func TestSelectProduct_FromCachedCatalog(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)
	o.ReplaceProducts([]Product{{ID: "p1", Name: "Parquet", Description: "Parquet chêne", PurchasePrice: 50, DefaultMargin: 30}})

	o.SelectProduct(0, "p1")
	nearlyEqual(t, "unit price", o.Draft().LineItems[0].UnitPrice, 65)

	o.SelectProduct(0, "")
	if o.Draft().LineItems[0].Description != "" || o.Draft().LineItems[0].Quantity != 1 {
		t.Fatalf("empty selection did not reset the row: %+v", o.Draft().LineItems[0])
	}

	before := o.Draft().LineItems[0]
	o.SelectProduct(0, "unknown")
	if o.Draft().LineItems[0] != before {
		t.Fatal("unknown product id mutated the row")
	}
}

func TestSaveProduct_ValidatesAndClearsForm(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)

	o.NewProduct()
	_, err := o.SaveProduct(context.Background())
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.writes() != 0 {
		t.Fatalf("expected zero repository calls, got %d", repo.writes())
	}

	o.ProductDraft().Name = "Parquet"
	o.ProductDraft().Description = "Parquet chêne"
	p, err := o.SaveProduct(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "product-id" || repo.createProducts != 1 {
		t.Fatalf("unexpected create result: %+v (creates=%d)", p, repo.createProducts)
	}
	if o.ProductDraft() != nil {
		t.Fatal("product form not cleared after save")
	}

	o.StartProductEdit(p)
	if _, err := o.SaveProduct(context.Background()); err != nil {
		t.Fatal(err)
	}
	if repo.updateProducts != 1 {
		t.Fatalf("expected one product update, got %d", repo.updateProducts)
	}
}

func TestReplaceCollections_WholesaleSnapshots(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(repo)

	o.ReplaceQuotes([]Quote{{ID: "a"}, {ID: "b"}})
	o.ReplaceQuotes([]Quote{{ID: "c"}})
	if len(o.Quotes()) != 1 || o.Quotes()[0].ID != "c" {
		t.Fatalf("snapshot not replaced wholesale: %+v", o.Quotes())
	}
	if o.QuoteByID("a") != nil {
		t.Fatal("stale quote still reachable after snapshot replace")
	}
}
