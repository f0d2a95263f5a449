package devis

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Repository is the contract the orchestrator requires from storage. Every
// operation is scoped to a user namespace; implementations may fail for
// transport reasons and are never retried here.
type Repository interface {
	CreateQuote(ctx context.Context, namespace string, q Quote) (string, error)
	UpdateQuote(ctx context.Context, namespace string, q Quote) error
	DeleteQuote(ctx context.Context, namespace, id string) error
	CreateProduct(ctx context.Context, namespace string, p Product) (string, error)
	UpdateProduct(ctx context.Context, namespace string, p Product) error
	DeleteProduct(ctx context.Context, namespace, id string) error
}

// Orchestrator owns the in-memory draft for one user and coordinates every
// user action against the repository. Persisted collections are cached
// wholesale from subscription snapshots and never patched incrementally.
type Orchestrator struct {
	repo           Repository
	namespace      string
	defaultTaxRate float64
	logger         *zap.Logger
	now            func() time.Time

	draft        *Draft
	productDraft *Product // at most one in-flight product edit

	mu       sync.Mutex
	quotes   []Quote
	products []Product
	saving   bool
}

func NewOrchestrator(repo Repository, namespace string, defaultTaxRate float64, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		repo:           repo,
		namespace:      namespace,
		defaultTaxRate: defaultTaxRate,
		logger:         logger,
		now:            time.Now,
	}
	o.NewQuote()
	return o
}

// NewQuote discards the current draft and starts a fresh one.
func (o *Orchestrator) NewQuote() {
	o.draft = NewDraft(o.defaultTaxRate, o.now())
}

// Draft exposes the current draft for editing.
func (o *Orchestrator) Draft() *Draft {
	return o.draft
}

// EditQuote loads a persisted quote into draft state.
func (o *Orchestrator) EditQuote(q Quote) error {
	d, err := LoadForEdit(q)
	if err != nil {
		return err
	}
	o.draft = d
	return nil
}

// SelectProduct binds the cached product with the given id to a draft row.
// An empty id resets the row; an unknown id is ignored.
func (o *Orchestrator) SelectProduct(index int, productID string) {
	if productID == "" {
		o.draft.SelectProduct(index, nil)
		return
	}
	if p := o.ProductByID(productID); p != nil {
		o.draft.SelectProduct(index, p)
	}
}

func (o *Orchestrator) validateDraft() error {
	d := o.draft
	if strings.TrimSpace(d.ClientName) == "" {
		return &ValidationError{Field: "clientName", Message: "is required"}
	}
	hasItem := false
	for _, li := range d.LineItems {
		if strings.TrimSpace(li.Description) != "" {
			hasItem = true
			break
		}
	}
	if !hasItem {
		return &ValidationError{Field: "lineItems", Message: "need at least one item with a description"}
	}
	return nil
}

// Save validates the draft, recomputes every derived total and issues
// exactly one create (no ID yet) or one update (existing ID) to the
// repository. On success the draft is cleared; on failure it is left
// untouched so the user can retry.
func (o *Orchestrator) Save(ctx context.Context) (Quote, error) {
	o.mu.Lock()
	if o.saving {
		o.mu.Unlock()
		return Quote{}, ErrSaveInFlight
	}
	o.saving = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.saving = false
		o.mu.Unlock()
	}()

	if o.draft == nil {
		return Quote{}, ErrNoDraft
	}
	if o.draft.QuoteNumber == "" {
		o.draft.QuoteNumber = QuoteNumber(o.now())
	}
	if err := o.validateDraft(); err != nil {
		return Quote{}, err
	}

	d := o.draft
	subtotal, tax, grandTotal := d.Totals()
	now := o.now()
	q := Quote{
		ID:            d.ID,
		ClientName:    d.ClientName,
		ClientAddress: d.ClientAddress,
		ClientEmail:   d.ClientEmail,
		QuoteNumber:   d.QuoteNumber,
		QuoteDate:     d.QuoteDate,
		LineItems:     append([]LineItem(nil), d.LineItems...),
		TaxRate:       d.TaxRate,
		Subtotal:      subtotal,
		Tax:           tax,
		GrandTotal:    grandTotal,
		CreatedAt:     d.createdAt,
		UpdatedAt:     now,
	}

	if q.ID == "" {
		q.CreatedAt = now
		id, err := o.repo.CreateQuote(ctx, o.namespace, q)
		if err != nil {
			o.logger.Error("create quote failed", zap.String("namespace", o.namespace), zap.Error(err))
			return Quote{}, err
		}
		q.ID = id
	} else {
		if err := o.repo.UpdateQuote(ctx, o.namespace, q); err != nil {
			o.logger.Error("update quote failed", zap.String("namespace", o.namespace), zap.String("id", q.ID), zap.Error(err))
			return Quote{}, err
		}
	}

	o.NewQuote()
	return q, nil
}

// DeleteQuote removes a persisted quote. It does not require the quote to
// be loaded into the draft.
func (o *Orchestrator) DeleteQuote(ctx context.Context, id string) error {
	if err := o.repo.DeleteQuote(ctx, o.namespace, id); err != nil {
		o.logger.Error("delete quote failed", zap.String("namespace", o.namespace), zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ReplaceQuotes swaps in a full collection snapshot from a subscription.
func (o *Orchestrator) ReplaceQuotes(quotes []Quote) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes = quotes
}

// ReplaceProducts swaps in a full catalog snapshot from a subscription.
func (o *Orchestrator) ReplaceProducts(products []Product) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.products = products
}

// Quotes returns the cached quote list.
func (o *Orchestrator) Quotes() []Quote {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.quotes
}

// Products returns the cached product catalog.
func (o *Orchestrator) Products() []Product {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.products
}

// QuoteByID finds a cached quote.
func (o *Orchestrator) QuoteByID(id string) *Quote {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.quotes {
		if o.quotes[i].ID == id {
			q := o.quotes[i]
			return &q
		}
	}
	return nil
}

// ProductByID finds a cached product.
func (o *Orchestrator) ProductByID(id string) *Product {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.products {
		if o.products[i].ID == id {
			p := o.products[i]
			return &p
		}
	}
	return nil
}

// StartProductEdit loads a product into the single edit form.
func (o *Orchestrator) StartProductEdit(p Product) {
	copied := p
	o.productDraft = &copied
}

// NewProduct starts an empty product form.
func (o *Orchestrator) NewProduct() {
	o.productDraft = &Product{}
}

// ProductDraft returns the in-flight product edit, if any.
func (o *Orchestrator) ProductDraft() *Product {
	return o.productDraft
}

// SaveProduct validates and persists the in-flight product edit: one create
// for a new product, one update when it carries an id. The form is cleared
// on success only.
func (o *Orchestrator) SaveProduct(ctx context.Context) (Product, error) {
	if o.productDraft == nil {
		return Product{}, ErrNoDraft
	}
	p := *o.productDraft
	if strings.TrimSpace(p.Name) == "" {
		return Product{}, &ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(p.Description) == "" {
		return Product{}, &ValidationError{Field: "description", Message: "is required"}
	}

	if p.ID == "" {
		id, err := o.repo.CreateProduct(ctx, o.namespace, p)
		if err != nil {
			o.logger.Error("create product failed", zap.String("namespace", o.namespace), zap.Error(err))
			return Product{}, err
		}
		p.ID = id
	} else {
		if err := o.repo.UpdateProduct(ctx, o.namespace, p); err != nil {
			o.logger.Error("update product failed", zap.String("namespace", o.namespace), zap.String("id", p.ID), zap.Error(err))
			return Product{}, err
		}
	}
	o.productDraft = nil
	return p, nil
}

// DeleteProduct removes a catalog entry. Quotes already built from it keep
// their copied prices.
func (o *Orchestrator) DeleteProduct(ctx context.Context, id string) error {
	if err := o.repo.DeleteProduct(ctx, o.namespace, id); err != nil {
		o.logger.Error("delete product failed", zap.String("namespace", o.namespace), zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
