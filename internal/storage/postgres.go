package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"devis-bot/internal/devis"
	"devis-bot/pkg/redis"
)

// ErrNotReady is returned when an operation is attempted before the storage
// has been initialized.
var ErrNotReady = errors.New("storage not initialized")

type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PostgresStorage persists quotes and products per user namespace and
// notifies subscribers through Redis pub/sub after every successful write.
type PostgresStorage struct {
	db     *sqlx.DB
	redis  *redis.Client
	logger *zap.Logger
}

var _ devis.Repository = (*PostgresStorage)(nil)

func NewPostgresStorage(ctx context.Context, cfg Config, redisClient *redis.Client, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}, nil
}

type quoteRow struct {
	ID            string    `db:"id"`
	Namespace     string    `db:"namespace"`
	ClientName    string    `db:"client_name"`
	ClientAddress string    `db:"client_address"`
	ClientEmail   string    `db:"client_email"`
	QuoteNumber   string    `db:"quote_number"`
	QuoteDate     string    `db:"quote_date"`
	LineItems     []byte    `db:"line_items"`
	TaxRate       float64   `db:"tax_rate"`
	Subtotal      float64   `db:"subtotal"`
	Tax           float64   `db:"tax"`
	GrandTotal    float64   `db:"grand_total"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r quoteRow) toQuote() (devis.Quote, error) {
	q := devis.Quote{
		ID:            r.ID,
		ClientName:    r.ClientName,
		ClientAddress: r.ClientAddress,
		ClientEmail:   r.ClientEmail,
		QuoteNumber:   r.QuoteNumber,
		QuoteDate:     r.QuoteDate,
		TaxRate:       r.TaxRate,
		Subtotal:      r.Subtotal,
		Tax:           r.Tax,
		GrandTotal:    r.GrandTotal,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.LineItems) > 0 {
		if err := json.Unmarshal(r.LineItems, &q.LineItems); err != nil {
			return devis.Quote{}, fmt.Errorf("decode line items: %w", err)
		}
	}
	return q, nil
}

func (s *PostgresStorage) CreateQuote(ctx context.Context, namespace string, q devis.Quote) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrNotReady
	}
	items, err := json.Marshal(q.LineItems)
	if err != nil {
		return "", fmt.Errorf("encode line items: %w", err)
	}

	const query = `
        INSERT INTO quotes (
            namespace, client_name, client_address, client_email,
            quote_number, quote_date, line_items, tax_rate,
            subtotal, tax, grand_total, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `

	var id string
	err = s.db.QueryRowContext(ctx, query,
		namespace,
		q.ClientName,
		q.ClientAddress,
		q.ClientEmail,
		q.QuoteNumber,
		q.QuoteDate,
		items,
		q.TaxRate,
		q.Subtotal,
		q.Tax,
		q.GrandTotal,
		q.CreatedAt,
		q.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to save quote: %w", err)
	}

	s.notify(ctx, namespace, collectionQuotes)
	return id, nil
}

func (s *PostgresStorage) UpdateQuote(ctx context.Context, namespace string, q devis.Quote) error {
	if s == nil || s.db == nil {
		return ErrNotReady
	}
	items, err := json.Marshal(q.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	const query = `
        UPDATE quotes SET
            client_name = $1, client_address = $2, client_email = $3,
            quote_number = $4, quote_date = $5, line_items = $6,
            tax_rate = $7, subtotal = $8, tax = $9, grand_total = $10,
            updated_at = $11
        WHERE namespace = $12 AND id = $13
    `

	res, err := s.db.ExecContext(ctx, query,
		q.ClientName,
		q.ClientAddress,
		q.ClientEmail,
		q.QuoteNumber,
		q.QuoteDate,
		items,
		q.TaxRate,
		q.Subtotal,
		q.Tax,
		q.GrandTotal,
		q.UpdatedAt,
		namespace,
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("quote %s not found", q.ID)
	}

	s.notify(ctx, namespace, collectionQuotes)
	return nil
}

func (s *PostgresStorage) DeleteQuote(ctx context.Context, namespace, id string) error {
	if s == nil || s.db == nil {
		return ErrNotReady
	}
	const query = `DELETE FROM quotes WHERE namespace = $1 AND id = $2`
	if _, err := s.db.ExecContext(ctx, query, namespace, id); err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}

	s.notify(ctx, namespace, collectionQuotes)
	return nil
}

func (s *PostgresStorage) ListQuotes(ctx context.Context, namespace string) ([]devis.Quote, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotReady
	}
	const query = `
        SELECT id, namespace, client_name, client_address, client_email,
               quote_number, quote_date, line_items, tax_rate,
               subtotal, tax, grand_total, created_at, updated_at
        FROM quotes
        WHERE namespace = $1
        ORDER BY created_at DESC
    `

	var rows []quoteRow
	if err := s.db.SelectContext(ctx, &rows, query, namespace); err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}

	quotes := make([]devis.Quote, 0, len(rows))
	for _, r := range rows {
		q, err := r.toQuote()
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (s *PostgresStorage) GetQuote(ctx context.Context, namespace, id string) (*devis.Quote, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotReady
	}
	const query = `
        SELECT id, namespace, client_name, client_address, client_email,
               quote_number, quote_date, line_items, tax_rate,
               subtotal, tax, grand_total, created_at, updated_at
        FROM quotes
        WHERE namespace = $1 AND id = $2
    `

	var row quoteRow
	err := s.db.GetContext(ctx, &row, query, namespace, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("quote not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	q, err := row.toQuote()
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *PostgresStorage) CreateProduct(ctx context.Context, namespace string, p devis.Product) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrNotReady
	}
	const query = `
        INSERT INTO products (namespace, name, description, purchase_price, default_margin)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	var id string
	err := s.db.QueryRowContext(ctx, query,
		namespace,
		p.Name,
		p.Description,
		p.PurchasePrice,
		p.DefaultMargin,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to save product: %w", err)
	}

	s.notify(ctx, namespace, collectionProducts)
	return id, nil
}

func (s *PostgresStorage) UpdateProduct(ctx context.Context, namespace string, p devis.Product) error {
	if s == nil || s.db == nil {
		return ErrNotReady
	}
	const query = `
        UPDATE products SET name = $1, description = $2, purchase_price = $3, default_margin = $4
        WHERE namespace = $5 AND id = $6
    `

	res, err := s.db.ExecContext(ctx, query,
		p.Name,
		p.Description,
		p.PurchasePrice,
		p.DefaultMargin,
		namespace,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s not found", p.ID)
	}

	s.notify(ctx, namespace, collectionProducts)
	return nil
}

func (s *PostgresStorage) DeleteProduct(ctx context.Context, namespace, id string) error {
	if s == nil || s.db == nil {
		return ErrNotReady
	}
	const query = `DELETE FROM products WHERE namespace = $1 AND id = $2`
	if _, err := s.db.ExecContext(ctx, query, namespace, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.notify(ctx, namespace, collectionProducts)
	return nil
}

func (s *PostgresStorage) ListProducts(ctx context.Context, namespace string) ([]devis.Product, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotReady
	}
	const query = `
        SELECT id, name, description, purchase_price, default_margin
        FROM products
        WHERE namespace = $1
        ORDER BY name
    `

	var products []devis.Product
	if err := s.db.SelectContext(ctx, &products, query, namespace); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// DB exposes the underlying connection for migrations.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
