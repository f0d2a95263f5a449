package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"devis-bot/internal/devis"
)

const (
	collectionQuotes   = "quotes"
	collectionProducts = "products"
)

func channelFor(namespace, collection string) string {
	return fmt.Sprintf("devis:%s:%s", namespace, collection)
}

// notify signals every subscriber of a namespace's collection that it
// changed. Best effort: a missed notification only delays the next
// snapshot, it never corrupts state.
func (s *PostgresStorage) notify(ctx context.Context, namespace, collection string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Publish(ctx, channelFor(namespace, collection), []byte("1")); err != nil {
		s.logger.Warn("failed to publish change notification",
			zap.String("namespace", namespace),
			zap.String("collection", collection),
			zap.Error(err))
	}
}

// SubscribeQuotes streams full quote collection snapshots for a namespace:
// one immediately, then one after every change. Consumers replace their
// cached list wholesale on each snapshot. The returned cancel func releases
// the subscription; the stream also ends when ctx is done.
func (s *PostgresStorage) SubscribeQuotes(ctx context.Context, namespace string) (<-chan []devis.Quote, func()) {
	out := make(chan []devis.Quote, 1)
	cancel := s.subscribe(ctx, namespace, collectionQuotes, func(ctx context.Context) {
		quotes, err := s.ListQuotes(ctx, namespace)
		if err != nil {
			s.logger.Error("failed to load quotes snapshot",
				zap.String("namespace", namespace), zap.Error(err))
			return
		}
		push(out, quotes)
	}, func() { close(out) })
	return out, cancel
}

// SubscribeProducts is the product-catalog counterpart of SubscribeQuotes.
func (s *PostgresStorage) SubscribeProducts(ctx context.Context, namespace string) (<-chan []devis.Product, func()) {
	out := make(chan []devis.Product, 1)
	cancel := s.subscribe(ctx, namespace, collectionProducts, func(ctx context.Context) {
		products, err := s.ListProducts(ctx, namespace)
		if err != nil {
			s.logger.Error("failed to load products snapshot",
				zap.String("namespace", namespace), zap.Error(err))
			return
		}
		push(out, products)
	}, func() { close(out) })
	return out, cancel
}

// push delivers a snapshot, dropping an undelivered older one first so a
// slow consumer always sees the latest collection. Single producer per
// channel.
func push[T any](out chan []T, snapshot []T) {
	for {
		select {
		case out <- snapshot:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}

func (s *PostgresStorage) subscribe(ctx context.Context, namespace, collection string, emit func(context.Context), done func()) func() {
	subCtx, cancel := context.WithCancel(ctx)
	sub := s.redis.Subscribe(subCtx, channelFor(namespace, collection))
	msgs := sub.Channel()

	go func() {
		defer done()
		defer sub.Close()

		// Initial snapshot before any change arrives.
		emit(subCtx)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				emit(subCtx)
			}
		}
	}()

	return cancel
}
