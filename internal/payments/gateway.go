package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"penjualan/backend/internal/cache"
	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/logging"
	"penjualan/backend/internal/store"
)

var (
	ErrNotFound = errors.New("payment method not found")
	ErrInactive = errors.New("payment method is inactive")
)

const DefaultCacheTTL = time.Minute

type MethodReader interface {
	FindPaymentMethod(ctx context.Context, methodID string) (*domain.PaymentMethod, error)
}

// Gateway resolves payment methods for new sales. Lookups read through the
// cache; a cache failure is logged and the repository answers instead.
type Gateway struct {
	repo   MethodReader
	cache  cache.PaymentMethodCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewGateway(repo MethodReader, methodCache cache.PaymentMethodCache, ttl time.Duration, logger *zap.Logger) *Gateway {
	if methodCache == nil {
		methodCache = cache.NoopPaymentMethodCache{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{repo: repo, cache: methodCache, ttl: ttl, logger: logger}
}

// FindActive returns the method when it exists and is active. Missing and
// inactive methods are reported as ErrNotFound and ErrInactive respectively.
func (g *Gateway) FindActive(ctx context.Context, methodID string) (*domain.PaymentMethod, error) {
	method, err := g.find(ctx, methodID)
	if err != nil {
		return nil, err
	}
	if !method.IsActive {
		return nil, ErrInactive
	}
	return method, nil
}

func (g *Gateway) find(ctx context.Context, methodID string) (*domain.PaymentMethod, error) {
	cached, ok, err := g.cache.Get(ctx, methodID)
	if err != nil {
		logging.FromContext(ctx, g.logger).Warn("payment method cache read failed", zap.String("payment_method_id", methodID), zap.Error(err))
	} else if ok && cached != nil {
		return cached, nil
	}

	method, err := g.repo.FindPaymentMethod(ctx, methodID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payment method %s: %w", methodID, err)
	}

	if err := g.cache.Set(ctx, method, g.ttl); err != nil {
		logging.FromContext(ctx, g.logger).Warn("payment method cache write failed", zap.String("payment_method_id", methodID), zap.Error(err))
	}
	return method, nil
}

// Invalidate drops the cached entry so the next lookup sees the stored state.
func (g *Gateway) Invalidate(ctx context.Context, methodID string) {
	if err := g.cache.Delete(ctx, methodID); err != nil {
		logging.FromContext(ctx, g.logger).Warn("payment method cache invalidation failed", zap.String("payment_method_id", methodID), zap.Error(err))
	}
}
