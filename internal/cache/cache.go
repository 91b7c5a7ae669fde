package cache

import (
	"context"
	"time"

	"penjualan/backend/internal/domain"
)

// PaymentMethodCache holds payment method records keyed by id.
type PaymentMethodCache interface {
	Get(ctx context.Context, methodID string) (*domain.PaymentMethod, bool, error)
	Set(ctx context.Context, method *domain.PaymentMethod, ttl time.Duration) error
	Delete(ctx context.Context, methodID string) error
}

type NoopPaymentMethodCache struct{}

func (NoopPaymentMethodCache) Get(_ context.Context, _ string) (*domain.PaymentMethod, bool, error) {
	return nil, false, nil
}

func (NoopPaymentMethodCache) Set(_ context.Context, _ *domain.PaymentMethod, _ time.Duration) error {
	return nil
}

func (NoopPaymentMethodCache) Delete(_ context.Context, _ string) error {
	return nil
}
