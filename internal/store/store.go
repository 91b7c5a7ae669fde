package store

import (
	"context"
	"errors"

	"penjualan/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ProductStore reads and writes products. Every call is scoped by owner; a
// product owned by someone else behaves exactly like a missing one.
type ProductStore interface {
	FindOwnedProduct(ctx context.Context, productID string, ownerID string) (*domain.Product, error)
	ListProductsByOwner(ctx context.Context, ownerID string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, productID string, ownerID string) error
}

type PaymentMethodStore interface {
	FindPaymentMethod(ctx context.Context, methodID string) (*domain.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error)
	SetPaymentMethodActive(ctx context.Context, methodID string, active bool) (*domain.PaymentMethod, error)
}

// SaleStore persists sale aggregates. InsertSale writes the whole aggregate
// in one operation or nothing at all.
type SaleStore interface {
	InsertSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSalesByOwner(ctx context.Context, ownerID string) ([]domain.Sale, error)
	FindOwnedSale(ctx context.Context, saleID string, ownerID string) (*domain.Sale, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
}

type Repository interface {
	ProductStore
	PaymentMethodStore
	SaleStore
	UserStore
}
