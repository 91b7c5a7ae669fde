package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"penjualan/backend/internal/money"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
)

// MaxNoteLength bounds Sale.Notes, counted in characters.
const MaxNoteLength = 255

// ClassifyPaymentStatus derives the status of a sale from its total and the
// amount already paid.
func ClassifyPaymentStatus(total money.Amount, paid money.Amount) PaymentStatus {
	remaining := total.Sub(paid)
	switch {
	case remaining <= 0:
		return PaymentStatusPaid
	case paid > 0:
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=50"`
	Email       string  `json:"email" validate:"required,email"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,min=6,max=20"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	User        User   `json:"user"`
}

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	UserID   string
	Username string
}

type Product struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	Name       string       `json:"name"`
	SKU        string       `json:"sku"`
	Price      money.Amount `json:"price"`
	Stock      int          `json:"stock"`
	CategoryID *string      `json:"category_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name       string       `json:"name" validate:"required,max=200"`
	SKU        string       `json:"sku" validate:"omitempty,max=64"`
	Price      money.Amount `json:"price" validate:"gte=10000"`
	Stock      int          `json:"stock" validate:"gte=0,lte=99999"`
	CategoryID *string      `json:"category_id,omitempty"`
}

type ProductUpdateRequest struct {
	Name       *string       `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	SKU        *string       `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	Price      *money.Amount `json:"price,omitempty" validate:"omitempty,gte=10000"`
	Stock      *int          `json:"stock,omitempty" validate:"omitempty,gte=0,lte=99999"`
	CategoryID *string       `json:"category_id,omitempty"`
}

// Empty reports whether the update carries no field at all.
func (r ProductUpdateRequest) Empty() bool {
	return r.Name == nil && r.SKU == nil && r.Price == nil && r.Stock == nil && r.CategoryID == nil
}

type PaymentMethod struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type PaymentMethodCreateRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type PaymentMethodToggleRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// SaleLineRequest is one requested line of a new sale. Price and Discount
// are client hints of any precision; the stored product price is always used.
type SaleLineRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  money.Quantity   `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
}

type CreateSaleRequest struct {
	CustomerID      *string           `json:"customer_id,omitempty"`
	Items           []SaleLineRequest `json:"items"`
	PaymentMethodID *string           `json:"payment_method_id,omitempty"`
	PaidAmount      money.Amount      `json:"paid_amount"`
	Notes           *string           `json:"notes,omitempty"`
}

// SaleItem is a point-in-time copy of the product at sale time.
type SaleItem struct {
	ProductID   string       `json:"product_id"`
	ProductName string       `json:"product_name"`
	SKU         string       `json:"sku"`
	Quantity    int64        `json:"quantity"`
	Price       money.Amount `json:"price"`
	Subtotal    money.Amount `json:"subtotal"`
}

type Sale struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	CustomerID      *string        `json:"customer_id,omitempty"`
	Items           []SaleItem     `json:"items"`
	TotalAmount     money.Amount   `json:"total_amount"`
	PaidAmount      money.Amount   `json:"paid_amount"`
	RemainingAmount money.Amount   `json:"remaining_amount"`
	Status          PaymentStatus  `json:"status"`
	InvoiceNumber   *string        `json:"invoice_number,omitempty"`
	PaymentMethod   *PaymentMethod `json:"payment_method,omitempty"`
	SaleDate        time.Time      `json:"sale_date"`
	Notes           *string        `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// SalesBalance aggregates a user's sales into receivable figures.
type SalesBalance struct {
	SaleCount       int          `json:"sale_count"`
	PaidCount       int          `json:"paid_count"`
	PartialCount    int          `json:"partial_count"`
	UnpaidCount     int          `json:"unpaid_count"`
	TotalAmount     money.Amount `json:"total_amount"`
	PaidAmount      money.Amount `json:"paid_amount"`
	RemainingAmount money.Amount `json:"remaining_amount"`
}
