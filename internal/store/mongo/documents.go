package mongo

import (
	"time"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/money"
)

// Amounts are stored as int64 minor units.

type userDocument struct {
	ID            string    `bson:"_id"`
	Username      string    `bson:"username"`
	UsernameLower string    `bson:"username_lower"`
	Email         string    `bson:"email"`
	EmailLower    string    `bson:"email_lower"`
	PasswordHash  string    `bson:"password_hash"`
	PhoneNumber   *string   `bson:"phone_number,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
}

func (d userDocument) toDomain() domain.User {
	return domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		PhoneNumber:  d.PhoneNumber,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

type productDocument struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Name       string    `bson:"name"`
	SKU        string    `bson:"sku"`
	SKULower   string    `bson:"sku_lower"`
	PriceMinor int64     `bson:"price_minor"`
	Stock      int       `bson:"stock"`
	CategoryID *string   `bson:"category_id,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:         d.ID,
		UserID:     d.UserID,
		Name:       d.Name,
		SKU:        d.SKU,
		Price:      money.FromMinor(d.PriceMinor),
		Stock:      d.Stock,
		CategoryID: d.CategoryID,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

type paymentMethodDocument struct {
	ID        string `bson:"_id"`
	Name      string `bson:"name"`
	NameLower string `bson:"name_lower"`
	IsActive  bool   `bson:"is_active"`
}

func (d paymentMethodDocument) toDomain() domain.PaymentMethod {
	return domain.PaymentMethod{ID: d.ID, Name: d.Name, IsActive: d.IsActive}
}

type saleItemDocument struct {
	ProductID     string `bson:"product_id"`
	ProductName   string `bson:"product_name"`
	SKU           string `bson:"sku"`
	Quantity      int64  `bson:"quantity"`
	PriceMinor    int64  `bson:"price_minor"`
	SubtotalMinor int64  `bson:"subtotal_minor"`
}

type paymentMethodSnapshot struct {
	ID       string `bson:"id"`
	Name     string `bson:"name"`
	IsActive bool   `bson:"is_active"`
}

// saleSchemaVersion is bumped together with an explicit upgrade of stored
// sale documents.
const saleSchemaVersion = 1

type saleDocument struct {
	ID             string                 `bson:"_id"`
	SchemaVersion  int                    `bson:"schema_version"`
	UserID         string                 `bson:"user_id"`
	CustomerID     *string                `bson:"customer_id,omitempty"`
	Items          []saleItemDocument     `bson:"items"`
	TotalMinor     int64                  `bson:"total_minor"`
	PaidMinor      int64                  `bson:"paid_minor"`
	RemainingMinor int64                  `bson:"remaining_minor"`
	Status         string                 `bson:"status"`
	InvoiceNumber  *string                `bson:"invoice_number,omitempty"`
	PaymentMethod  *paymentMethodSnapshot `bson:"payment_method,omitempty"`
	SaleDate       time.Time              `bson:"sale_date"`
	Notes          *string                `bson:"notes,omitempty"`
	CreatedAt      time.Time              `bson:"created_at"`
	UpdatedAt      time.Time              `bson:"updated_at"`
}

func newSaleDocument(sale domain.Sale) saleDocument {
	items := make([]saleItemDocument, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, saleItemDocument{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			SKU:           item.SKU,
			Quantity:      item.Quantity,
			PriceMinor:    item.Price.Minor(),
			SubtotalMinor: item.Subtotal.Minor(),
		})
	}
	doc := saleDocument{
		ID:             sale.ID,
		SchemaVersion:  saleSchemaVersion,
		UserID:         sale.UserID,
		CustomerID:     sale.CustomerID,
		Items:          items,
		TotalMinor:     sale.TotalAmount.Minor(),
		PaidMinor:      sale.PaidAmount.Minor(),
		RemainingMinor: sale.RemainingAmount.Minor(),
		Status:         string(sale.Status),
		InvoiceNumber:  sale.InvoiceNumber,
		SaleDate:       sale.SaleDate,
		Notes:          sale.Notes,
		CreatedAt:      sale.CreatedAt,
		UpdatedAt:      sale.UpdatedAt,
	}
	if sale.PaymentMethod != nil {
		doc.PaymentMethod = &paymentMethodSnapshot{
			ID:       sale.PaymentMethod.ID,
			Name:     sale.PaymentMethod.Name,
			IsActive: sale.PaymentMethod.IsActive,
		}
	}
	return doc
}

func (d saleDocument) toDomain() domain.Sale {
	items := make([]domain.SaleItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.SaleItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			Price:       money.FromMinor(item.PriceMinor),
			Subtotal:    money.FromMinor(item.SubtotalMinor),
		})
	}
	sale := domain.Sale{
		ID:              d.ID,
		UserID:          d.UserID,
		CustomerID:      d.CustomerID,
		Items:           items,
		TotalAmount:     money.FromMinor(d.TotalMinor),
		PaidAmount:      money.FromMinor(d.PaidMinor),
		RemainingAmount: money.FromMinor(d.RemainingMinor),
		Status:          domain.PaymentStatus(d.Status),
		InvoiceNumber:   d.InvoiceNumber,
		SaleDate:        d.SaleDate.UTC(),
		Notes:           d.Notes,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
	if d.PaymentMethod != nil {
		sale.PaymentMethod = &domain.PaymentMethod{
			ID:       d.PaymentMethod.ID,
			Name:     d.PaymentMethod.Name,
			IsActive: d.PaymentMethod.IsActive,
		}
	}
	return sale
}
