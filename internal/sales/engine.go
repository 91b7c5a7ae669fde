package sales

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/logging"
	"penjualan/backend/internal/money"
	"penjualan/backend/internal/payments"
	"penjualan/backend/internal/store"
)

type ProductLookup interface {
	FindOwnedProduct(ctx context.Context, productID string, ownerID string) (*domain.Product, error)
}

// PaymentMethodLookup reports payments.ErrNotFound or payments.ErrInactive
// for methods that cannot be attached to a new sale.
type PaymentMethodLookup interface {
	FindActive(ctx context.Context, methodID string) (*domain.PaymentMethod, error)
}

type SaleRepository interface {
	InsertSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
}

type Option func(*Engine)

// WithClock replaces time.Now as the source of sale timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine turns a sale request into a fully priced Sale and persists it. It
// keeps no state between calls.
type Engine struct {
	products ProductLookup
	methods  PaymentMethodLookup
	sales    SaleRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(products ProductLookup, methods PaymentMethodLookup, sales SaleRepository, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		products: products,
		methods:  methods,
		sales:    sales,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateSale validates and prices req for callerID and stores the result.
// Every line is priced from the stored product; client prices are ignored.
// Any failure aborts the whole sale and nothing is written.
func (e *Engine) CreateSale(ctx context.Context, callerID string, req domain.CreateSaleRequest) (*domain.Sale, error) {
	quantities, notes, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	subtotals := make([]money.Amount, 0, len(req.Items))
	for i, line := range req.Items {
		item, err := e.resolveLine(ctx, callerID, i, line, quantities[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		subtotals = append(subtotals, item.Subtotal)
	}

	var method *domain.PaymentMethod
	if methodID := trimmedOrEmpty(req.PaymentMethodID); methodID != "" {
		method, err = e.resolvePaymentMethod(ctx, methodID)
		if err != nil {
			return nil, err
		}
	}

	total, err := money.Sum(subtotals...)
	if err != nil {
		return nil, newError(KindInvalidQuantity, err)
	}
	remaining := total.Sub(req.PaidAmount)

	now := e.now().UTC()
	sale := domain.Sale{
		UserID:          callerID,
		CustomerID:      optionalTrimmed(req.CustomerID),
		Items:           items,
		TotalAmount:     total,
		PaidAmount:      req.PaidAmount,
		RemainingAmount: remaining,
		Status:          domain.ClassifyPaymentStatus(total, req.PaidAmount),
		PaymentMethod:   method,
		SaleDate:        now,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stored, err := e.sales.InsertSale(ctx, sale)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, newError(KindConflict, err)
		}
		return nil, newError(KindStorage, err)
	}

	logging.FromContext(ctx, e.logger).Info("sale created",
		zap.String("sale_id", stored.ID),
		zap.String("user_id", callerID),
		zap.Int("items", len(stored.Items)),
		zap.String("total_amount", stored.TotalAmount.String()),
		zap.String("status", string(stored.Status)),
	)
	return stored, nil
}

// validateRequest runs every check that needs no I/O.
func validateRequest(req domain.CreateSaleRequest) ([]int64, *string, error) {
	if len(req.Items) == 0 {
		return nil, nil, newError(KindEmptyOrder, nil)
	}
	if req.PaidAmount.IsNegative() {
		return nil, nil, newError(KindInvalidPayment, nil)
	}

	notes := optionalTrimmed(req.Notes)
	if notes != nil && utf8.RuneCountInString(*notes) > domain.MaxNoteLength {
		return nil, nil, newError(KindNoteTooLong, nil)
	}

	quantities := make([]int64, len(req.Items))
	for i, line := range req.Items {
		qty, ok := line.Quantity.Count()
		if !ok {
			return nil, nil, newLineError(KindInvalidQuantity, i, line.ProductID, nil)
		}
		quantities[i] = qty
	}
	return quantities, notes, nil
}

func (e *Engine) resolveLine(ctx context.Context, callerID string, index int, line domain.SaleLineRequest, qty int64) (domain.SaleItem, error) {
	productID := strings.TrimSpace(line.ProductID)
	if productID == "" {
		return domain.SaleItem{}, newLineError(KindLineProductNotFound, index, line.ProductID, nil)
	}

	product, err := e.products.FindOwnedProduct(ctx, productID, callerID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.SaleItem{}, newLineError(KindLineProductNotFound, index, productID, nil)
	}
	if err != nil {
		return domain.SaleItem{}, newLineError(KindStorage, index, productID, err)
	}

	if line.Price != nil && !money.HintWithinTolerance(*line.Price, product.Price) {
		logging.FromContext(ctx, e.logger).Warn("client price differs from stored price",
			zap.Int("line", index),
			zap.String("product_id", product.ID),
			zap.String("client_price", line.Price.String()),
			zap.String("stored_price", product.Price.String()),
		)
	}
	if line.Discount != nil && !line.Discount.IsZero() {
		logging.FromContext(ctx, e.logger).Warn("client discount ignored",
			zap.Int("line", index),
			zap.String("product_id", product.ID),
			zap.String("client_discount", line.Discount.String()),
		)
	}

	subtotal, err := product.Price.Times(qty)
	if err != nil {
		return domain.SaleItem{}, newLineError(KindInvalidQuantity, index, productID, err)
	}

	return domain.SaleItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		SKU:         product.SKU,
		Quantity:    qty,
		Price:       product.Price,
		Subtotal:    subtotal,
	}, nil
}

func (e *Engine) resolvePaymentMethod(ctx context.Context, methodID string) (*domain.PaymentMethod, error) {
	method, err := e.methods.FindActive(ctx, methodID)
	switch {
	case errors.Is(err, payments.ErrNotFound):
		return nil, newError(KindPaymentMethodNotFound, nil)
	case errors.Is(err, payments.ErrInactive):
		return nil, newError(KindPaymentMethodInactive, nil)
	case err != nil:
		return nil, newError(KindStorage, err)
	}
	snapshot := *method
	return &snapshot, nil
}

func trimmedOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func optionalTrimmed(value *string) *string {
	trimmed := trimmedOrEmpty(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
