package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/logging"
	"penjualan/backend/internal/money"
	"penjualan/backend/internal/payments"
	"penjualan/backend/internal/sales"
	"penjualan/backend/internal/store"
	"penjualan/backend/internal/xid"
)

var ErrUnauthorized = errors.New("authentication required")

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok && actor.UserID != ""
}

const skuAttempts = 3

type Service struct {
	repo     store.Repository
	sales    *sales.Engine
	payments *payments.Gateway
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func New(repo store.Repository, engine *sales.Engine, gateway *payments.Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		sales:    engine,
		payments: gateway,
		validate: NewValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// NewValidator returns a validator that names fields after their json tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct validation and converts the first failure into a
// *ValidationError.
func Validate(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: validationMessage(fe)}
}

var amountType = reflect.TypeOf(money.Amount(0))

func validationMessage(fe validator.FieldError) string {
	param := fe.Param()
	if fe.Type() == amountType || fe.Type() == reflect.PointerTo(amountType) {
		if minor, err := strconv.ParseInt(param, 10, 64); err == nil {
			param = money.FromMinor(minor).String()
		}
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + param + " characters"
		}
		return "must be at least " + param
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + param + " characters"
		}
		return "must be at most " + param
	case "gte":
		return "must be at least " + param
	case "lte":
		return "must be at most " + param
	default:
		return "is invalid"
	}
}

func (s *Service) actor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, ErrUnauthorized
	}
	return actor, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProductsByOwner(ctx, actor.UserID)
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.FindOwnedProduct(ctx, strings.TrimSpace(productID), actor.UserID)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	if err := Validate(s.validate, req); err != nil {
		return domain.Product{}, err
	}

	now := s.now().UTC()
	product := domain.Product{
		UserID:     actor.UserID,
		Name:       req.Name,
		SKU:        req.SKU,
		Price:      req.Price,
		Stock:      req.Stock,
		CategoryID: trimmedOptional(req.CategoryID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	generated := product.SKU == ""
	for attempt := 1; ; attempt++ {
		product.ID = xid.New("prd")
		if generated {
			product.SKU = xid.SKU()
		}
		created, err := s.repo.CreateProduct(ctx, product)
		if err == nil {
			logging.FromContext(ctx, s.logger).Info("product created", zap.String("product_id", created.ID), zap.String("user_id", actor.UserID), zap.String("sku", created.SKU))
			return *created, nil
		}
		if !generated || !errors.Is(err, store.ErrConflict) || attempt >= skuAttempts {
			return domain.Product{}, err
		}
	}
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if req.Empty() {
		return domain.Product{}, &ValidationError{Message: "no fields to update"}
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*req.SKU))
		req.SKU = &sku
	}
	if err := Validate(s.validate, req); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.FindOwnedProduct(ctx, strings.TrimSpace(productID), actor.UserID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.SKU != nil {
		updated.SKU = *req.SKU
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		updated.CategoryID = trimmedOptional(req.CategoryID)
	}
	updated.UpdatedAt = s.now().UTC()

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, strings.TrimSpace(productID), actor.UserID)
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

func (s *Service) CreatePaymentMethod(ctx context.Context, req domain.PaymentMethodCreateRequest) (domain.PaymentMethod, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := Validate(s.validate, req); err != nil {
		return domain.PaymentMethod{}, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	created, err := s.repo.CreatePaymentMethod(ctx, domain.PaymentMethod{
		ID:       xid.New("pm"),
		Name:     req.Name,
		IsActive: active,
	})
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	return *created, nil
}

// SetPaymentMethodActive toggles a method and drops its cache entry. Sales
// already holding a snapshot of the method are not touched.
func (s *Service) SetPaymentMethodActive(ctx context.Context, methodID string, active bool) (domain.PaymentMethod, error) {
	methodID = strings.TrimSpace(methodID)
	updated, err := s.repo.SetPaymentMethodActive(ctx, methodID, active)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	if s.payments != nil {
		s.payments.Invalidate(ctx, methodID)
	}
	logging.FromContext(ctx, s.logger).Info("payment method toggled", zap.String("payment_method_id", methodID), zap.Bool("is_active", active))
	return *updated, nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.CreateSaleRequest) (domain.Sale, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.sales.CreateSale(ctx, actor.UserID, req)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSalesByOwner(ctx, actor.UserID)
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.FindOwnedSale(ctx, strings.TrimSpace(saleID), actor.UserID)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// Balance sums the caller's sales. RemainingAmount only counts positive
// remainders, so overpayments do not offset other receivables.
func (s *Service) Balance(ctx context.Context) (domain.SalesBalance, error) {
	list, err := s.ListSales(ctx)
	if err != nil {
		return domain.SalesBalance{}, err
	}

	var balance domain.SalesBalance
	for _, sale := range list {
		balance.SaleCount++
		switch sale.Status {
		case domain.PaymentStatusPaid:
			balance.PaidCount++
		case domain.PaymentStatusPartial:
			balance.PartialCount++
		default:
			balance.UnpaidCount++
		}

		outstanding := money.Clamp(sale.RemainingAmount, 0, sale.TotalAmount)
		if balance.TotalAmount, err = money.Sum(balance.TotalAmount, sale.TotalAmount); err != nil {
			return domain.SalesBalance{}, fmt.Errorf("sum totals: %w", err)
		}
		if balance.PaidAmount, err = money.Sum(balance.PaidAmount, sale.PaidAmount); err != nil {
			return domain.SalesBalance{}, fmt.Errorf("sum paid: %w", err)
		}
		if balance.RemainingAmount, err = money.Sum(balance.RemainingAmount, outstanding); err != nil {
			return domain.SalesBalance{}, fmt.Errorf("sum remaining: %w", err)
		}
	}
	return balance, nil
}

func trimmedOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
