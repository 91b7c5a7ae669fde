package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/money"
	"penjualan/backend/internal/store"
	"penjualan/backend/internal/xid"
)

const (
	DemoUsername        = "demo"
	defaultDemoPassword = "demo12345"
)

type Store struct {
	mu             sync.RWMutex
	usersByID      map[string]domain.User
	productsByID   map[string]domain.Product
	paymentMethods map[string]domain.PaymentMethod
	salesByID      map[string]domain.Sale
	saleOrder      []string
}

func New() *Store {
	return &Store{
		usersByID:      make(map[string]domain.User),
		productsByID:   make(map[string]domain.Product),
		paymentMethods: make(map[string]domain.PaymentMethod),
		salesByID:      make(map[string]domain.Sale),
	}
}

// NewSeeded returns a store holding a demo user, a few of their products and
// the default payment methods. The demo password comes from
// SEED_DEMO_PASSWORD and falls back to a dev default.
func NewSeeded(logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	password := os.Getenv("SEED_DEMO_PASSWORD")
	if password == "" {
		password = defaultDemoPassword
		logger.Warn("memory store uses the default demo credentials; set SEED_DEMO_PASSWORD to override")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s := New()
	now := time.Now().UTC()
	demo := domain.User{
		ID:           xid.New("usr"),
		Username:     DemoUsername,
		Email:        "demo@penjualan.local",
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	s.usersByID[demo.ID] = demo

	for _, p := range []struct {
		name  string
		sku   string
		price string
		stock int
	}{
		{"Beras Premium 5kg", "SKU-BERAS-05", "72500", 40},
		{"Minyak Goreng 2L", "SKU-MINYAK-02", "38900", 55},
		{"Gula Pasir 1kg", "SKU-GULA-01", "17400", 80},
		{"Kopi Bubuk 200g", "SKU-KOPI-02", "15000", 120},
	} {
		product := domain.Product{
			ID:        xid.New("prd"),
			UserID:    demo.ID,
			Name:      p.name,
			SKU:       p.sku,
			Price:     money.MustParse(p.price),
			Stock:     p.stock,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.productsByID[product.ID] = product
	}

	for _, m := range []domain.PaymentMethod{
		{ID: "pm_cash", Name: "Tunai", IsActive: true},
		{ID: "pm_transfer", Name: "Transfer Bank", IsActive: true},
		{ID: "pm_qris", Name: "QRIS", IsActive: true},
		{ID: "pm_credit", Name: "Kartu Kredit", IsActive: false},
	} {
		s.paymentMethods[m.ID] = m
	}
	return s, nil
}

func (s *Store) FindOwnedProduct(_ context.Context, productID string, ownerID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[productID]
	if !exists || product.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) ListProductsByOwner(_ context.Context, ownerID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0)
	for _, p := range s.productsByID {
		if p.UserID == ownerID {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if _, exists := s.productsByID[product.ID]; exists {
		return nil, store.ErrConflict
	}
	if s.skuTakenLocked(product.UserID, product.SKU, product.ID) {
		return nil, store.ErrConflict
	}
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.productsByID[product.ID]
	if !exists || current.UserID != product.UserID {
		return nil, store.ErrNotFound
	}
	if s.skuTakenLocked(product.UserID, product.SKU, product.ID) {
		return nil, store.ErrConflict
	}
	product.CreatedAt = current.CreatedAt
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, productID string, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[productID]
	if !exists || product.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(s.productsByID, productID)
	return nil
}

func (s *Store) skuTakenLocked(ownerID string, sku string, exceptID string) bool {
	for _, p := range s.productsByID {
		if p.ID != exceptID && p.UserID == ownerID && strings.EqualFold(p.SKU, sku) {
			return true
		}
	}
	return false
}

func (s *Store) FindPaymentMethod(_ context.Context, methodID string) (*domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	method, exists := s.paymentMethods[methodID]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &method, nil
}

func (s *Store) ListPaymentMethods(_ context.Context) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]domain.PaymentMethod, 0, len(s.paymentMethods))
	for _, m := range s.paymentMethods {
		methods = append(methods, m)
	}
	slices.SortFunc(methods, func(a, b domain.PaymentMethod) int {
		return strings.Compare(a.Name, b.Name)
	})
	return methods, nil
}

func (s *Store) CreatePaymentMethod(_ context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if method.ID == "" {
		method.ID = xid.New("pm")
	}
	if _, exists := s.paymentMethods[method.ID]; exists {
		return nil, store.ErrConflict
	}
	for _, m := range s.paymentMethods {
		if strings.EqualFold(m.Name, method.Name) {
			return nil, store.ErrConflict
		}
	}
	s.paymentMethods[method.ID] = method
	created := method
	return &created, nil
}

func (s *Store) SetPaymentMethodActive(_ context.Context, methodID string, active bool) (*domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	method, exists := s.paymentMethods[methodID]
	if !exists {
		return nil, store.ErrNotFound
	}
	method.IsActive = active
	s.paymentMethods[methodID] = method
	return &method, nil
}

func (s *Store) InsertSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, store.ErrConflict
	}
	if sale.InvoiceNumber != nil {
		for _, existing := range s.salesByID {
			if existing.InvoiceNumber != nil && *existing.InvoiceNumber == *sale.InvoiceNumber {
				return nil, store.ErrConflict
			}
		}
	}

	stored := cloneSale(sale)
	s.salesByID[stored.ID] = stored
	s.saleOrder = append(s.saleOrder, stored.ID)
	out := cloneSale(stored)
	return &out, nil
}

// ListSalesByOwner returns the owner's sales, newest first.
func (s *Store) ListSalesByOwner(_ context.Context, ownerID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0)
	for i := len(s.saleOrder) - 1; i >= 0; i-- {
		sale := s.salesByID[s.saleOrder[i]]
		if sale.UserID == ownerID {
			sales = append(sales, cloneSale(sale))
		}
	}
	slices.SortStableFunc(sales, func(a, b domain.Sale) int {
		return b.SaleDate.Compare(a.SaleDate)
	})
	return sales, nil
}

func (s *Store) FindOwnedSale(_ context.Context, saleID string, ownerID string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[saleID]
	if !exists || sale.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	for _, existing := range s.usersByID {
		if existing.ID == user.ID ||
			strings.EqualFold(existing.Username, user.Username) ||
			strings.EqualFold(existing.Email, user.Email) {
			return nil, store.ErrConflict
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByID[user.ID] = user
	created := user
	return &created, nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username = strings.TrimSpace(username)
	for _, user := range s.usersByID {
		if strings.EqualFold(user.Username, username) {
			found := user
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindUserByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[userID]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	dup.Items = slices.Clone(src.Items)
	if src.PaymentMethod != nil {
		method := *src.PaymentMethod
		dup.PaymentMethod = &method
	}
	dup.CustomerID = cloneString(src.CustomerID)
	dup.InvoiceNumber = cloneString(src.InvoiceNumber)
	dup.Notes = cloneString(src.Notes)
	return dup
}

func cloneString(src *string) *string {
	if src == nil {
		return nil
	}
	out := *src
	return &out
}
