package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/money"
	"penjualan/backend/internal/store"
	"penjualan/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables when missing and seeds the default payment
// methods. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const productColumns = `id, user_id, name, sku, price, stock, category_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var price decimal.Decimal
	var categoryID sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.SKU, &price, &p.Stock, &categoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	amount, err := money.FromDecimal(price)
	if err != nil {
		return nil, fmt.Errorf("product %s price: %w", p.ID, err)
	}
	p.Price = amount
	p.CategoryID = stringPtr(categoryID)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) FindOwnedProduct(ctx context.Context, productID string, ownerID string) (*domain.Product, error) {
	product, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND user_id = $2
	`, productID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) ListProductsByOwner(ctx context.Context, ownerID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE user_id = $1
		ORDER BY lower(name), id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, user_id, name, sku, price, stock, category_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, product.UserID, product.Name, product.SKU, product.Price.Decimal(), product.Stock,
		nullString(product.CategoryID), product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $3, sku = $4, price = $5, stock = $6, category_id = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
		RETURNING `+productColumns,
		product.ID, product.UserID, product.Name, product.SKU, product.Price.Decimal(), product.Stock,
		nullString(product.CategoryID), product.UpdatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID string, ownerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND user_id = $2`, productID, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindPaymentMethod(ctx context.Context, methodID string) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, is_active FROM payment_methods WHERE id = $1
	`, methodID).Scan(&m.ID, &m.Name, &m.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, is_active FROM payment_methods ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := make([]domain.PaymentMethod, 0, 8)
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.IsActive); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

func (s *Store) CreatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	if method.ID == "" {
		method.ID = xid.New("pm")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_methods (id, name, is_active) VALUES ($1,$2,$3)
	`, method.ID, method.Name, method.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := method
	return &created, nil
}

func (s *Store) SetPaymentMethodActive(ctx context.Context, methodID string, active bool) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	err := s.db.QueryRowContext(ctx, `
		UPDATE payment_methods SET is_active = $2 WHERE id = $1
		RETURNING id, name, is_active
	`, methodID, active).Scan(&m.ID, &m.Name, &m.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// InsertSale writes the whole sale, items and payment method snapshot
// included, as a single row.
func (s *Store) InsertSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	items, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, fmt.Errorf("encode sale items: %w", err)
	}
	var method any
	if sale.PaymentMethod != nil {
		encoded, err := json.Marshal(sale.PaymentMethod)
		if err != nil {
			return nil, fmt.Errorf("encode payment method: %w", err)
		}
		method = string(encoded)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (
			id, user_id, customer_id, items, total_amount, paid_amount, remaining_amount,
			status, invoice_number, payment_method, sale_date, notes, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, sale.ID, sale.UserID, nullString(sale.CustomerID), string(items),
		sale.TotalAmount.Decimal(), sale.PaidAmount.Decimal(), sale.RemainingAmount.Decimal(),
		string(sale.Status), nullString(sale.InvoiceNumber), method, sale.SaleDate,
		nullString(sale.Notes), sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := sale
	return &created, nil
}

const saleColumns = `id, user_id, customer_id, items, total_amount, paid_amount, remaining_amount,
	status, invoice_number, payment_method, sale_date, notes, created_at, updated_at`

func scanSale(row rowScanner) (*domain.Sale, error) {
	var sale domain.Sale
	var customerID, invoiceNumber, notes sql.NullString
	var items []byte
	var method []byte
	var total, paid, remaining decimal.Decimal
	var status string
	if err := row.Scan(
		&sale.ID,
		&sale.UserID,
		&customerID,
		&items,
		&total,
		&paid,
		&remaining,
		&status,
		&invoiceNumber,
		&method,
		&sale.SaleDate,
		&notes,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &sale.Items); err != nil {
		return nil, fmt.Errorf("decode sale %s items: %w", sale.ID, err)
	}
	if len(method) > 0 {
		var snapshot domain.PaymentMethod
		if err := json.Unmarshal(method, &snapshot); err != nil {
			return nil, fmt.Errorf("decode sale %s payment method: %w", sale.ID, err)
		}
		sale.PaymentMethod = &snapshot
	}

	var err error
	if sale.TotalAmount, err = money.FromDecimal(total); err != nil {
		return nil, err
	}
	if sale.PaidAmount, err = money.FromDecimal(paid); err != nil {
		return nil, err
	}
	if sale.RemainingAmount, err = money.FromDecimal(remaining); err != nil {
		return nil, err
	}
	sale.Status = domain.PaymentStatus(status)
	sale.CustomerID = stringPtr(customerID)
	sale.InvoiceNumber = stringPtr(invoiceNumber)
	sale.Notes = stringPtr(notes)
	sale.SaleDate = sale.SaleDate.UTC()
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	return &sale, nil
}

func (s *Store) ListSalesByOwner(ctx context.Context, ownerID string) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE user_id = $1
		ORDER BY sale_date DESC, created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) FindOwnedSale(ctx context.Context, saleID string, ownerID string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1 AND user_id = $2
	`, saleID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, phone_number, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.ID, user.Username, user.Email, user.PasswordHash, nullString(user.PhoneNumber), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := user
	return &created, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, `lower(username) = lower($1)`, username)
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.findUser(ctx, `id = $1`, userID)
}

func (s *Store) findUser(ctx context.Context, where string, value string) (*domain.User, error) {
	var user domain.User
	var phone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, phone_number, created_at
		FROM users
		WHERE `+where, value).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &phone, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.PhoneNumber = stringPtr(phone)
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullString(val *string) any {
	if val == nil {
		return nil
	}
	return *val
}

func stringPtr(val sql.NullString) *string {
	if !val.Valid {
		return nil
	}
	out := val.String
	return &out
}
