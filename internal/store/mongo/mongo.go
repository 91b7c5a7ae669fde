package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/store"
	"penjualan/backend/internal/xid"
)

const (
	usersCollection          = "users"
	productsCollection       = "products"
	paymentMethodsCollection = "payment_methods"
	salesCollection          = "sales"
)

var defaultPaymentMethods = []domain.PaymentMethod{
	{ID: "pm_cash", Name: "Tunai", IsActive: true},
	{ID: "pm_transfer", Name: "Transfer Bank", IsActive: true},
	{ID: "pm_qris", Name: "QRIS", IsActive: true},
	{ID: "pm_credit", Name: "Kartu Kredit", IsActive: false},
}

type Store struct {
	client *mongodriver.Client
	db     *mongodriver.Database
}

func New(ctx context.Context, uri string, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()

	client, err := mongodriver.Connect(connectCtx, options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(30).
		SetServerSelectionTimeout(6*time.Second))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Migrate creates the unique indexes and seeds the default payment methods
// without overwriting existing ones.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongodriver.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username_lower", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email_lower", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "sku_lower", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		paymentMethodsCollection: {
			{Keys: bson.D{{Key: "name_lower", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		salesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "sale_date", Value: -1}}},
			{
				Keys: bson.D{{Key: "invoice_number", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"invoice_number": bson.M{"$exists": true}}),
			},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}

	methods := s.db.Collection(paymentMethodsCollection)
	for _, m := range defaultPaymentMethods {
		doc := paymentMethodDocument{ID: m.ID, Name: m.Name, NameLower: strings.ToLower(m.Name), IsActive: m.IsActive}
		_, err := methods.UpdateOne(ctx,
			bson.M{"_id": m.ID},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil && !mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("seed payment method %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *Store) FindOwnedProduct(ctx context.Context, productID string, ownerID string) (*domain.Product, error) {
	var doc productDocument
	err := s.db.Collection(productsCollection).FindOne(ctx, bson.M{"_id": productID, "user_id": ownerID}).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	product := doc.toDomain()
	return &product, nil
}

func (s *Store) ListProductsByOwner(ctx context.Context, ownerID string) ([]domain.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(&options.Collation{Locale: "en", Strength: 2})
	cursor, err := s.db.Collection(productsCollection).Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toDomain())
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if _, err := s.db.Collection(productsCollection).InsertOne(ctx, newProductDocument(product)); err != nil {
		return nil, translate(err)
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	doc := newProductDocument(product)
	var updated productDocument
	err := s.db.Collection(productsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": product.ID, "user_id": product.UserID},
		bson.M{"$set": bson.M{
			"name":        doc.Name,
			"sku":         doc.SKU,
			"sku_lower":   doc.SKULower,
			"price_minor": doc.PriceMinor,
			"stock":       doc.Stock,
			"category_id": doc.CategoryID,
			"updated_at":  doc.UpdatedAt,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, translate(err)
	}
	out := updated.toDomain()
	return &out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID string, ownerID string) error {
	res, err := s.db.Collection(productsCollection).DeleteOne(ctx, bson.M{"_id": productID, "user_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindPaymentMethod(ctx context.Context, methodID string) (*domain.PaymentMethod, error) {
	var doc paymentMethodDocument
	if err := s.db.Collection(paymentMethodsCollection).FindOne(ctx, bson.M{"_id": methodID}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	method := doc.toDomain()
	return &method, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	cursor, err := s.db.Collection(paymentMethodsCollection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []paymentMethodDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	methods := make([]domain.PaymentMethod, 0, len(docs))
	for _, doc := range docs {
		methods = append(methods, doc.toDomain())
	}
	return methods, nil
}

func (s *Store) CreatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	if method.ID == "" {
		method.ID = xid.New("pm")
	}
	doc := paymentMethodDocument{
		ID:        method.ID,
		Name:      method.Name,
		NameLower: strings.ToLower(method.Name),
		IsActive:  method.IsActive,
	}
	if _, err := s.db.Collection(paymentMethodsCollection).InsertOne(ctx, doc); err != nil {
		return nil, translate(err)
	}
	created := method
	return &created, nil
}

func (s *Store) SetPaymentMethodActive(ctx context.Context, methodID string, active bool) (*domain.PaymentMethod, error) {
	var doc paymentMethodDocument
	err := s.db.Collection(paymentMethodsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": methodID},
		bson.M{"$set": bson.M{"is_active": active}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	method := doc.toDomain()
	return &method, nil
}

// InsertSale stores the sale as one document, so no partial sale is ever
// visible.
func (s *Store) InsertSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if _, err := s.db.Collection(salesCollection).InsertOne(ctx, newSaleDocument(sale)); err != nil {
		return nil, translate(err)
	}
	created := sale
	return &created, nil
}

func (s *Store) ListSalesByOwner(ctx context.Context, ownerID string) ([]domain.Sale, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sale_date", Value: -1}, {Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(salesCollection).Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []saleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	sales := make([]domain.Sale, 0, len(docs))
	for _, doc := range docs {
		sales = append(sales, doc.toDomain())
	}
	return sales, nil
}

func (s *Store) FindOwnedSale(ctx context.Context, saleID string, ownerID string) (*domain.Sale, error) {
	var doc saleDocument
	if err := s.db.Collection(salesCollection).FindOne(ctx, bson.M{"_id": saleID, "user_id": ownerID}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	sale := doc.toDomain()
	return &sale, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	doc := userDocument{
		ID:            user.ID,
		Username:      user.Username,
		UsernameLower: strings.ToLower(user.Username),
		Email:         user.Email,
		EmailLower:    strings.ToLower(user.Email),
		PasswordHash:  user.PasswordHash,
		PhoneNumber:   user.PhoneNumber,
		CreatedAt:     user.CreatedAt,
	}
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, doc); err != nil {
		return nil, translate(err)
	}
	created := user
	return &created, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"username_lower": strings.ToLower(strings.TrimSpace(username))})
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"_id": userID})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	user := doc.toDomain()
	return &user, nil
}

func newProductDocument(p domain.Product) productDocument {
	return productDocument{
		ID:         p.ID,
		UserID:     p.UserID,
		Name:       p.Name,
		SKU:        p.SKU,
		SKULower:   strings.ToLower(p.SKU),
		PriceMinor: p.Price.Minor(),
		Stock:      p.Stock,
		CategoryID: p.CategoryID,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, mongodriver.ErrNoDocuments):
		return store.ErrNotFound
	case mongodriver.IsDuplicateKeyError(err):
		return store.ErrConflict
	default:
		return err
	}
}
