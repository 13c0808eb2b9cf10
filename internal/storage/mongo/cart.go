package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/mini-store/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by the carts collection.
// The unique index on userId enforces one cart per user; the version field
// backs the optimistic concurrency check in Update.
type CartRepository struct {
	coll *mongo.Collection
}

// NewCartRepository returns a CartRepository using the given database.
func NewCartRepository(db *DB) *CartRepository {
	return &CartRepository{coll: db.db.Collection(cartsCollection)}
}

type cartItemDoc struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Image     string               `bson:"image"`
	Quantity  int64                `bson:"quantity"`
}

type cartDoc struct {
	ID         string               `bson:"_id"`
	UserID     string               `bson:"userId"`
	Items      []cartItemDoc        `bson:"items"`
	TotalItems int64                `bson:"totalItems"`
	TotalPrice primitive.Decimal128 `bson:"totalPrice"`
	Version    int64                `bson:"version"`
	CreatedAt  time.Time            `bson:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt"`
}

func toCartDoc(c *cart.Cart) cartDoc {
	items := make([]cartItemDoc, len(c.Items))
	for i, it := range c.Items {
		items[i] = cartItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     toDecimal128(it.Price),
			Image:     it.Image,
			Quantity:  it.Quantity,
		}
	}
	return cartDoc{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      items,
		TotalItems: c.TotalItems,
		TotalPrice: toDecimal128(c.TotalPrice),
		Version:    c.Version,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (d cartDoc) toDomain() *cart.Cart {
	items := make([]cart.LineItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = cart.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     fromDecimal128(it.Price),
			Image:     it.Image,
			Quantity:  it.Quantity,
		}
	}
	return &cart.Cart{
		ID:         d.ID,
		UserID:     d.UserID,
		Items:      items,
		TotalItems: d.TotalItems,
		TotalPrice: fromDecimal128(d.TotalPrice),
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// FindByUser returns the cart owned by userID.
func (r *CartRepository) FindByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	var doc cartDoc
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find cart for user %s", userID)
	}
	return doc.toDomain(), nil
}

// Create inserts a new cart. A duplicate userId insert maps to
// cart.ErrAlreadyExists so the service can fall back to the winner.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	if _, err := r.coll.InsertOne(ctx, toCartDoc(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return cart.ErrAlreadyExists
		}
		return errors.Wrapf(err, "insert cart for user %s", c.UserID)
	}
	return nil
}

// Update persists the cart under an optimistic version check: the write
// matches on the version the service read and bumps it, so a concurrent
// writer that got there first makes this call fail with ErrVersionConflict.
func (r *CartRepository) Update(ctx context.Context, c *cart.Cart) error {
	doc := toCartDoc(c)
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": c.ID, "version": c.Version},
		bson.M{
			"$set": bson.M{
				"items":      doc.Items,
				"totalItems": doc.TotalItems,
				"totalPrice": doc.TotalPrice,
				"updatedAt":  doc.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "update cart %s", c.ID)
	}
	if res.MatchedCount == 0 {
		return cart.ErrVersionConflict
	}
	return nil
}
