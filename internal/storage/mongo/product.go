package mongo

import (
	"context"
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/mini-store/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by the products
// collection.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository returns a ProductRepository using the given database.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{coll: db.db.Collection(productsCollection)}
}

// productDoc is the persisted shape of a catalog item.
type productDoc struct {
	ID           string               `bson:"_id"`
	Name         string               `bson:"name"`
	Category     string               `bson:"category"`
	Price        primitive.Decimal128 `bson:"price"`
	Discount     int64                `bson:"discount"`
	SellingPrice primitive.Decimal128 `bson:"sellingPrice"`
	Stock        int64                `bson:"stock"`
	Image        string               `bson:"image"`
	Description  string               `bson:"description"`
	IsActive     bool                 `bson:"isActive"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func toProductDoc(p *product.Product) productDoc {
	return productDoc{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Price:        toDecimal128(p.Price),
		Discount:     p.Discount,
		SellingPrice: toDecimal128(p.SellingPrice),
		Stock:        p.Stock,
		Image:        p.Image,
		Description:  p.Description,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (d productDoc) toDomain() product.Product {
	return product.Product{
		ID:           d.ID,
		Name:         d.Name,
		Category:     d.Category,
		Price:        fromDecimal128(d.Price),
		Discount:     d.Discount,
		SellingPrice: fromDecimal128(d.SellingPrice),
		Stock:        d.Stock,
		Image:        d.Image,
		Description:  d.Description,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Create inserts a new product document.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if _, err := r.coll.InsertOne(ctx, toProductDoc(p)); err != nil {
		return errors.Wrapf(err, "insert product %s", p.ID)
	}
	return nil
}

// Update replaces the product document.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, toProductDoc(p))
	if err != nil {
		return errors.Wrapf(err, "replace product %s", p.ID)
	}
	if res.MatchedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes the product document.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var doc productDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	p := doc.toDomain()
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs. Missing IDs are
// simply absent from the result; callers decide whether that is an error.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return collectProducts(ctx, cursor)
}

// List returns the full catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return collectProducts(ctx, cursor)
}

// Search performs a case-insensitive substring match on the name field,
// capped at limit results. The query is quoted so user input cannot inject
// regex metacharacters.
func (r *ProductRepository) Search(ctx context.Context, query string, limit int64) ([]product.Product, error) {
	filter := bson.M{"name": bson.M{
		"$regex":   regexp.QuoteMeta(query),
		"$options": "i",
	}}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, errors.Wrapf(err, "search products %q", query)
	}
	return collectProducts(ctx, cursor)
}

// UpsertByName inserts the product or refreshes the existing document
// sharing its name. The original _id and createdAt survive a refresh so
// re-running the seeder never rewrites identity. Seed tooling only.
func (r *ProductRepository) UpsertByName(ctx context.Context, p *product.Product) error {
	doc := toProductDoc(p)
	update := bson.M{
		"$set": bson.M{
			"category":     doc.Category,
			"price":        doc.Price,
			"discount":     doc.Discount,
			"sellingPrice": doc.SellingPrice,
			"stock":        doc.Stock,
			"image":        doc.Image,
			"description":  doc.Description,
			"isActive":     doc.IsActive,
			"updatedAt":    doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":       doc.ID,
			"createdAt": doc.CreatedAt,
		},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"name": doc.Name}, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "upsert product %q", p.Name)
	}
	return nil
}

// AdjustStock applies an atomic stock delta. Decrements are conditional on
// sufficient stock so the level can never go negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int64) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"stock": delta}})
	if err != nil {
		return errors.Wrapf(err, "adjust stock for product %s", id)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Distinguish "not enough stock" from "no such product".
	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "check product %s", id)
	}
	if count == 0 {
		return product.ErrNotFound
	}
	return product.ErrInsufficientStock
}

func collectProducts(ctx context.Context, cursor *mongo.Cursor) ([]product.Product, error) {
	defer cursor.Close(ctx)

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}

	out := make([]product.Product, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}
