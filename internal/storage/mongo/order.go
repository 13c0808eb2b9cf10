package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/mini-store/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by the orders
// collection.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository returns an OrderRepository using the given database.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{coll: db.db.Collection(ordersCollection)}
}

type orderItemDoc struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Image     string               `bson:"image"`
	Quantity  int64                `bson:"quantity"`
}

type shippingAddressDoc struct {
	Name    string `bson:"name"`
	Phone   string `bson:"phone"`
	Address string `bson:"address"`
	City    string `bson:"city"`
	State   string `bson:"state"`
	Pincode string `bson:"pincode"`
}

type paymentInfoDoc struct {
	Method        string     `bson:"method"`
	TransactionID string     `bson:"transactionId,omitempty"`
	Status        string     `bson:"paymentStatus"`
	PaidAt        *time.Time `bson:"paidAt,omitempty"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"userId"`
	Items           []orderItemDoc       `bson:"items"`
	TotalItems      int64                `bson:"totalItems"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	ShippingAddress shippingAddressDoc   `bson:"shippingAddress"`
	Status          string               `bson:"status"`
	CancelReason    string               `bson:"cancelReason,omitempty"`
	CancelledAt     *time.Time           `bson:"cancelledAt,omitempty"`
	Payment         paymentInfoDoc       `bson:"paymentInfo"`
	DeliveredAt     *time.Time           `bson:"deliveredAt,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func toOrderDoc(o *order.Order) orderDoc {
	items := make([]orderItemDoc, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     toDecimal128(it.Price),
			Image:     it.Image,
			Quantity:  it.Quantity,
		}
	}
	return orderDoc{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       items,
		TotalItems:  o.TotalItems,
		TotalAmount: toDecimal128(o.TotalAmount),
		ShippingAddress: shippingAddressDoc{
			Name:    o.ShippingAddress.Name,
			Phone:   o.ShippingAddress.Phone,
			Address: o.ShippingAddress.Address,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			Pincode: o.ShippingAddress.Pincode,
		},
		Status:       string(o.Status),
		CancelReason: o.CancelReason,
		CancelledAt:  o.CancelledAt,
		Payment: paymentInfoDoc{
			Method:        string(o.Payment.Method),
			TransactionID: o.Payment.TransactionID,
			Status:        string(o.Payment.Status),
			PaidAt:        o.Payment.PaidAt,
		},
		DeliveredAt: o.DeliveredAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func (d orderDoc) toDomain() *order.Order {
	items := make([]order.Item, len(d.Items))
	for i, it := range d.Items {
		items[i] = order.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     fromDecimal128(it.Price),
			Image:     it.Image,
			Quantity:  it.Quantity,
		}
	}
	return &order.Order{
		ID:          d.ID,
		UserID:      d.UserID,
		Items:       items,
		TotalItems:  d.TotalItems,
		TotalAmount: fromDecimal128(d.TotalAmount),
		ShippingAddress: order.ShippingAddress{
			Name:    d.ShippingAddress.Name,
			Phone:   d.ShippingAddress.Phone,
			Address: d.ShippingAddress.Address,
			City:    d.ShippingAddress.City,
			State:   d.ShippingAddress.State,
			Pincode: d.ShippingAddress.Pincode,
		},
		Status:       order.Status(d.Status),
		CancelReason: d.CancelReason,
		CancelledAt:  d.CancelledAt,
		Payment: order.PaymentInfo{
			Method:        order.PaymentMethod(d.Payment.Method),
			TransactionID: d.Payment.TransactionID,
			Status:        order.PaymentState(d.Payment.Status),
			PaidAt:        d.Payment.PaidAt,
		},
		DeliveredAt: d.DeliveredAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Create inserts a new order document.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if _, err := r.coll.InsertOne(ctx, toOrderDoc(o)); err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}
	return nil
}

// GetByID returns an order regardless of owner.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByIDForUser returns the order only when userID owns it. Absence and
// foreign ownership are both order.ErrNotFound.
func (r *OrderRepository) GetByIDForUser(ctx context.Context, id, userID string) (*order.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id, "userId": userID})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*order.Order, error) {
	var doc orderDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}
	return doc.toDomain(), nil
}

// Update replaces the order document.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": o.ID}, toOrderDoc(o))
	if err != nil {
		return errors.Wrapf(err, "replace order %s", o.ID)
	}
	if res.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes the order document.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete order %s", id)
	}
	if res.DeletedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ListByUser returns userID's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]order.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}

	out := make([]order.Order, len(docs))
	for i, d := range docs {
		out[i] = *d.toDomain()
	}
	return out, nil
}
