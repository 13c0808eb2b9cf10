package mongo

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/mini-store/internal/domain/auth"
	"github.com/xenking/mini-store/internal/domain/user"
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by the users collection.
// Wishlist and address mutations use atomic update operators so concurrent
// edits to the same profile cannot clobber each other.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository returns a UserRepository using the given database.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{coll: db.db.Collection(usersCollection)}
}

type addressDoc struct {
	Name    string `bson:"name"`
	Phone   string `bson:"phone"`
	Address string `bson:"address"`
	City    string `bson:"city"`
	State   string `bson:"state"`
	Pincode string `bson:"pincode"`
}

type userDoc struct {
	ID           string       `bson:"_id"`
	Name         string       `bson:"name"`
	Email        string       `bson:"email"`
	Role         string       `bson:"role"`
	IsBlocked    bool         `bson:"isBlocked"`
	Addresses    []addressDoc `bson:"addresses"`
	Wishlist     []string     `bson:"wishlist"`
	ProfileImage string       `bson:"profileImage,omitempty"`
	CreatedAt    time.Time    `bson:"createdAt"`
	UpdatedAt    time.Time    `bson:"updatedAt"`
}

func toAddressDoc(a user.Address) addressDoc {
	return addressDoc{
		Name:    a.Name,
		Phone:   a.Phone,
		Address: a.Address,
		City:    a.City,
		State:   a.State,
		Pincode: a.Pincode,
	}
}

func (d userDoc) toDomain() user.User {
	addresses := make([]user.Address, len(d.Addresses))
	for i, a := range d.Addresses {
		addresses[i] = user.Address{
			Name:    a.Name,
			Phone:   a.Phone,
			Address: a.Address,
			City:    a.City,
			State:   a.State,
			Pincode: a.Pincode,
		}
	}
	return user.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		Role:         auth.Role(d.Role),
		IsBlocked:    d.IsBlocked,
		Addresses:    addresses,
		Wishlist:     d.Wishlist,
		ProfileImage: d.ProfileImage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// GetByID returns a user profile by its identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get user %s", id)
	}
	u := doc.toDomain()
	return &u, nil
}

// Update persists profile field changes. Wishlist and addresses are managed
// through their dedicated atomic operations and left untouched here.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"name":         u.Name,
		"email":        u.Email,
		"profileImage": u.ProfileImage,
		"updatedAt":    u.UpdatedAt,
	}})
	if err != nil {
		return errors.Wrapf(err, "update user %s", u.ID)
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

// List returns one page of users, newest first, plus the total count.
func (r *UserRepository) List(ctx context.Context, page, limit int64) ([]user.User, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, errors.Wrap(err, "decode users")
	}

	out := make([]user.User, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, total, nil
}

// AddWishlist adds productID as a set member.
func (r *UserRepository) AddWishlist(ctx context.Context, userID, productID string) error {
	return r.updateByID(ctx, userID, bson.M{"$addToSet": bson.M{"wishlist": productID}})
}

// RemoveWishlist removes productID; absent entries are a no-op.
func (r *UserRepository) RemoveWishlist(ctx context.Context, userID, productID string) error {
	return r.updateByID(ctx, userID, bson.M{"$pull": bson.M{"wishlist": productID}})
}

// AddAddress appends a saved address.
func (r *UserRepository) AddAddress(ctx context.Context, userID string, addr user.Address) error {
	return r.updateByID(ctx, userID, bson.M{"$push": bson.M{"addresses": toAddressDoc(addr)}})
}

// RemoveAddress removes the address at index using the unset-then-pull
// idiom, since $pull cannot target a position directly.
func (r *UserRepository) RemoveAddress(ctx context.Context, userID string, index int) error {
	if index < 0 {
		return user.ErrNotFound
	}

	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if index >= len(u.Addresses) {
		return user.ErrNotFound
	}

	field := bson.M{"addresses." + strconv.Itoa(index): 1}
	if err := r.updateByID(ctx, userID, bson.M{"$unset": field}); err != nil {
		return err
	}
	return r.updateByID(ctx, userID, bson.M{"$pull": bson.M{"addresses": nil}})
}

// SetBlocked flips the account block flag.
func (r *UserRepository) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	return r.updateByID(ctx, userID, bson.M{"$set": bson.M{"isBlocked": blocked}})
}

func (r *UserRepository) updateByID(ctx context.Context, userID string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return errors.Wrapf(err, "update user %s", userID)
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}
