// Package mongostore persists users and trips in MongoDB, the default
// backend. Trip documents are stored as submitted, plus the owner fields.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"journal-service/internal/trips"
	"journal-service/internal/users"
)

const (
	usersCollection = "users"
	tripsCollection = "trips"
)

// EnsureIndexes creates the unique email index and the owner lookup index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	_, err = db.Collection(tripsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("trips owner index: %w", err)
	}
	return nil
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

// Users is a users.Repository over the users collection.
type Users struct{ coll *mongo.Collection }

func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(usersCollection)}
}

func (r *Users) Create(ctx context.Context, u *users.User) error {
	res, err := r.coll.InsertOne(ctx, userDoc{Email: u.Email, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.ErrEmailTaken
		}
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id %T", res.InsertedID)
	}
	u.ID = oid.Hex()
	return nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	var d userDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrNotFound
		}
		return nil, err
	}
	return &users.User{ID: d.ID.Hex(), Email: d.Email, PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt}, nil
}

// Trips is a trips.Repository over the trips collection.
type Trips struct{ coll *mongo.Collection }

func NewTrips(db *mongo.Database) *Trips {
	return &Trips{coll: db.Collection(tripsCollection)}
}

func (r *Trips) Insert(ctx context.Context, rec *trips.Record) error {
	_, err := r.coll.InsertOne(ctx, toDoc(rec))
	return err
}

// InsertMany writes the batch in order. MongoDB has no cross-document
// atomicity here: documents before a failing one stay written.
func (r *Trips) InsertMany(ctx context.Context, recs []*trips.Record) error {
	docs := make([]any, len(recs))
	for i, rec := range recs {
		docs[i] = toDoc(rec)
	}
	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

// ListByOwner returns records in natural order. A submitted record may carry
// its own _id of any type, so sorting on _id would not follow insertion.
func (r *Trips) ListByOwner(ctx context.Context, userID string) ([]*trips.Record, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}})
	cur, err := r.coll.Find(ctx, bson.D{{Key: "user_id", Value: userID}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*trips.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDoc(d))
	}
	return out, nil
}
