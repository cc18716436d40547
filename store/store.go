// Package store is the MongoDB-backed document store. A Store is built once
// at startup and handed to the services; it owns the client lifecycle.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Arman3747/BloodConnect-Server/apperr"
)

const (
	UsersCollection    = "users"
	RequestsCollection = "donationRequests"
	BlogsCollection    = "blogs"
	FundsCollection    = "funds"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database

	Users    *UserRepo
	Requests *RequestRepo
	Blogs    *BlogRepo
	Funds    *FundRepo
}

// UpdateResult reports how many documents an update matched and changed.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Connect dials MongoDB with the stable server API and verifies the
// deployment with a ping.
func Connect(ctx context.Context, uri, dbName string, timeout time.Duration) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := New(client.Database(dbName), timeout)
	s.client = client
	return s, nil
}

// New wraps an existing database handle.
func New(db *mongo.Database, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{
		db:       db,
		Users:    &UserRepo{col: db.Collection(UsersCollection), timeout: timeout},
		Requests: &RequestRepo{col: db.Collection(RequestsCollection), timeout: timeout},
		Blogs:    &BlogRepo{col: db.Collection(BlogsCollection), timeout: timeout},
		Funds:    &FundRepo{col: db.Collection(FundsCollection), timeout: timeout},
	}
}

// EnsureIndexes creates the unique and sort indexes the services rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "user_email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		RequestsCollection: {
			{Keys: bson.D{{Key: "requester_email", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "donation_status", Value: 1}}},
		},
		BlogsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		FundsCollection: {
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "paid_at", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client. It is a no-op for stores built with New.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound(what + " not found")
	case mongo.IsDuplicateKeyError(err):
		return apperr.Wrap(apperr.CodeConflict, what+" already exists", err)
	default:
		return apperr.Upstream("could not reach "+what+" store", err)
	}
}

// ParseID decodes a hex object id. A malformed id names no document, so it
// is reported as NOT_FOUND for what.
func ParseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(what + " not found")
	}
	return id, nil
}

func updateResult(res *mongo.UpdateResult) UpdateResult {
	if res == nil {
		return UpdateResult{}
	}
	return UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}
}

func setDoc(set map[string]any, now time.Time) bson.M {
	doc := bson.M{"updated_at": now}
	for k, v := range set {
		doc[k] = v
	}
	return bson.M{"$set": doc}
}
