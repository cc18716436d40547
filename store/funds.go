package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Arman3747/BloodConnect-Server/models"
)

// FundRepo exposes insert and read only; ledger lines are never changed.
type FundRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

func (r *FundRepo) Insert(ctx context.Context, f *models.FundEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, f)
	return translate(err, "fund entry")
}

func (r *FundRepo) List(ctx context.Context) ([]models.FundEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "paid_at", Value: -1}}))
	if err != nil {
		return nil, translate(err, "fund entry")
	}
	funds := []models.FundEntry{}
	if err := cursor.All(ctx, &funds); err != nil {
		return nil, translate(err, "fund entry")
	}
	return funds, nil
}
