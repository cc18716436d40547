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

type RequestRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}}

func (r *RequestRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.DonationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var dr models.DonationRequest
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&dr); err != nil {
		return nil, translate(err, "donation request")
	}
	return &dr, nil
}

func (r *RequestRepo) ListByStatus(ctx context.Context, status string) ([]models.DonationRequest, error) {
	return r.find(ctx, bson.M{"donation_status": status}, options.Find().SetSort(newestFirst))
}

func (r *RequestRepo) ListByRequester(ctx context.Context, email string) ([]models.DonationRequest, error) {
	return r.find(ctx, bson.M{"requester_email": email}, options.Find().SetSort(newestFirst))
}

// Page returns one page of all requests, newest first, together with the
// total count. limit == 0 returns everything.
func (r *RequestRepo) Page(ctx context.Context, page, limit int64) ([]models.DonationRequest, int64, error) {
	countCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	total, err := r.col.CountDocuments(countCtx, bson.M{})
	if err != nil {
		return nil, 0, translate(err, "donation request")
	}

	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetSkip((page - 1) * limit).SetLimit(limit)
	}
	items, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *RequestRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.DonationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, "donation request")
	}
	items := []models.DonationRequest{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, translate(err, "donation request")
	}
	return items, nil
}

func (r *RequestRepo) Insert(ctx context.Context, dr *models.DonationRequest) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if dr.ID.IsZero() {
		dr.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, dr)
	return translate(err, "donation request")
}

func (r *RequestRepo) Update(ctx context.Context, id primitive.ObjectID, set map[string]any) (UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, setDoc(set, time.Now().UTC()))
	if err != nil {
		return UpdateResult{}, translate(err, "donation request")
	}
	return updateResult(res), nil
}

// UpdateStatus moves a request from one status to another. The filter
// includes from, so a concurrent transition makes this match nothing.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string) (UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": id, "donation_status": from}
	res, err := r.col.UpdateOne(ctx, filter, setDoc(map[string]any{"donation_status": to}, time.Now().UTC()))
	if err != nil {
		return UpdateResult{}, translate(err, "donation request")
	}
	return updateResult(res), nil
}

func (r *RequestRepo) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, translate(err, "donation request")
	}
	return res.DeletedCount, nil
}
