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

type BlogRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

// FindByID returns the blog with id. A non-empty status narrows the match,
// so a draft looked up as published is reported as not found.
func (r *BlogRepo) FindByID(ctx context.Context, id primitive.ObjectID, status string) (*models.Blog, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": id}
	if status != "" {
		filter["status"] = status
	}
	var b models.Blog
	if err := r.col.FindOne(ctx, filter).Decode(&b); err != nil {
		return nil, translate(err, "blog")
	}
	return &b, nil
}

// List returns blogs newest first; an empty status returns every blog.
func (r *BlogRepo) List(ctx context.Context, status string) ([]models.Blog, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate(err, "blog")
	}
	blogs := []models.Blog{}
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, translate(err, "blog")
	}
	return blogs, nil
}

func (r *BlogRepo) Insert(ctx context.Context, b *models.Blog) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, b)
	return translate(err, "blog")
}

func (r *BlogRepo) Update(ctx context.Context, id primitive.ObjectID, set map[string]any) (UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, setDoc(set, time.Now().UTC()))
	if err != nil {
		return UpdateResult{}, translate(err, "blog")
	}
	return updateResult(res), nil
}

func (r *BlogRepo) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, translate(err, "blog")
	}
	return res.DeletedCount, nil
}
