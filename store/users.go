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

type UserRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"user_email": email}).Decode(&u); err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	return r.find(ctx, bson.M{})
}

// Search returns active donors and volunteers matching every non-empty
// field of q.
func (r *UserRepo) Search(ctx context.Context, q models.DonorSearch) ([]models.User, error) {
	filter := bson.M{
		"user_role":   bson.M{"$in": []string{models.RoleDonor, models.RoleVolunteer}},
		"user_status": models.UserStatusActive,
	}
	if q.BloodGroup != "" {
		filter["user_blood_group"] = q.BloodGroup
	}
	if q.District != "" {
		filter["user_district"] = q.District
	}
	if q.Upazila != "" {
		filter["user_upazila"] = q.Upazila
	}
	return r.find(ctx, filter)
}

func (r *UserRepo) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate(err, "user")
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, translate(err, "user")
	}
	return users, nil
}

func (r *UserRepo) Insert(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, u)
	return translate(err, "user")
}

func (r *UserRepo) Update(ctx context.Context, id primitive.ObjectID, set map[string]any) (UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, setDoc(set, time.Now().UTC()))
	if err != nil {
		return UpdateResult{}, translate(err, "user")
	}
	return updateResult(res), nil
}
