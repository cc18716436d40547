package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	BlogDraft     = "draft"
	BlogPublished = "published"
)

type Blog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Thumbnail string             `bson:"thumbnail" json:"thumbnail"`
	Content   string             `bson:"content" json:"content"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// BlogInput is a new blog or an edit. Creation needs title and content;
// the thumbnail may instead arrive as an uploaded file.
type BlogInput struct {
	Title     string `json:"title" form:"title" binding:"required"`
	Thumbnail string `json:"thumbnail" form:"thumbnail"`
	Content   string `json:"content" form:"content" binding:"required"`
}
