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

	"github.com/vuminh/blogapi/backend/internal/models"
)

// MongoStore handles post CRUD in MongoDB. Identifiers are validated by
// callers before any method here is reached.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("posts")}
}

func (s *MongoStore) Insert(ctx context.Context, post *models.Post) (primitive.ObjectID, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}
	res, err := s.col.InsertOne(ctx, post)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("mongo insert: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	post.ID = oid
	return oid, nil
}

// ListPublished returns one page of published posts, newest first by
// publication time.
func (s *MongoStore) ListPublished(ctx context.Context, offset, limit int64) ([]models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{"status": models.StatusPublished}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *MongoStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// IncrementViews bumps the view counter by one. The $inc is atomic per
// document, so concurrent readers each land their increment.
func (s *MongoStore) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": post.ID}, post)
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
