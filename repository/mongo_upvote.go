package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/TomKlotzPro/openbite/models"
)

// MongoUpvoteRepository implements UpvoteRepository on the "upvotes" collection.
type MongoUpvoteRepository struct {
	collection *mongo.Collection
}

// NewMongoUpvoteRepository creates a new MongoUpvoteRepository.
func NewMongoUpvoteRepository(db *mongo.Database) *MongoUpvoteRepository {
	return &MongoUpvoteRepository{collection: db.Collection(upvotesCollection)}
}

func (r *MongoUpvoteRepository) Create(ctx context.Context, upvote *models.Upvote) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if upvote.CreatedAt.IsZero() {
		upvote.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, upvote)
	return translateMongoErr(err)
}

func (r *MongoUpvoteRepository) FindByID(ctx context.Context, id string) (*models.Upvote, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var upvote models.Upvote
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&upvote); err != nil {
		return nil, translateMongoErr(err)
	}
	return &upvote, nil
}

func (r *MongoUpvoteRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Upvote, error) {
	found := make(map[string]*models.Upvote, len(ids))
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return found, nil
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var upvotes []models.Upvote
	if err := cursor.All(ctx, &upvotes); err != nil {
		return nil, err
	}
	for i := range upvotes {
		found[upvotes[i].ID] = &upvotes[i]
	}
	return found, nil
}

func (r *MongoUpvoteRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUpvoteRepository) DeleteByPost(ctx context.Context, postID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"blog": postID})
	return err
}
