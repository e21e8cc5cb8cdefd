package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TomKlotzPro/openbite/models"
)

var mongoFilterFields = map[string]string{
	FilterCategory: "category",
	FilterTitle:    "title",
	FilterSlug:     "slug",
	FilterAuthor:   "author",
}

// MongoPostRepository implements PostRepository on the "blogs" collection.
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository.
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection(postsCollection)}
}

func (r *MongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	prepareCreate(post)
	_, err := r.collection.InsertOne(ctx, post)
	return translateMongoErr(err)
}

func (r *MongoPostRepository) findOne(ctx context.Context, filter bson.M) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var post models.Post
	if err := r.collection.FindOne(ctx, filter).Decode(&post); err != nil {
		return nil, translateMongoErr(err)
	}
	return &post, nil
}

func (r *MongoPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoPostRepository) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *MongoPostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoPostRepository) FindByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"author": authorID}, opts)
}

func publishedFilter(filters map[string]string) bson.M {
	filter := bson.M{"status": models.StatusPublished}
	for field, value := range filters {
		if key, ok := mongoFilterFields[field]; ok {
			filter[key] = value
		}
	}
	return filter
}

func (r *MongoPostRepository) FindPublished(ctx context.Context, q ListQuery) ([]models.Post, error) {
	if q.Limit <= 0 {
		return []models.Post{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "upvoteCount", Value: -1}, {Key: "createdAt", Value: 1}}).
		SetSkip(int64(q.Skip)).
		SetLimit(int64(q.Limit))
	return r.find(ctx, publishedFilter(q.Filters), opts)
}

func (r *MongoPostRepository) CountPublished(ctx context.Context, filters map[string]string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	return r.collection.CountDocuments(ctx, publishedFilter(filters))
}

func (r *MongoPostRepository) Update(ctx context.Context, post *models.Post) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	next := prepareUpdate(post)
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": post.ID, "version": post.Version}, &next)
	if err != nil {
		return translateMongoErr(err)
	}
	if res.MatchedCount == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": post.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	commitUpdate(post, next)
	return nil
}

func (r *MongoPostRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
