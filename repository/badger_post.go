package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/TomKlotzPro/openbite/models"
)

// BadgerPostRepository implements PostRepository on the embedded store.
// Slugs are indexed under "slug:<slug>" to enforce uniqueness.
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository.
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

func (r *BadgerPostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepareCreate(post)
	stored := *post
	stored.Author = nil

	err := r.db.Update(func(txn *badger.Txn) error {
		key := postKeyPrefix + post.ID
		exists, err := keyExists(txn, key)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicate
		}
		if err := claimSlug(txn, &stored); err != nil {
			return err
		}
		return setJSON(txn, key, &stored)
	})
	return translateBadgerErr(err)
}

func (r *BadgerPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, postKeyPrefix+id, &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *BadgerPostRepository) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		var id string
		if err := getJSON(txn, slugKeyPrefix+slug, &id); err != nil {
			return err
		}
		return getJSON(txn, postKeyPrefix+id, &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *BadgerPostRepository) FindByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	posts := []models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		return eachWithPrefix(txn, postKeyPrefix, func(p *models.Post) error {
			if p.AuthorID == authorID {
				posts = append(posts, *p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (r *BadgerPostRepository) published(ctx context.Context, filters map[string]string) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	posts := []models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		return eachWithPrefix(txn, postKeyPrefix, func(p *models.Post) error {
			if p.IsPublished() && matchesFilters(p, filters) {
				posts = append(posts, *p)
			}
			return nil
		})
	})
	return posts, err
}

func (r *BadgerPostRepository) FindPublished(ctx context.Context, q ListQuery) ([]models.Post, error) {
	if q.Limit <= 0 {
		return []models.Post{}, nil
	}
	posts, err := r.published(ctx, q.Filters)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].UpvoteCount != posts[j].UpvoteCount {
			return posts[i].UpvoteCount > posts[j].UpvoteCount
		}
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})

	if q.Skip >= len(posts) {
		return []models.Post{}, nil
	}
	end := q.Skip + q.Limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[q.Skip:end], nil
}

func (r *BadgerPostRepository) CountPublished(ctx context.Context, filters map[string]string) (int64, error) {
	posts, err := r.published(ctx, filters)
	if err != nil {
		return 0, err
	}
	return int64(len(posts)), nil
}

func (r *BadgerPostRepository) Update(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := prepareUpdate(post)

	err := r.db.Update(func(txn *badger.Txn) error {
		var current models.Post
		if err := getJSON(txn, postKeyPrefix+post.ID, &current); err != nil {
			return err
		}
		if current.Version != post.Version {
			return ErrVersionConflict
		}
		if current.SlugValue() != next.SlugValue() {
			if current.Slug != nil {
				if err := txn.Delete([]byte(slugKeyPrefix + current.SlugValue())); err != nil {
					return err
				}
			}
			if err := claimSlug(txn, &next); err != nil {
				return err
			}
		}
		return setJSON(txn, postKeyPrefix+post.ID, &next)
	})
	if err != nil {
		return translateBadgerErr(err)
	}
	commitUpdate(post, next)
	return nil
}

func (r *BadgerPostRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		var current models.Post
		err := getJSON(txn, postKeyPrefix+id, &current)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.Slug != nil {
			if err := txn.Delete([]byte(slugKeyPrefix + current.SlugValue())); err != nil {
				return err
			}
		}
		return txn.Delete([]byte(postKeyPrefix + id))
	})
	return translateBadgerErr(err)
}

// claimSlug reserves the post's slug, failing with ErrDuplicate when another post holds it.
func claimSlug(txn *badger.Txn, post *models.Post) error {
	if post.SlugValue() == "" {
		return nil
	}
	key := slugKeyPrefix + post.SlugValue()
	var owner string
	err := getJSON(txn, key, &owner)
	switch {
	case err == nil && owner != post.ID:
		return ErrDuplicate
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}
	return setJSON(txn, key, post.ID)
}
