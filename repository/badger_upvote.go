package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/TomKlotzPro/openbite/models"
)

// BadgerUpvoteRepository implements UpvoteRepository on the embedded store.
type BadgerUpvoteRepository struct {
	db *badger.DB
}

// NewBadgerUpvoteRepository creates a new BadgerUpvoteRepository.
func NewBadgerUpvoteRepository(db *badger.DB) *BadgerUpvoteRepository {
	return &BadgerUpvoteRepository{db: db}
}

func (r *BadgerUpvoteRepository) Create(ctx context.Context, upvote *models.Upvote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if upvote.CreatedAt.IsZero() {
		upvote.CreatedAt = time.Now().UTC()
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		key := upvoteKeyPrefix + upvote.ID
		exists, err := keyExists(txn, key)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicate
		}
		claim := upvoteClaimKey(upvote.PostID, upvote.AuthorID)
		taken, err := keyExists(txn, claim)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}
		if err := setJSON(txn, claim, upvote.ID); err != nil {
			return err
		}
		return setJSON(txn, key, upvote)
	})
	return translateBadgerErr(err)
}

func upvoteClaimKey(postID, authorID string) string {
	return upvoteClaimPrefix + postID + ":" + authorID
}

// deleteUpvote removes the record and releases its (post, author) claim when the claim is still its own.
func deleteUpvote(txn *badger.Txn, u *models.Upvote) error {
	claim := upvoteClaimKey(u.PostID, u.AuthorID)
	var owner string
	err := getJSON(txn, claim, &owner)
	switch {
	case err == nil && owner == u.ID:
		if err := txn.Delete([]byte(claim)); err != nil {
			return err
		}
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}
	return txn.Delete([]byte(upvoteKeyPrefix + u.ID))
}

func (r *BadgerUpvoteRepository) FindByID(ctx context.Context, id string) (*models.Upvote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var upvote models.Upvote
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, upvoteKeyPrefix+id, &upvote)
	})
	if err != nil {
		return nil, err
	}
	return &upvote, nil
}

func (r *BadgerUpvoteRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Upvote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found := make(map[string]*models.Upvote, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range uniqueIDs(ids) {
			var upvote models.Upvote
			err := getJSON(txn, upvoteKeyPrefix+id, &upvote)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			found[id] = &upvote
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *BadgerUpvoteRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		var upvote models.Upvote
		if err := getJSON(txn, upvoteKeyPrefix+id, &upvote); err != nil {
			return err
		}
		return deleteUpvote(txn, &upvote)
	})
	return translateBadgerErr(err)
}

func (r *BadgerUpvoteRepository) DeleteByPost(ctx context.Context, postID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var doomed []models.Upvote
	err := r.db.View(func(txn *badger.Txn) error {
		return eachWithPrefix(txn, upvoteKeyPrefix, func(u *models.Upvote) error {
			if u.PostID == postID {
				doomed = append(doomed, *u)
			}
			return nil
		})
	})
	if err != nil || len(doomed) == 0 {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		for i := range doomed {
			if err := deleteUpvote(txn, &doomed[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return translateBadgerErr(err)
}
