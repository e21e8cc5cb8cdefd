package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/TomKlotzPro/openbite/models"
)

// GormUpvoteRepository implements UpvoteRepository on MySQL or Postgres.
type GormUpvoteRepository struct {
	db *gorm.DB
}

// NewGormUpvoteRepository creates a new GormUpvoteRepository.
func NewGormUpvoteRepository(db *gorm.DB) *GormUpvoteRepository {
	return &GormUpvoteRepository{db: db}
}

func (r *GormUpvoteRepository) Create(ctx context.Context, upvote *models.Upvote) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if upvote.CreatedAt.IsZero() {
		upvote.CreatedAt = time.Now().UTC()
	}
	return translateGormErr(r.db.WithContext(ctx).Create(upvote).Error)
}

func (r *GormUpvoteRepository) FindByID(ctx context.Context, id string) (*models.Upvote, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var upvote models.Upvote
	if err := r.db.WithContext(ctx).First(&upvote, "id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &upvote, nil
}

func (r *GormUpvoteRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Upvote, error) {
	found := make(map[string]*models.Upvote, len(ids))
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return found, nil
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var upvotes []models.Upvote
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&upvotes).Error; err != nil {
		return nil, err
	}
	for i := range upvotes {
		found[upvotes[i].ID] = &upvotes[i]
	}
	return found, nil
}

func (r *GormUpvoteRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Delete(&models.Upvote{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormUpvoteRepository) DeleteByPost(ctx context.Context, postID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Upvote{}).Error
}
