package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/TomKlotzPro/openbite/models"
)

var gormFilterColumns = map[string]string{
	FilterCategory: "category",
	FilterTitle:    "title",
	FilterSlug:     "slug",
	FilterAuthor:   "author_id",
}

// GormPostRepository implements PostRepository on MySQL or Postgres.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GormPostRepository.
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

func translateGormErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (r *GormPostRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	prepareCreate(post)
	return translateGormErr(r.db.WithContext(ctx).Create(post).Error)
}

func (r *GormPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &post, nil
}

func (r *GormPostRepository) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var post models.Post
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &post, nil
}

func (r *GormPostRepository) FindByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	posts := []models.Post{}
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// publishedScope pins status to published and applies the normalized filters.
func (r *GormPostRepository) publishedScope(ctx context.Context, filters map[string]string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("status = ?", models.StatusPublished)
	for field, value := range filters {
		if column, ok := gormFilterColumns[field]; ok {
			q = q.Where(column+" = ?", value)
		}
	}
	return q
}

func (r *GormPostRepository) FindPublished(ctx context.Context, q ListQuery) ([]models.Post, error) {
	posts := []models.Post{}
	if q.Limit <= 0 {
		return posts, nil
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	err := r.publishedScope(ctx, q.Filters).
		Order("upvote_count DESC").
		Order("created_at ASC").
		Offset(q.Skip).
		Limit(q.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *GormPostRepository) CountPublished(ctx context.Context, filters map[string]string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var total int64
	if err := r.publishedScope(ctx, filters).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *GormPostRepository) Update(ctx context.Context, post *models.Post) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	next := prepareUpdate(post)
	res := r.db.WithContext(ctx).
		Model(&next).
		Where("version = ?", post.Version).
		Select("*").
		Updates(&next)
	if res.Error != nil {
		return translateGormErr(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).Count(&n).Error; err != nil {
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

func (r *GormPostRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id).Error
}
