// Package repository is the storage gateway for posts, upvote records and author profiles.
// Adapters exist for GORM (MySQL/Postgres), MongoDB and Badger; all of them honour the same
// contract, including version-checked post updates.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/TomKlotzPro/openbite/models"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a post changed between load and save.
	ErrVersionConflict = errors.New("post was modified concurrently")
	// ErrDuplicate is returned when a unique field (slug, id) already exists.
	ErrDuplicate = errors.New("duplicate key")
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
	listTimeout  = 10 * time.Second
)

// Filter fields accepted from callers of the published listing. Status is never accepted:
// the listing always pins it to published.
const (
	FilterCategory = "category"
	FilterTitle    = "title"
	FilterSlug     = "slug"
	FilterAuthor   = "author"
)

var allowedFilters = map[string]struct{}{
	FilterCategory: {},
	FilterTitle:    {},
	FilterSlug:     {},
	FilterAuthor:   {},
}

// ListQuery selects a window of published posts ordered by upvote count (desc).
type ListQuery struct {
	Filters map[string]string
	Skip    int
	Limit   int
}

// PostRepository persists posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	FindByAuthor(ctx context.Context, authorID string) ([]models.Post, error)
	FindPublished(ctx context.Context, q ListQuery) ([]models.Post, error)
	CountPublished(ctx context.Context, filters map[string]string) (int64, error)
	// Update replaces the stored post only if its stored version equals post.Version.
	// On success post.Version is incremented; otherwise ErrVersionConflict or ErrNotFound.
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}

// UpvoteRepository persists upvote records.
type UpvoteRepository interface {
	Create(ctx context.Context, upvote *models.Upvote) error
	FindByID(ctx context.Context, id string) (*models.Upvote, error)
	// FindByIDs resolves ids to records; ids without a record are absent from the map.
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Upvote, error)
	// Delete removes a record, returning ErrNotFound when it does not exist.
	Delete(ctx context.Context, id string) error
	DeleteByPost(ctx context.Context, postID string) error
}

// UserRepository reads author profiles for population.
type UserRepository interface {
	Save(ctx context.Context, user *models.User) error
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// NormalizeFilters keeps only the supported filter fields with non-empty values.
func NormalizeFilters(filters map[string]string) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		if _, ok := allowedFilters[k]; ok && v != "" {
			out[k] = v
		}
	}
	return out
}

// prepareCreate fills store-independent fields before the first save.
func prepareCreate(post *models.Post) {
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	post.Version = 0
	if post.Comments == nil {
		post.Comments = []models.CommentEntry{}
	}
	if post.Upvotes == nil {
		post.Upvotes = []string{}
	}
	post.SyncUpvoteCount()
}

// prepareUpdate returns the next version to write and refreshes derived fields.
func prepareUpdate(post *models.Post) (next models.Post) {
	next = *post
	next.Version = post.Version + 1
	next.UpdatedAt = time.Now().UTC()
	if next.Comments == nil {
		next.Comments = []models.CommentEntry{}
	}
	if next.Upvotes == nil {
		next.Upvotes = []string{}
	}
	next.SyncUpvoteCount()
	next.Author = nil
	return next
}

// matchesFilters is used by stores that filter in process.
func matchesFilters(p *models.Post, filters map[string]string) bool {
	for k, v := range filters {
		switch k {
		case FilterCategory:
			if p.Category != v {
				return false
			}
		case FilterTitle:
			if p.Title != v {
				return false
			}
		case FilterSlug:
			if p.SlugValue() != v {
				return false
			}
		case FilterAuthor:
			if p.AuthorID != v {
				return false
			}
		}
	}
	return true
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// commitUpdate copies the persisted version back to the caller's post, keeping populated fields.
func commitUpdate(post *models.Post, next models.Post) {
	author := post.Author
	*post = next
	post.Author = author
}
