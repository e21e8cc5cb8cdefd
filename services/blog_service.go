// Package services holds the blog use cases: admission-controlled creation, the published
// listing, edits, comments and the upvote reconciler. Handlers stay thin and map the errors
// returned here onto HTTP statuses.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/TomKlotzPro/openbite/models"
	"github.com/TomKlotzPro/openbite/repository"
	"github.com/TomKlotzPro/openbite/utils"
)

const (
	blogCacheNamespace = "cache:blogs:"
	defaultMaxPageSize = 100
	defaultCooldown    = 5 * time.Second
)

var validate = validator.New()

// CreatePostInput is the payload accepted when creating a post. Any author in the request
// body is ignored: the author is always the caller.
type CreatePostInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	Subtitle string `json:"subtitle" validate:"max=255"`
	Content  string `json:"content"`
	Category string `json:"category" validate:"max=64"`
	Status   string `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdatePostInput is a partial update; nil fields are left untouched.
type UpdatePostInput struct {
	Title    *string `json:"title" validate:"omitempty,min=1,max=255"`
	Subtitle *string `json:"subtitle" validate:"omitempty,max=255"`
	Content  *string `json:"content"`
	Category *string `json:"category" validate:"omitempty,max=64"`
	Status   *string `json:"status" validate:"omitempty,oneof=draft published"`
}

// Page is one window of the published listing.
type Page struct {
	Items     []models.Post `json:"blogs"`
	Count     int64         `json:"count"`
	PageCount int64         `json:"pageCount"`
}

// BlogOptions tunes BlogService.
type BlogOptions struct {
	Cooldown    time.Duration
	MaxPageSize int
}

// BlogService implements the post use cases.
type BlogService struct {
	posts   repository.PostRepository
	upvotes repository.UpvoteRepository
	users   repository.UserRepository
	lock    utils.CreationLock
	cache   *utils.Cache

	cooldown    time.Duration
	maxPageSize int
}

func NewBlogService(
	posts repository.PostRepository,
	upvotes repository.UpvoteRepository,
	users repository.UserRepository,
	lock utils.CreationLock,
	cache *utils.Cache,
	opts BlogOptions,
) *BlogService {
	if opts.Cooldown < 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = defaultMaxPageSize
	}
	return &BlogService{
		posts:       posts,
		upvotes:     upvotes,
		users:       users,
		lock:        lock,
		cache:       cache,
		cooldown:    opts.Cooldown,
		maxPageSize: opts.MaxPageSize,
	}
}

// MaxPageSize is the upper bound applied to requested page sizes.
func (s *BlogService) MaxPageSize() int {
	return s.maxPageSize
}

// Create persists a new post under the creation lock for key. An empty key falls back to a
// per-author key. The key stays busy for the cooldown after Create returns, whatever the outcome.
func (s *BlogService) Create(ctx context.Context, key string, in CreatePostInput, id models.Identity) (*models.Post, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if key == "" {
		key = "author:" + id.ID
	}

	if !s.lock.TryAcquire(ctx, key) {
		utils.BlogCreations.WithLabelValues("busy").Inc()
		return nil, ErrCreationInProgress
	}
	defer s.lock.ReleaseAfter(key, s.cooldown)

	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}
	post := &models.Post{
		ID:       uuid.NewString(),
		Title:    utils.SanitizeText(in.Title),
		Subtitle: utils.SanitizeText(in.Subtitle),
		Content:  utils.Sanitize(in.Content),
		Category: utils.SanitizeText(in.Category),
		Status:   status,
		AuthorID: id.ID,
	}
	post.AssignSlugOnPublish(status)

	if err := s.posts.Create(ctx, post); err != nil {
		utils.BlogCreations.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("create post: %w", err)
	}
	utils.BlogCreations.WithLabelValues("created").Inc()
	utils.Sugar.Infow("post created", "id", post.ID, "author", id.ID, "key", key)

	s.invalidate(ctx)
	if err := populateAuthors(ctx, s.users, post); err != nil {
		utils.Sugar.Warnw("author population failed", "id", post.ID, "err", err)
	}
	return post, nil
}

// ParsePageParams reads the raw pageSize/pageNum query values. pageSize defaults to 0 and is
// clamped to [0, max]; pageNum defaults to 1.
func ParsePageParams(sizeRaw, numRaw string, max int) (size, num int) {
	size, err := strconv.Atoi(sizeRaw)
	if err != nil || size < 0 {
		size = 0
	}
	if max > 0 && size > max {
		size = max
	}
	num, err = strconv.Atoi(numRaw)
	if err != nil || num < 1 {
		num = 1
	}
	return size, num
}

// ListPublished returns one page of published posts ordered by upvote count, most upvoted
// first. Count honours the same filters as the items. A zero page size returns no items.
func (s *BlogService) ListPublished(ctx context.Context, size, num int, filters map[string]string) (*Page, error) {
	filters = repository.NormalizeFilters(filters)
	if size > s.maxPageSize {
		size = s.maxPageSize
	}
	if num < 1 {
		num = 1
	}

	key := listCacheKey(s.cache.Namespace(ctx, blogCacheNamespace), size, num, filters)
	var cached Page
	if s.cache.GetJSON(ctx, key, &cached) {
		utils.CacheLookups.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	utils.CacheLookups.WithLabelValues("miss").Inc()

	count, err := s.posts.CountPublished(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count published: %w", err)
	}
	page := &Page{Items: []models.Post{}, Count: count}
	if size == 0 {
		s.cache.SetJSON(ctx, key, page)
		return page, nil
	}
	page.PageCount = (count + int64(size) - 1) / int64(size)

	if int64(num-1) < page.PageCount {
		items, err := s.posts.FindPublished(ctx, repository.ListQuery{
			Filters: filters,
			Skip:    size * (num - 1),
			Limit:   size,
		})
		if err != nil {
			return nil, fmt.Errorf("list published: %w", err)
		}
		if err := populateAuthors(ctx, s.users, postPointers(items)...); err != nil {
			return nil, err
		}
		page.Items = items
	}

	s.cache.SetJSON(ctx, key, page)
	return page, nil
}

func listCacheKey(ns string, size, num int, filters map[string]string) string {
	fields := make([]string, 0, len(filters))
	for k := range filters {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var b strings.Builder
	fmt.Fprintf(&b, "%slist:%d:%d", ns, size, num)
	for _, k := range fields {
		fmt.Fprintf(&b, ":%s=%s", k, filters[k])
	}
	return b.String()
}

// GetBySlug returns the post with the given slug and its author.
func (s *BlogService) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	key := s.cache.Namespace(ctx, blogCacheNamespace) + "slug:" + slug
	var cached models.Post
	if s.cache.GetJSON(ctx, key, &cached) {
		utils.CacheLookups.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	utils.CacheLookups.WithLabelValues("miss").Inc()

	post, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := populateAuthors(ctx, s.users, post); err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, post)
	return post, nil
}

func (s *BlogService) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := populateAuthors(ctx, s.users, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListMine returns every post of the caller, drafts included, newest first.
func (s *BlogService) ListMine(ctx context.Context, id models.Identity) ([]models.Post, error) {
	posts, err := s.posts.FindByAuthor(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("list posts of %s: %w", id.ID, err)
	}
	if err := populateAuthors(ctx, s.users, postPointers(posts)...); err != nil {
		return nil, err
	}
	return posts, nil
}

// Update applies a partial update. Publishing a post without a slug derives it from the title
// stored before this update; an existing slug never changes.
func (s *BlogService) Update(ctx context.Context, postID string, in UpdatePostInput) (*models.Post, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		post.AssignSlugOnPublish(*in.Status)
		post.Status = *in.Status
	}
	if in.Title != nil {
		post.Title = utils.SanitizeText(*in.Title)
	}
	if in.Subtitle != nil {
		post.Subtitle = utils.SanitizeText(*in.Subtitle)
	}
	if in.Content != nil {
		post.Content = utils.Sanitize(*in.Content)
	}
	if in.Category != nil {
		post.Category = utils.SanitizeText(*in.Category)
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post %s: %w", postID, err)
	}
	s.invalidate(ctx)
	if err := populateAuthors(ctx, s.users, post); err != nil {
		utils.Sugar.Warnw("author population failed", "id", post.ID, "err", err)
	}
	return post, nil
}

// AddComment appends a comment carrying a snapshot of the caller's profile.
func (s *BlogService) AddComment(ctx context.Context, postID, text string, id models.Identity) (*models.Post, error) {
	text = utils.Sanitize(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: comment is empty", ErrInvalidInput)
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	post.Comments = append(post.Comments, models.CommentEntry{
		Name:      id.Name,
		Email:     id.Email,
		Avatar:    id.Avatar,
		UserID:    id.ID,
		Comment:   text,
		CreatedAt: time.Now().UTC(),
	})
	return s.saveComments(ctx, post)
}

// ReplaceComments swaps the whole comment sequence of a post.
func (s *BlogService) ReplaceComments(ctx context.Context, postID string, comments []models.CommentEntry) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	next := make([]models.CommentEntry, 0, len(comments))
	for _, c := range comments {
		c.Comment = utils.Sanitize(c.Comment)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		next = append(next, c)
	}
	post.Comments = next
	return s.saveComments(ctx, post)
}

func (s *BlogService) saveComments(ctx context.Context, post *models.Post) (*models.Post, error) {
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("save comments of %s: %w", post.ID, err)
	}
	s.invalidate(ctx)
	if err := populateAuthors(ctx, s.users, post); err != nil {
		utils.Sugar.Warnw("author population failed", "id", post.ID, "err", err)
	}
	return post, nil
}

// Delete removes the post and, best effort, its upvote records.
func (s *BlogService) Delete(ctx context.Context, postID string) error {
	if err := s.posts.Delete(ctx, postID); err != nil {
		return fmt.Errorf("delete post %s: %w", postID, err)
	}
	if err := s.upvotes.DeleteByPost(ctx, postID); err != nil {
		utils.Sugar.Warnw("orphaned upvote records", "post", postID, "err", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *BlogService) invalidate(ctx context.Context) {
	s.cache.Bump(context.WithoutCancel(ctx), blogCacheNamespace)
}

// IsNotFound reports whether err means the post does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
