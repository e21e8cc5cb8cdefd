package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/TomKlotzPro/openbite/models"
	"github.com/TomKlotzPro/openbite/repository"
	"github.com/TomKlotzPro/openbite/utils"
)

var (
	alice = models.Identity{ID: "alice", Name: "Alice", Email: "alice@example.com", Avatar: "/alice.png"}
	bob   = models.Identity{ID: "bob", Name: "Bob", Email: "bob@example.com", Avatar: "/bob.png"}
	carol = models.Identity{ID: "carol", Name: "Carol"}
)

var errStoreDown = errors.New("store unavailable")

type fixture struct {
	posts   repository.PostRepository
	upvotes repository.UpvoteRepository
	users   repository.UserRepository
	lock    *utils.MemoryCreationLock
	blogs   *BlogService
	votes   *UpvoteService
}

func newFixture(t *testing.T, cooldown time.Duration) *fixture {
	t.Helper()
	db, err := repository.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		posts:   repository.NewBadgerPostRepository(db),
		upvotes: repository.NewBadgerUpvoteRepository(db),
		users:   repository.NewBadgerUserRepository(db),
		lock:    utils.NewMemoryCreationLock(),
	}
	for _, id := range []models.Identity{alice, bob, carol} {
		require.NoError(t, f.users.Save(context.Background(), &models.User{
			ID: id.ID, Username: id.Name, Email: id.Email, AvatarURL: id.Avatar, PasswordHash: "hash", Role: "user",
		}))
	}
	f.wire(cooldown)
	return f
}

// wire rebuilds the services over the fixture's current repositories.
func (f *fixture) wire(cooldown time.Duration) {
	f.blogs = NewBlogService(f.posts, f.upvotes, f.users, f.lock, nil, BlogOptions{Cooldown: cooldown})
	f.votes = NewUpvoteService(f.posts, f.upvotes, f.users, nil)
}

func (f *fixture) publish(t *testing.T, title string, author models.Identity) *models.Post {
	t.Helper()
	p, err := f.blogs.Create(context.Background(), uuid.NewString(), CreatePostInput{
		Title:   title,
		Content: "content",
		Status:  models.StatusPublished,
	}, author)
	require.NoError(t, err)
	return p
}

// failingPosts fails Create or Update on demand.
type failingPosts struct {
	repository.PostRepository
	createErr error
	updateErr error
}

func (r *failingPosts) Create(ctx context.Context, p *models.Post) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.PostRepository.Create(ctx, p)
}

func (r *failingPosts) Update(ctx context.Context, p *models.Post) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.PostRepository.Update(ctx, p)
}

// slowPosts blocks Create until release is closed.
type slowPosts struct {
	repository.PostRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *slowPosts) Create(ctx context.Context, p *models.Post) error {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	return r.PostRepository.Create(ctx, p)
}

// failingUpvotes fails Delete for the listed ids.
type failingUpvotes struct {
	repository.UpvoteRepository
	deleteErr map[string]error
}

func (r *failingUpvotes) Delete(ctx context.Context, id string) error {
	if err, ok := r.deleteErr[id]; ok {
		return err
	}
	return r.UpvoteRepository.Delete(ctx, id)
}

// interleavingPosts runs hook once, right after the first FindByID returns.
type interleavingPosts struct {
	repository.PostRepository
	hook func()
	once sync.Once
}

func (r *interleavingPosts) FindByID(ctx context.Context, id string) (*models.Post, error) {
	p, err := r.PostRepository.FindByID(ctx, id)
	if err == nil && r.hook != nil {
		r.once.Do(r.hook)
	}
	return p, err
}

// legacyUpvotes serves extra records that bypass the store's one-per-author rule, the way rows
// written before that rule existed would.
type legacyUpvotes struct {
	repository.UpvoteRepository
	mu    sync.Mutex
	extra map[string]*models.Upvote
}

func (r *legacyUpvotes) FindByID(ctx context.Context, id string) (*models.Upvote, error) {
	r.mu.Lock()
	rec, ok := r.extra[id]
	r.mu.Unlock()
	if ok {
		cp := *rec
		return &cp, nil
	}
	return r.UpvoteRepository.FindByID(ctx, id)
}

func (r *legacyUpvotes) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.extra[id]
	delete(r.extra, id)
	r.mu.Unlock()
	if ok {
		return nil
	}
	return r.UpvoteRepository.Delete(ctx, id)
}
