package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomKlotzPro/openbite/models"
	"github.com/TomKlotzPro/openbite/repository"
)

func TestToggleIsAnInvolution(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Vote Me", alice)

	on, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)
	require.Len(t, on.Upvotes, 1)
	assert.Equal(t, 1, on.UpvoteCount)

	rec, err := f.upvotes.FindByID(ctx, on.Upvotes[0])
	require.NoError(t, err)
	assert.Equal(t, "bob", rec.AuthorID)
	assert.Equal(t, post.ID, rec.PostID)

	off, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{UpvoteID: rec.ID}, bob)
	require.NoError(t, err)
	assert.Empty(t, off.Upvotes)
	assert.Equal(t, 0, off.UpvoteCount)

	_, err = f.upvotes.FindByID(ctx, rec.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestToggleOnAddsExactlyOneReference(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Popular", alice)

	withBob, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)
	withCarol, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, carol)
	require.NoError(t, err)

	require.Len(t, withCarol.Upvotes, 2)
	assert.Equal(t, withBob.Upvotes[0], withCarol.Upvotes[0], "existing references keep their order")
}

func TestToggleOffRemovesOnlyCallersEntry(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Shared", alice)

	_, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)
	_, err = f.votes.Toggle(ctx, post.ID, UpvoteInput{}, carol)
	require.NoError(t, err)
	both, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, alice)
	require.NoError(t, err)
	require.Len(t, both.Upvotes, 3)

	after, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, carol)
	require.NoError(t, err)
	assert.Equal(t, []string{both.Upvotes[0], both.Upvotes[2]}, after.Upvotes)
}

func TestToggleIgnoresPayloadOfAnotherAuthor(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Guarded", alice)

	bobs, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)
	bobRecord := bobs.Upvotes[0]

	withCarol, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{UpvoteID: bobRecord}, carol)
	require.NoError(t, err)
	assert.Len(t, withCarol.Upvotes, 2, "carol's toggle turns her own upvote on")

	_, err = f.upvotes.FindByID(ctx, bobRecord)
	require.NoError(t, err)

	withoutCarol, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{UpvoteID: bobRecord}, carol)
	require.NoError(t, err)
	assert.Equal(t, []string{bobRecord}, withoutCarol.Upvotes)

	_, err = f.upvotes.FindByID(ctx, bobRecord)
	assert.NoError(t, err, "a payload id of another author is never deleted")
}

func TestToggleOffDeletesStrayRecordNamedInPayload(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Stray", alice)

	on, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)

	legacy := &legacyUpvotes{
		UpvoteRepository: f.upvotes,
		extra:            map[string]*models.Upvote{"stray": {ID: "stray", AuthorID: "bob", PostID: post.ID}},
	}
	f.upvotes = legacy
	f.wire(0)

	off, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{UpvoteID: "stray"}, bob)
	require.NoError(t, err)
	assert.Empty(t, off.Upvotes)
	assert.Empty(t, legacy.extra)

	_, err = f.upvotes.FindByID(ctx, on.Upvotes[0])
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestToggleOnWhilePairIsHeldConflicts(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Held", alice)

	// A record of bob's whose reference has not reached the post yet.
	require.NoError(t, f.upvotes.Create(ctx, &models.Upvote{ID: "in-flight", AuthorID: "bob", PostID: post.ID}))

	_, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := f.posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Upvotes)
	assert.Equal(t, post.Version, stored.Version)
}

func TestTogglePrunesDanglingReferences(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Dangling", alice)

	stored, err := f.posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	stored.Upvotes = []string{"gone-1", "gone-2"}
	require.NoError(t, f.posts.Update(ctx, stored))

	on, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)
	require.Len(t, on.Upvotes, 1)
	assert.NotContains(t, on.Upvotes, "gone-1")
	assert.Equal(t, 1, on.UpvoteCount)
}

func TestToggleMissingPost(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.votes.Toggle(context.Background(), "missing", UpvoteInput{}, bob)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestToggleFaultLeavesPostUnmodified(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Fragile", alice)

	on, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)
	record := on.Upvotes[0]

	f.upvotes = &failingUpvotes{UpvoteRepository: f.upvotes, deleteErr: map[string]error{record: errStoreDown}}
	f.wire(0)

	_, err = f.votes.Toggle(ctx, post.ID, UpvoteInput{UpvoteID: record}, bob)
	var rerr *ReconciliationError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, record, rerr.UpvoteID)
	assert.ErrorIs(t, err, errStoreDown)

	stored, err := f.posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, on.Version, stored.Version)
	assert.Equal(t, []string{record}, stored.Upvotes)
}

func TestToggleLostUpdateIsReported(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Race", alice)

	base := f.posts
	rival := NewUpvoteService(base, f.upvotes, f.users, nil)
	f.posts = &interleavingPosts{PostRepository: base, hook: func() {
		_, err := rival.Toggle(ctx, post.ID, UpvoteInput{}, carol)
		require.NoError(t, err)
	}}
	f.wire(0)

	_, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := base.FindByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, stored.Upvotes, 1, "the rival's upvote survives")
	rec, err := f.upvotes.FindByID(ctx, stored.Upvotes[0])
	require.NoError(t, err)
	assert.Equal(t, "carol", rec.AuthorID)

	// bob's record was compensated, so a retry starts clean.
	retried, err := NewUpvoteService(base, f.upvotes, f.users, nil).Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)
	assert.Len(t, retried.Upvotes, 2)
}

func TestToggleOffLostUpdateKeepsRecord(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Withdraw", alice)

	on, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, bob)
	require.NoError(t, err)
	bobRecord, err := f.upvotes.FindByID(ctx, on.Upvotes[0])
	require.NoError(t, err)

	base := f.posts
	rival := NewUpvoteService(base, f.upvotes, f.users, nil)
	f.posts = &interleavingPosts{PostRepository: base, hook: func() {
		_, err := rival.Toggle(ctx, post.ID, UpvoteInput{}, carol)
		require.NoError(t, err)
	}}
	f.wire(0)

	_, err = f.votes.Toggle(ctx, post.ID, UpvoteInput{UpvoteID: bobRecord.ID}, bob)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	restored, err := f.upvotes.FindByID(ctx, bobRecord.ID)
	require.NoError(t, err, "the record removed by the failed toggle is put back")
	assert.Equal(t, "bob", restored.AuthorID)
	assert.Equal(t, post.ID, restored.PostID)
	assert.True(t, bobRecord.CreatedAt.Equal(restored.CreatedAt))

	stored, err := base.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Upvotes, bobRecord.ID)
	assert.Equal(t, 2, stored.UpvoteCount)

	// Retrying the same toggle still withdraws the upvote.
	retried, err := NewUpvoteService(base, f.upvotes, f.users, nil).Toggle(ctx, post.ID, UpvoteInput{UpvoteID: bobRecord.ID}, bob)
	require.NoError(t, err)
	require.Len(t, retried.Upvotes, 1)
	assert.NotContains(t, retried.Upvotes, bobRecord.ID)
	_, err = f.upvotes.FindByID(ctx, bobRecord.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConcurrentTogglesNeverLoseUpdates(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	post := f.publish(t, "Crowd", alice)

	const voters = 12
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		voter := models.Identity{ID: "voter-" + string(rune('a'+i))}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := f.votes.Toggle(ctx, post.ID, UpvoteInput{}, voter)
				if errors.Is(err, repository.ErrVersionConflict) {
					continue
				}
				errs <- err
				return
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Upvotes, voters)
	assert.Equal(t, voters, stored.UpvoteCount)

	records, err := f.upvotes.FindByIDs(ctx, stored.Upvotes)
	require.NoError(t, err)
	assert.Len(t, records, voters)
	authors := map[string]bool{}
	for _, r := range records {
		authors[r.AuthorID] = true
	}
	assert.Len(t, authors, voters)
}
