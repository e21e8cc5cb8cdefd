package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TomKlotzPro/openbite/models"
	"github.com/TomKlotzPro/openbite/repository"
	"github.com/TomKlotzPro/openbite/utils"
)

// UpvoteInput is the toggle payload. UpvoteID optionally names the caller's record as the
// client last saw it; it is only honoured when it belongs to the caller and the post.
type UpvoteInput struct {
	UpvoteID string `json:"_id"`
}

// UpvoteService keeps a post's upvote references and the upvote records in step.
type UpvoteService struct {
	posts   repository.PostRepository
	upvotes repository.UpvoteRepository
	users   repository.UserRepository
	cache   *utils.Cache
}

func NewUpvoteService(
	posts repository.PostRepository,
	upvotes repository.UpvoteRepository,
	users repository.UserRepository,
	cache *utils.Cache,
) *UpvoteService {
	return &UpvoteService{posts: posts, upvotes: upvotes, users: users, cache: cache}
}

// Toggle adds the caller's upvote to the post, or removes it when one exists.
//
// Records are deleted before the post is saved and created before the post is saved, so an
// interrupted toggle leaves at worst a reference without a record; such references resolve to
// absent and are dropped on the next save. The save is version checked: a concurrent change to
// the post yields repository.ErrVersionConflict, a record created here is removed again and
// records deleted here are put back, so retrying the same toggle has the same effect.
func (s *UpvoteService) Toggle(ctx context.Context, postID string, in UpvoteInput, id models.Identity) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	records, err := s.upvotes.FindByIDs(ctx, post.Upvotes)
	if err != nil {
		return nil, fmt.Errorf("resolve upvotes of %s: %w", postID, err)
	}

	var own *models.Upvote
	for _, ref := range post.Upvotes {
		if rec, ok := records[ref]; ok && rec.AuthorID == id.ID {
			own = rec
			break
		}
	}

	var created *models.Upvote
	var removed []*models.Upvote
	if own != nil {
		var targets []*models.Upvote
		targets, removed, err = s.removeRecords(ctx, post, own, in.UpvoteID, id)
		if err != nil {
			utils.UpvoteToggles.WithLabelValues("fault").Inc()
			return nil, err
		}
		post.Upvotes = liveRefs(post.Upvotes, records, targets)
	} else {
		created = &models.Upvote{ID: uuid.NewString(), AuthorID: id.ID, PostID: post.ID}
		if err := s.upvotes.Create(ctx, created); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// Another toggle by the same author holds the pair.
				utils.UpvoteToggles.WithLabelValues("conflict").Inc()
				return nil, fmt.Errorf("upvote %s on %s: %w", id.ID, postID, repository.ErrVersionConflict)
			}
			return nil, fmt.Errorf("create upvote: %w", err)
		}
		post.Upvotes = append(liveRefs(post.Upvotes, records, nil), created.ID)
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if created != nil {
			s.compensate(ctx, created.ID)
		}
		s.restore(ctx, removed)
		if errors.Is(err, repository.ErrVersionConflict) {
			utils.UpvoteToggles.WithLabelValues("conflict").Inc()
		}
		return nil, fmt.Errorf("save upvotes of %s: %w", postID, err)
	}

	if created != nil {
		utils.UpvoteToggles.WithLabelValues("on").Inc()
	} else {
		utils.UpvoteToggles.WithLabelValues("off").Inc()
	}
	s.cache.Bump(context.WithoutCancel(ctx), blogCacheNamespace)

	if err := populateAuthors(ctx, s.users, post); err != nil {
		utils.Sugar.Warnw("author population failed", "id", post.ID, "err", err)
	}
	return post, nil
}

// removeRecords deletes the caller's record and, if the payload names a different record of the
// same author on the same post, that one too. Both deletions finish before it returns. It returns
// the targeted records and the subset it actually deleted; on failure the deleted ones are put
// back before the error is returned.
func (s *UpvoteService) removeRecords(ctx context.Context, post *models.Post, own *models.Upvote, payloadID string, id models.Identity) (targets, deleted []*models.Upvote, err error) {
	targets = []*models.Upvote{own}
	if payloadID != "" && payloadID != own.ID {
		rec, err := s.upvotes.FindByID(ctx, payloadID)
		switch {
		case err == nil && rec.AuthorID == id.ID && rec.PostID == post.ID:
			targets = append(targets, rec)
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, nil, &ReconciliationError{PostID: post.ID, UpvoteID: payloadID, Err: err}
		}
	}

	done := make([]bool, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range targets {
		i, rec := i, rec
		g.Go(func() error {
			err := s.upvotes.Delete(gctx, rec.ID)
			switch {
			case err == nil:
				done[i] = true
			case !errors.Is(err, repository.ErrNotFound):
				return &ReconciliationError{PostID: post.ID, UpvoteID: rec.ID, Err: err}
			}
			return nil
		})
	}
	waitErr := g.Wait()

	for i, rec := range targets {
		if done[i] {
			deleted = append(deleted, rec)
		}
	}
	if waitErr != nil {
		s.restore(ctx, deleted)
		return nil, nil, waitErr
	}
	return targets, deleted, nil
}

// compensate deletes a record whose reference never made it into the post.
func (s *UpvoteService) compensate(ctx context.Context, upvoteID string) {
	err := s.upvotes.Delete(context.WithoutCancel(ctx), upvoteID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		utils.Sugar.Warnw("upvote compensation failed", "upvote", upvoteID, "err", err)
	}
}

// restore recreates records, keeping id, author, post and creation time, whose removal never
// made it into the post.
func (s *UpvoteService) restore(ctx context.Context, records []*models.Upvote) {
	ctx = context.WithoutCancel(ctx)
	for _, rec := range records {
		if err := s.upvotes.Create(ctx, rec); err != nil {
			utils.Sugar.Warnw("upvote restore failed", "upvote", rec.ID, "post", rec.PostID, "err", err)
		}
	}
}

// liveRefs keeps references that resolve to a record and were not just removed, in order.
func liveRefs(refs []string, records map[string]*models.Upvote, removed []*models.Upvote) []string {
	gone := make(map[string]struct{}, len(removed))
	for _, rec := range removed {
		gone[rec.ID] = struct{}{}
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := records[ref]; !ok {
			continue
		}
		if _, ok := gone[ref]; ok {
			continue
		}
		out = append(out, ref)
	}
	return out
}
