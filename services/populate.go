package services

import (
	"context"
	"fmt"

	"github.com/TomKlotzPro/openbite/models"
	"github.com/TomKlotzPro/openbite/repository"
)

// populateAuthors attaches the public author profile to each post. Posts whose author is
// unknown keep a nil Author.
func populateAuthors(ctx context.Context, users repository.UserRepository, posts ...*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("populate authors: %w", err)
	}
	for _, p := range posts {
		if u, ok := found[p.AuthorID]; ok {
			p.Author = u.Public()
		}
	}
	return nil
}

func postPointers(posts []models.Post) []*models.Post {
	out := make([]*models.Post, len(posts))
	for i := range posts {
		out[i] = &posts[i]
	}
	return out
}
