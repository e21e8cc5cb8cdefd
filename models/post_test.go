package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignSlugOnPublish(t *testing.T) {
	t.Run("assigns slug from title when publishing", func(t *testing.T) {
		p := &Post{ID: "a", Title: "Hello Go World"}
		assert.True(t, p.AssignSlugOnPublish(StatusPublished))
		assert.Equal(t, "hello-go-world", p.SlugValue())
	})

	t.Run("keeps existing slug even if title changed", func(t *testing.T) {
		p := &Post{ID: "a", Title: "First Title"}
		p.AssignSlugOnPublish(StatusPublished)
		p.Title = "Second Title"
		assert.False(t, p.AssignSlugOnPublish(StatusPublished))
		assert.Equal(t, "first-title", p.SlugValue())
	})

	t.Run("drafts get no slug", func(t *testing.T) {
		p := &Post{ID: "a", Title: "Draft"}
		assert.False(t, p.AssignSlugOnPublish(StatusDraft))
		assert.Nil(t, p.Slug)
	})

	t.Run("falls back to id when title has no sluggable characters", func(t *testing.T) {
		p := &Post{ID: "1234abcd-0000-0000-0000-000000000000", Title: "!!!"}
		assert.True(t, p.AssignSlugOnPublish(StatusPublished))
		assert.Equal(t, "post-1234abcd", p.SlugValue())
	})
}

func TestSyncUpvoteCount(t *testing.T) {
	p := &Post{Upvotes: []string{"u1", "u2"}}
	p.SyncUpvoteCount()
	assert.Equal(t, 2, p.UpvoteCount)
}

func TestUserPublicStripsSensitiveFields(t *testing.T) {
	u := &User{ID: "u1", Username: "ann", Email: "ann@example.com", PasswordHash: "x", Role: "admin", AvatarURL: "/a.png"}
	pub := u.Public()
	assert.Equal(t, &PublicUser{ID: "u1", Username: "ann", Avatar: "/a.png"}, pub)
}
