package models

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post represents a blog article. Comments are embedded; upvotes are references to Upvote records.
type Post struct {
	ID          string         `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Title       string         `gorm:"size:255;not null" bson:"title" json:"title"`
	Subtitle    string         `gorm:"size:255" bson:"subtitle" json:"subtitle"`
	Content     string         `gorm:"type:text" bson:"content" json:"content"`
	Category    string         `gorm:"size:64;index" bson:"category" json:"category"`
	Slug        *string        `gorm:"size:255;uniqueIndex" bson:"slug,omitempty" json:"slug,omitempty"`
	Status      string         `gorm:"size:16;index;not null;default:'draft'" bson:"status" json:"status"`
	AuthorID    string         `gorm:"size:36;index;not null" bson:"author" json:"authorId"`
	Author      *PublicUser    `gorm:"-" bson:"-" json:"author,omitempty"`
	Comments    []CommentEntry `gorm:"serializer:json;type:text" bson:"comments" json:"comments"`
	Upvotes     []string       `gorm:"serializer:json;type:text" bson:"upvotes" json:"upvotes"`
	UpvoteCount int            `gorm:"index;not null;default:0" bson:"upvoteCount" json:"upvoteCount"`
	Version     int64          `gorm:"not null;default:0" bson:"version" json:"version"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// CommentEntry is a comment embedded in its post, carrying a snapshot of the commenter.
type CommentEntry struct {
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Avatar    string    `bson:"avatar" json:"avatar"`
	UserID    string    `bson:"user" json:"user"`
	Comment   string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// IsPublished reports whether the post is visible in public listings.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// SlugValue returns the slug or an empty string when none has been assigned yet.
func (p *Post) SlugValue() string {
	if p.Slug == nil {
		return ""
	}
	return *p.Slug
}

// AssignSlugOnPublish sets the slug from the current title when nextStatus is published and
// no slug exists yet. It returns true when a slug was assigned. Existing slugs never change.
func (p *Post) AssignSlugOnPublish(nextStatus string) bool {
	if nextStatus != StatusPublished || p.SlugValue() != "" {
		return false
	}
	s := slug.Make(p.Title)
	if s == "" {
		s = "post-" + strings.ToLower(strings.ReplaceAll(p.ID, "-", ""))
		if len(s) > 13 {
			s = s[:13]
		}
	}
	p.Slug = &s
	return true
}

// SyncUpvoteCount keeps the derived counter used for ordering in step with the references.
func (p *Post) SyncUpvoteCount() {
	p.UpvoteCount = len(p.Upvotes)
}
