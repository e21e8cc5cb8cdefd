package models

import "time"

// Upvote is the standalone record behind each entry of Post.Upvotes.
// At most one record exists per (PostID, AuthorID) pair; every store enforces it.
type Upvote struct {
	ID        string    `gorm:"primaryKey;size:36" bson:"_id" json:"_id"`
	AuthorID  string    `gorm:"size:36;not null;uniqueIndex:idx_upvote_post_author" bson:"author" json:"author"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_upvote_post_author" bson:"blog" json:"blog"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
