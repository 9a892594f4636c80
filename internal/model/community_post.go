package model

import "time"

// CommunityPost is a user-authored story.  Posts by non-admins start
// unpublished; only admins flip IsPublished and IsFeatured.  Views is bumped
// on every detail fetch.
type CommunityPost struct {
	ID          uint64       `json:"id"`
	UserID      uint64       `json:"userId"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	ContentHTML string       `json:"contentHtml,omitempty"`
	Images      StringList   `json:"images"`
	Tags        StringList   `json:"tags"`
	IsPublished bool         `json:"isPublished"`
	IsFeatured  bool         `json:"isFeatured"`
	Views       int          `json:"views"`
	Likes       int          `json:"likes"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	User        *UserSummary `json:"user,omitempty"`
}
