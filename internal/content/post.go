// Package content drafts, reviews and publishes blog posts.
package content

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusApproved  Status = "approved"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

var (
	ErrNotFound          = errors.New("post not found")
	ErrInvalidTransition = errors.New("invalid post status transition")
	ErrDuplicateSlug     = errors.New("a post with this slug already exists")
)

type Post struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Category    string     `json:"category,omitempty"`
	Markdown    string     `json:"markdown"`
	HTML        string     `json:"html,omitempty"`
	Status      Status     `json:"status"`
	Author      string     `json:"author"`
	CreatedAt   time.Time  `json:"createdAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ShareURN    string     `json:"shareUrn,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
}

// Repository persists posts. Create fails with ErrDuplicateSlug when the slug
// is taken. Transition moves a post from one status to another and fails with
// ErrNotFound when no post with that slug is in from.
type Repository interface {
	Create(ctx context.Context, p *Post) error
	Get(ctx context.Context, slug string) (*Post, error)
	ListByStatus(ctx context.Context, status Status) ([]Post, error)
	Transition(ctx context.Context, slug string, from, to Status, at time.Time) error
	SetShareURN(ctx context.Context, slug, urn string) error
	SaveImage(ctx context.Context, slug string, img *Image, url string) error
	Image(ctx context.Context, slug string) (*Image, error)
}
