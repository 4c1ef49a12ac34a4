package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Action string

// ErrGeneratorNotConfigured is returned by GenerateDraft without a Pipeline.
var ErrGeneratorNotConfigured = errors.New("content generator not configured")

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Sharer cross-posts a published article.
type Sharer interface {
	Share(ctx context.Context, text, articleURL string) (string, error)
}

// Service drafts and publishes posts. Images, Notifier and Links are
// optional; a draft is saved whether or not they succeed.
type Service struct {
	Repo        Repository
	Pipeline    *Pipeline
	Sharer      Sharer
	Images      ImageGenerator
	Notifier    Notifier
	Links       *ReviewLinks
	SiteBaseURL string
	Author      string
	Log         *zap.Logger
	Now         func() time.Time
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// GenerateDraft writes a new post about idea (or a random pool topic) and
// stores it as a draft awaiting review.
func (s *Service) GenerateDraft(ctx context.Context, idea string) (*Post, error) {
	if s.Pipeline == nil {
		return nil, ErrGeneratorNotConfigured
	}
	topic := s.Pipeline.PickTopic(ctx, idea)
	s.logger().Info("drafting post", zap.String("topic", topic.Title), zap.String("category", topic.Category))

	post, err := s.Pipeline.Draft(ctx, topic)
	if err != nil {
		return nil, err
	}
	post.Author = s.Author
	post.CreatedAt = s.now()

	if err := s.Repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("save draft %s: %w", post.Slug, err)
	}
	s.logger().Info("draft saved", zap.String("slug", post.Slug))

	s.attachImage(ctx, post)
	s.requestReview(ctx, post)
	return post, nil
}

func (s *Service) attachImage(ctx context.Context, post *Post) {
	if s.Images == nil {
		return
	}
	img, err := s.Images.GenerateImage(ctx, imagePrompt(post.Title))
	if err != nil {
		s.logger().Warn("header image failed", zap.String("slug", post.Slug), zap.Error(err))
		return
	}
	url := ImagePath(post.Slug)
	if err := s.Repo.SaveImage(ctx, post.Slug, img, url); err != nil {
		s.logger().Warn("saving header image failed", zap.String("slug", post.Slug), zap.Error(err))
		return
	}
	post.ImageURL = url
}

func (s *Service) requestReview(ctx context.Context, post *Post) {
	if s.Notifier == nil {
		s.logger().Warn("review mail not configured", zap.String("slug", post.Slug))
		return
	}
	notice := ReviewNotice{Post: post}
	if s.Links != nil {
		n, err := s.Links.Notice(post)
		if err != nil {
			s.logger().Warn("review links failed", zap.String("slug", post.Slug), zap.Error(err))
		} else {
			notice = n
		}
	}
	if err := s.Notifier.NotifyReview(ctx, notice); err != nil {
		s.logger().Warn("review mail failed", zap.String("slug", post.Slug), zap.Error(err))
		return
	}
	s.logger().Info("review mail sent", zap.String("slug", post.Slug))
}

// ReviewLink applies the decision carried by a signed review link.
func (s *Service) ReviewLink(ctx context.Context, token string) (*Post, error) {
	if s.Links == nil {
		return nil, ErrBadReviewLink
	}
	d, err := s.Links.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.Review(ctx, d.Slug, d.Action, d.Immediate)
}

// Review approves or rejects a draft. An immediate approval publishes at once.
func (s *Service) Review(ctx context.Context, slug string, action Action, immediate bool) (*Post, error) {
	switch action {
	case ActionReject:
		if err := s.Repo.Transition(ctx, slug, StatusDraft, StatusRejected, s.now()); err != nil {
			return nil, err
		}
	case ActionApprove:
		if err := s.Repo.Transition(ctx, slug, StatusDraft, StatusApproved, s.now()); err != nil {
			return nil, err
		}
		if immediate {
			if err := s.publish(ctx, slug); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	return s.Repo.Get(ctx, slug)
}

// PublishApproved publishes every approved post and returns the slugs that
// went live. A failing post does not stop the rest.
func (s *Service) PublishApproved(ctx context.Context) ([]string, error) {
	approved, err := s.Repo.ListByStatus(ctx, StatusApproved)
	if err != nil {
		return nil, err
	}
	var published []string
	var errs []error
	for _, p := range approved {
		if err := s.publish(ctx, p.Slug); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Slug, err))
			continue
		}
		published = append(published, p.Slug)
	}
	return published, errors.Join(errs...)
}

func (s *Service) publish(ctx context.Context, slug string) error {
	if err := s.Repo.Transition(ctx, slug, StatusApproved, StatusPublished, s.now()); err != nil {
		return err
	}
	s.logger().Info("post published", zap.String("slug", slug))

	if s.Sharer == nil {
		s.logger().Warn("linkedin not configured, skipping share", zap.String("slug", slug))
		return nil
	}
	post, err := s.Repo.Get(ctx, slug)
	if err != nil {
		return err
	}
	url := s.PostURL(slug)
	urn, err := s.Sharer.Share(ctx, ShareText(*post, url), url)
	if err != nil {
		s.logger().Warn("linkedin share failed", zap.String("slug", slug), zap.Error(err))
		return nil
	}
	if err := s.Repo.SetShareURN(ctx, slug, urn); err != nil {
		s.logger().Warn("recording share failed", zap.String("slug", slug), zap.Error(err))
	}
	return nil
}

func (s *Service) PostURL(slug string) string {
	return strings.TrimRight(s.SiteBaseURL, "/") + "/blog/" + slug
}

// Published returns a live post with its HTML rendered.
func (s *Service) Published(ctx context.Context, slug string) (*Post, error) {
	p, err := s.Repo.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPublished {
		return nil, ErrNotFound
	}
	if p.HTML, err = Render(p.Markdown); err != nil {
		return nil, fmt.Errorf("render %s: %w", slug, err)
	}
	return p, nil
}

// PublishedImage returns the header image of a live post.
func (s *Service) PublishedImage(ctx context.Context, slug string) (*Image, error) {
	p, err := s.Repo.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPublished || p.ImageURL == "" {
		return nil, ErrNotFound
	}
	return s.Repo.Image(ctx, slug)
}

func (s *Service) List(ctx context.Context, status Status) ([]Post, error) {
	return s.Repo.ListByStatus(ctx, status)
}
