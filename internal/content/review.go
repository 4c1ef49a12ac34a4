package content

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const reviewAudience = "blog-review"

// ErrBadReviewLink covers expired, tampered or foreign review tokens.
var ErrBadReviewLink = errors.New("invalid review link")

// ReviewNotice is what the reviewer receives for a fresh draft. The URLs are
// empty when review links are not configured.
type ReviewNotice struct {
	Post       *Post
	ApproveURL string
	PublishURL string
	RejectURL  string
}

// Notifier tells a human that a draft is waiting.
type Notifier interface {
	NotifyReview(ctx context.Context, n ReviewNotice) error
}

// ReviewLinks signs one-click approve and reject links for the review mail.
// Tokens are signed with a key derived from the admin secret so they never
// pass as admin bearer tokens.
type ReviewLinks struct {
	key     []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewReviewLinks(secret, baseURL string, ttl time.Duration) *ReviewLinks {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(reviewAudience))
	return &ReviewLinks{
		key:     mac.Sum(nil),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}
}

type reviewClaims struct {
	Action    Action `json:"act"`
	Immediate bool   `json:"imm,omitempty"`
	jwt.RegisteredClaims
}

// ReviewDecision is a verified review link.
type ReviewDecision struct {
	Slug      string
	Action    Action
	Immediate bool
}

func (l *ReviewLinks) Notice(p *Post) (ReviewNotice, error) {
	n := ReviewNotice{Post: p}
	var err error
	if n.ApproveURL, err = l.link(p.Slug, ActionApprove, false); err != nil {
		return n, err
	}
	if n.PublishURL, err = l.link(p.Slug, ActionApprove, true); err != nil {
		return n, err
	}
	if n.RejectURL, err = l.link(p.Slug, ActionReject, false); err != nil {
		return n, err
	}
	return n, nil
}

func (l *ReviewLinks) link(slug string, action Action, immediate bool) (string, error) {
	now := l.now()
	claims := reviewClaims{
		Action:    action,
		Immediate: immediate,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   slug,
			Audience:  jwt.ClaimStrings{reviewAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.key)
	if err != nil {
		return "", fmt.Errorf("sign review link: %w", err)
	}
	return l.baseURL + "/api/blog/review?token=" + url.QueryEscape(tok), nil
}

// Verify checks a token taken from a review link.
func (l *ReviewLinks) Verify(token string) (ReviewDecision, error) {
	var claims reviewClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return l.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(reviewAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		return ReviewDecision{}, fmt.Errorf("%w: %w", ErrBadReviewLink, err)
	}
	if claims.Subject == "" {
		return ReviewDecision{}, fmt.Errorf("%w: missing slug", ErrBadReviewLink)
	}
	return ReviewDecision{Slug: claims.Subject, Action: claims.Action, Immediate: claims.Immediate}, nil
}
