package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"booking-service/internal/apperrors"
	"booking-service/internal/content"
)

const linkedInStateCookie = "linkedin_oauth_state"

func (a *App) requireContent(c *gin.Context) bool {
	if a.Content == nil {
		a.respondError(c, apperrors.Unavailable("blog"))
		return false
	}
	return true
}

// contentError maps content sentinels onto the error taxonomy. slug is
// reported back when the handler knows it.
func (a *App) contentError(c *gin.Context, slug string, err error) {
	var details map[string]any
	if slug != "" {
		details = map[string]any{"slug": slug}
	}
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, content.ErrNotFound):
		appErr = apperrors.NotFound("post")
	case errors.Is(err, content.ErrDuplicateSlug):
		appErr = apperrors.Conflict(content.ErrDuplicateSlug.Error())
	case errors.Is(err, content.ErrInvalidTransition):
		appErr = apperrors.Validation(content.ErrInvalidTransition.Error(), nil)
	case errors.Is(err, content.ErrBadReviewLink):
		appErr = apperrors.Unauthorized("review link is invalid or expired")
	case errors.Is(err, content.ErrGeneratorNotConfigured):
		appErr = apperrors.Unavailable("content generator")
	default:
		a.respondError(c, apperrors.Internal("Blog request failed", err))
		return
	}
	if details != nil {
		appErr = appErr.WithDetails(details)
	}
	a.respondError(c, appErr)
}

// GET /api/blog/posts
func (a *App) ListPostsHandler(c *gin.Context) {
	if !a.requireContent(c) {
		return
	}
	posts, err := a.Content.List(c.Request.Context(), content.StatusPublished)
	if err != nil {
		a.contentError(c, "", err)
		return
	}
	if posts == nil {
		posts = []content.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

// GET /api/blog/posts/:slug
func (a *App) GetPostHandler(c *gin.Context) {
	if !a.requireContent(c) {
		return
	}
	slug := c.Param("slug")
	post, err := a.Content.Published(c.Request.Context(), slug)
	if err != nil {
		a.contentError(c, slug, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// GET /api/blog/posts/:slug/image
func (a *App) PostImageHandler(c *gin.Context) {
	if !a.requireContent(c) {
		return
	}
	slug := c.Param("slug")
	img, err := a.Content.PublishedImage(c.Request.Context(), slug)
	if err != nil {
		a.contentError(c, slug, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, img.MIMEType, img.Data)
}

// GET /api/blog/drafts
func (a *App) ListDraftsHandler(c *gin.Context) {
	if !a.requireContent(c) {
		return
	}
	drafts, err := a.Content.List(c.Request.Context(), content.StatusDraft)
	if err != nil {
		a.contentError(c, "", err)
		return
	}
	if drafts == nil {
		drafts = []content.Post{}
	}
	c.JSON(http.StatusOK, drafts)
}

type generateReq struct {
	Topic string `json:"topic"`
}

// POST /api/blog/generate
func (a *App) GenerateHandler(c *gin.Context) {
	if !a.requireContent(c) {
		return
	}
	var req generateReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			a.respondError(c, apperrors.Validation("Invalid request body", map[string]any{"body": err.Error()}))
			return
		}
	}
	post, err := a.Content.GenerateDraft(c.Request.Context(), req.Topic)
	if err != nil {
		a.contentError(c, "", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

type reviewReq struct {
	Slug      string `json:"slug" binding:"required"`
	Action    string `json:"action" binding:"required,oneof=approve reject"`
	Immediate bool   `json:"immediate"`
}

// POST /api/blog/review
func (a *App) ReviewHandler(c *gin.Context) {
	if !a.requireContent(c) {
		return
	}
	var req reviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, apperrors.Validation("Invalid request body", map[string]any{"body": err.Error()}))
		return
	}
	post, err := a.Content.Review(c.Request.Context(), req.Slug, content.Action(req.Action), req.Immediate)
	if err != nil {
		a.contentError(c, req.Slug, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// GET /api/blog/review?token=... is the one-click link from the review mail.
// The signed token is the credential.
func (a *App) ReviewLinkHandler(c *gin.Context) {
	if !a.requireContent(c) {
		return
	}
	token := c.Query("token")
	if token == "" {
		a.respondError(c, apperrors.Validation("token is required", nil))
		return
	}
	post, err := a.Content.ReviewLink(c.Request.Context(), token)
	if err != nil {
		a.contentError(c, "", err)
		return
	}
	resp := gin.H{"success": true, "slug": post.Slug, "status": post.Status}
	if post.Status == content.StatusPublished {
		resp["url"] = a.Content.PostURL(post.Slug)
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/linkedin/auth starts the OAuth flow for the account posts are shared from.
func (a *App) LinkedInAuthHandler(c *gin.Context) {
	if a.LinkedIn == nil {
		a.respondError(c, apperrors.Unavailable("LinkedIn"))
		return
	}
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(linkedInStateCookie, state, 600, "/", "", a.Config.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{
		"auth_url": a.LinkedIn.AuthCodeURL(state),
		"state":    state,
	})
}

// GET /oauth2/linkedin/callback
func (a *App) LinkedInCallbackHandler(c *gin.Context) {
	if a.LinkedIn == nil {
		a.respondError(c, apperrors.Unavailable("LinkedIn"))
		return
	}
	if e := c.Query("error"); e != "" {
		a.respondError(c, apperrors.Validation(e, map[string]any{"description": c.Query("error_description")}))
		return
	}
	code := c.Query("code")
	if code == "" {
		a.respondError(c, apperrors.Validation("authorization code required", nil))
		return
	}
	want, err := c.Cookie(linkedInStateCookie)
	if err != nil || want != c.Query("state") {
		a.respondError(c, apperrors.Validation("state mismatch", nil))
		return
	}

	creds, err := a.LinkedIn.Exchange(c.Request.Context(), code)
	if err != nil && creds == nil {
		a.respondError(c, apperrors.Provisioning("linkedin token", err))
		return
	}
	if err != nil {
		// the token is good; the URN can be looked up later
		a.Log.Warn("linkedin profile lookup failed, returning token without person urn", zap.Error(err))
	}
	c.SetCookie(linkedInStateCookie, "", -1, "/", "", a.Config.IsProduction(), true)
	c.JSON(http.StatusOK, creds)
}
