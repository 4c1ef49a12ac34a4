package content

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockImages struct {
	generateFunc func(ctx context.Context, prompt string) (*Image, error)
	prompt       string
}

func (m *mockImages) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	m.prompt = prompt
	return m.generateFunc(ctx, prompt)
}

type mockNotifier struct {
	notifyFunc func(ctx context.Context, n ReviewNotice) error
	calls      int
	got        ReviewNotice
}

func (m *mockNotifier) NotifyReview(ctx context.Context, n ReviewNotice) error {
	m.calls++
	m.got = n
	return m.notifyFunc(ctx, n)
}

func draftLLM() *scriptedLLM {
	return &scriptedLLM{replies: map[string]string{
		"research analyst": `{"safe_claims": []}`,
		"1,000-1,500":      `{"title": "Cut PT No-Shows", "description": "d", "content": "## Body", "tags": ["no-shows"]}`,
		"senior editor":    `{"title": "Cut PT No-Shows", "description": "d", "content": "## Body"}`,
		"proofreader":      `{"title": "Cut PT No-Shows", "description": "d", "content": "## Body"}`,
	}}
}

func testLinks(at time.Time) *ReviewLinks {
	l := NewReviewLinks("s3cret", "https://api.example.com/", 24*time.Hour)
	l.now = func() time.Time { return at }
	return l
}

func tokenOf(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/api/blog/review", u.Path)
	return u.Query().Get("token")
}

func TestService_GenerateDraft(t *testing.T) {
	png := &Image{MIMEType: "image/png", Data: []byte("png")}
	okImages := func(context.Context, string) (*Image, error) { return png, nil }
	okNotify := func(context.Context, ReviewNotice) error { return nil }

	tests := []struct {
		name      string
		images    func(context.Context, string) (*Image, error)
		notify    func(context.Context, ReviewNotice) error
		wantImage bool
	}{
		{name: "image and review mail", images: okImages, notify: okNotify, wantImage: true},
		{name: "image fails", images: func(context.Context, string) (*Image, error) { return nil, errors.New("quota") }, notify: okNotify},
		{name: "review mail fails", images: okImages, notify: func(context.Context, ReviewNotice) error { return errors.New("resend down") }, wantImage: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			images := &mockImages{generateFunc: tt.images}
			notifier := &mockNotifier{notifyFunc: tt.notify}
			s := newService(repo, nil)
			s.Pipeline = &Pipeline{LLM: draftLLM(), Log: zap.NewNop()}
			s.Images = images
			s.Notifier = notifier
			s.Links = testLinks(s.now())

			post, err := s.GenerateDraft(context.Background(), "No-shows")
			require.NoError(t, err, "image and mail are best-effort")
			assert.Equal(t, "cut-pt-no-shows", post.Slug)
			assert.Contains(t, images.prompt, `"Cut PT No-Shows"`)

			stored, err := repo.Get(context.Background(), post.Slug)
			require.NoError(t, err)
			assert.Equal(t, StatusDraft, stored.Status)
			if tt.wantImage {
				assert.Equal(t, "/api/blog/posts/cut-pt-no-shows/image", post.ImageURL)
				assert.Equal(t, post.ImageURL, stored.ImageURL)
			} else {
				assert.Empty(t, post.ImageURL)
				assert.Empty(t, stored.ImageURL)
			}

			require.Equal(t, 1, notifier.calls)
			assert.Equal(t, post.Slug, notifier.got.Post.Slug)
			for _, link := range []string{notifier.got.ApproveURL, notifier.got.PublishURL, notifier.got.RejectURL} {
				assert.NotEmpty(t, tokenOf(t, link))
			}
		})
	}
}

func TestService_GenerateDraftWithoutExtras(t *testing.T) {
	repo := newMemRepo()
	s := newService(repo, nil)
	s.Pipeline = &Pipeline{LLM: draftLLM(), Log: zap.NewNop()}

	post, err := s.GenerateDraft(context.Background(), "No-shows")
	require.NoError(t, err)
	assert.Empty(t, post.ImageURL)

	_, err = s.GenerateDraft(context.Background(), "No-shows")
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestService_GenerateDraftMailWithoutLinks(t *testing.T) {
	notifier := &mockNotifier{notifyFunc: func(context.Context, ReviewNotice) error { return nil }}
	s := newService(newMemRepo(), nil)
	s.Pipeline = &Pipeline{LLM: draftLLM(), Log: zap.NewNop()}
	s.Notifier = notifier

	_, err := s.GenerateDraft(context.Background(), "No-shows")
	require.NoError(t, err)
	require.Equal(t, 1, notifier.calls)
	assert.Empty(t, notifier.got.ApproveURL)
	assert.Empty(t, notifier.got.RejectURL)
}

func TestReviewLinks_Verify(t *testing.T) {
	issued := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	l := testLinks(issued)
	n, err := l.Notice(&Post{Slug: "cut-no-shows"})
	require.NoError(t, err)

	t.Run("each link carries its decision", func(t *testing.T) {
		tests := []struct {
			link string
			want ReviewDecision
		}{
			{n.ApproveURL, ReviewDecision{Slug: "cut-no-shows", Action: ActionApprove}},
			{n.PublishURL, ReviewDecision{Slug: "cut-no-shows", Action: ActionApprove, Immediate: true}},
			{n.RejectURL, ReviewDecision{Slug: "cut-no-shows", Action: ActionReject}},
		}
		for _, tt := range tests {
			got, err := l.Verify(tokenOf(t, tt.link))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		}
	})

	t.Run("expired", func(t *testing.T) {
		late := testLinks(issued.Add(25 * time.Hour))
		_, err := late.Verify(tokenOf(t, n.ApproveURL))
		assert.ErrorIs(t, err, ErrBadReviewLink)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewReviewLinks("different", "https://api.example.com", time.Hour)
		other.now = l.now
		_, err := other.Verify(tokenOf(t, n.ApproveURL))
		assert.ErrorIs(t, err, ErrBadReviewLink)
	})

	t.Run("admin token signed with the raw secret", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "cut-no-shows", "act": "approve", "aud": "blog-review", "exp": issued.Add(time.Hour).Unix(),
		}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = l.Verify(tok)
		assert.ErrorIs(t, err, ErrBadReviewLink)
	})
}

func TestService_ReviewLink(t *testing.T) {
	repo := newMemRepo(Post{Slug: "a", Title: "A", Status: StatusDraft})
	s := newService(repo, nil)
	s.Links = testLinks(s.now())
	n, err := s.Links.Notice(&Post{Slug: "a"})
	require.NoError(t, err)

	got, err := s.ReviewLink(context.Background(), tokenOf(t, n.PublishURL))
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, got.Status)

	_, err = s.ReviewLink(context.Background(), tokenOf(t, n.RejectURL))
	assert.ErrorIs(t, err, ErrNotFound, "already published")

	_, err = s.ReviewLink(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrBadReviewLink)
}

func TestService_PublishedImage(t *testing.T) {
	repo := newMemRepo(
		Post{Slug: "live", Status: StatusPublished},
		Post{Slug: "draft", Status: StatusDraft},
		Post{Slug: "bare", Status: StatusPublished},
	)
	png := &Image{MIMEType: "image/png", Data: []byte("png")}
	require.NoError(t, repo.SaveImage(context.Background(), "live", png, ImagePath("live")))
	require.NoError(t, repo.SaveImage(context.Background(), "draft", png, ImagePath("draft")))
	s := newService(repo, nil)

	img, err := s.PublishedImage(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, png, img)

	for _, slug := range []string{"draft", "bare", "missing"} {
		_, err := s.PublishedImage(context.Background(), slug)
		assert.ErrorIs(t, err, ErrNotFound, slug)
	}
}

func TestFirstImage(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{
			genai.Text("here you go"),
			genai.Blob{MIMEType: "image/png", Data: []byte("png")},
		}}},
	}}
	img, err := firstImage(resp)
	require.NoError(t, err)
	assert.Equal(t, &Image{MIMEType: "image/png", Data: []byte("png")}, img)

	_, err = firstImage(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("no picture")}}},
	}})
	assert.Error(t, err)
}
