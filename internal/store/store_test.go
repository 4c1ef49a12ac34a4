package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/attempt"
	"booking-service/internal/content"
	"booking-service/internal/reminders"
)

func TestMigrationFiles(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_bookings.sql", "0002_posts.sql", "0003_post_images.sql"}, files)

	b, err := migrations.ReadFile("migrations/0002_posts.sql")
	require.NoError(t, err)
	assert.Contains(t, string(b), "CREATE TABLE IF NOT EXISTS posts")

	b, err = migrations.ReadFile("migrations/0003_post_images.sql")
	require.NoError(t, err)
	assert.Contains(t, string(b), "ADD COLUMN IF NOT EXISTS image_url")
	assert.Contains(t, string(b), "CREATE TABLE IF NOT EXISTS post_images")
}

func TestDispatchRows(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := dispatchRows([]reminders.Result{
		{Kind: reminders.Immediate, SendAt: at, Immediate: true, Delivery: attempt.Attempt[string]{Value: "email_1"}},
		{Kind: reminders.OneHourBefore, SendAt: at.Add(time.Hour), Delivery: attempt.Attempt[string]{Err: errors.New("rate limited")}},
	})

	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].DeliveryID)
	assert.Equal(t, "email_1", *rows[0].DeliveryID)
	assert.Nil(t, rows[0].Error)
	assert.True(t, rows[0].Immediate)

	assert.Nil(t, rows[1].DeliveryID)
	require.NotNil(t, rows[1].Error)
	assert.Equal(t, "rate limited", *rows[1].Error)
	assert.Equal(t, "one_hour_before", rows[1].Kind)
}

type mockQuerier struct {
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFunc(ctx, sql, args...)
}

func (m *mockQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFunc(ctx, sql, args...)
}

func TestPostStore_Transition(t *testing.T) {
	tests := []struct {
		name    string
		to      content.Status
		tag     string
		wantCol string
		wantErr error
	}{
		{name: "approve", to: content.StatusApproved, tag: "UPDATE 1", wantCol: "reviewed_at"},
		{name: "publish", to: content.StatusPublished, tag: "UPDATE 1", wantCol: "published_at"},
		{name: "no matching draft", to: content.StatusRejected, tag: "UPDATE 0", wantCol: "reviewed_at", wantErr: content.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSQL string
			var gotArgs []any
			s := &PostStore{q: &mockQuerier{execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				gotSQL, gotArgs = sql, args
				return pgconn.NewCommandTag(tt.tag), nil
			}}}

			err := s.Transition(context.Background(), "slug", content.StatusDraft, tt.to, time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, strings.Contains(gotSQL, tt.wantCol))
			assert.Equal(t, "draft", gotArgs[1])
			assert.Equal(t, string(tt.to), gotArgs[2])
		})
	}
}

func TestPostStore_Create(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "inserted", execErr: nil},
		{name: "slug taken", execErr: &pgconn.PgError{Code: "23505", ConstraintName: "posts_pkey"}, wantErr: content.ErrDuplicateSlug},
		{name: "other failure", execErr: &pgconn.PgError{Code: "23514"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &PostStore{q: &mockQuerier{execFunc: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("INSERT 0 1"), tt.execErr
			}}}

			err := s.Create(context.Background(), &content.Post{Slug: "cut-no-shows", Status: content.StatusDraft})
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.execErr != nil:
				require.Error(t, err)
				assert.NotErrorIs(t, err, content.ErrDuplicateSlug)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostStore_SaveImage(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	tag := "UPDATE 1"
	s := &PostStore{q: &mockQuerier{execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		gotSQL, gotArgs = sql, args
		return pgconn.NewCommandTag(tag), nil
	}}}

	img := &content.Image{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	require.NoError(t, s.SaveImage(context.Background(), "a", img, "/api/blog/posts/a/image"))
	assert.Contains(t, gotSQL, "INSERT INTO post_images")
	assert.Contains(t, gotSQL, "UPDATE posts SET image_url")
	assert.Equal(t, []any{"a", "image/png", img.Data, "/api/blog/posts/a/image"}, gotArgs)

	tag = "UPDATE 0"
	assert.ErrorIs(t, s.SaveImage(context.Background(), "gone", img, "/x"), content.ErrNotFound)
}

func TestPostStore_Image(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s := &PostStore{q: &mockQuerier{queryRowFunc: func(_ context.Context, _ string, args ...any) pgx.Row {
			assert.Equal(t, []any{"a"}, args)
			return rowFunc(func(dest ...any) error {
				*dest[0].(*string) = "image/png"
				*dest[1].(*[]byte) = []byte("png")
				return nil
			})
		}}}
		img, err := s.Image(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.Equal(t, []byte("png"), img.Data)
	})

	t.Run("missing", func(t *testing.T) {
		s := &PostStore{q: &mockQuerier{queryRowFunc: func(context.Context, string, ...any) pgx.Row {
			return rowFunc(func(...any) error { return pgx.ErrNoRows })
		}}}
		_, err := s.Image(context.Background(), "a")
		assert.ErrorIs(t, err, content.ErrNotFound)
	})
}
