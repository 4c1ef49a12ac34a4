package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"booking-service/internal/content"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type PostStore struct {
	q Querier
}

func NewPostStore(db *DB) *PostStore {
	return &PostStore{q: db.Querier()}
}

const postColumns = `slug, title, description, tags, category, markdown, status, author, COALESCE(share_urn, ''), COALESCE(image_url, ''), created_at, published_at`

func (s *PostStore) Create(ctx context.Context, p *content.Post) error {
	_, err := s.q.Exec(ctx, `INSERT INTO posts
		(slug, title, description, tags, category, markdown, status, author, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.Slug, p.Title, p.Description, p.Tags, p.Category, p.Markdown, string(p.Status), p.Author, p.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert post %s: %w", p.Slug, content.ErrDuplicateSlug)
	}
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*content.Post, error) {
	var p content.Post
	var status string
	if err := row.Scan(&p.Slug, &p.Title, &p.Description, &p.Tags, &p.Category, &p.Markdown,
		&status, &p.Author, &p.ShareURN, &p.ImageURL, &p.CreatedAt, &p.PublishedAt); err != nil {
		return nil, err
	}
	p.Status = content.Status(status)
	return &p, nil
}

func (s *PostStore) Get(ctx context.Context, slug string) (*content.Post, error) {
	p, err := scanPost(s.q.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug=$1`, slug))
	if isNoRows(err) {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", slug, err)
	}
	return p, nil
}

func (s *PostStore) ListByStatus(ctx context.Context, status content.Status) ([]content.Post, error) {
	order := "created_at DESC"
	if status == content.StatusPublished {
		order = "published_at DESC"
	}
	rows, err := s.q.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE status=$1 ORDER BY `+order, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []content.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PostStore) Transition(ctx context.Context, slug string, from, to content.Status, at time.Time) error {
	q := `UPDATE posts SET status=$3, reviewed_at=$4 WHERE slug=$1 AND status=$2`
	if to == content.StatusPublished {
		q = `UPDATE posts SET status=$3, published_at=$4 WHERE slug=$1 AND status=$2`
	}
	tag, err := s.q.Exec(ctx, q, slug, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update post %s: %w", slug, err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (s *PostStore) SetShareURN(ctx context.Context, slug, urn string) error {
	_, err := s.q.Exec(ctx, `UPDATE posts SET share_urn=$2 WHERE slug=$1`, slug, urn)
	return err
}

// SaveImage stores the header image and points the post at it in one statement.
func (s *PostStore) SaveImage(ctx context.Context, slug string, img *content.Image, url string) error {
	tag, err := s.q.Exec(ctx, `WITH saved AS (
			INSERT INTO post_images (slug, mime_type, data) VALUES ($1,$2,$3)
			ON CONFLICT (slug) DO UPDATE SET mime_type=EXCLUDED.mime_type, data=EXCLUDED.data
		)
		UPDATE posts SET image_url=$4 WHERE slug=$1`,
		slug, img.MIMEType, img.Data, url)
	if err != nil {
		return fmt.Errorf("save image %s: %w", slug, err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (s *PostStore) Image(ctx context.Context, slug string) (*content.Image, error) {
	var img content.Image
	err := s.q.QueryRow(ctx, `SELECT mime_type, data FROM post_images WHERE slug=$1`, slug).Scan(&img.MIMEType, &img.Data)
	if isNoRows(err) {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", slug, err)
	}
	return &img, nil
}
