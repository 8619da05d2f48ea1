// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Decentr-net/mosaic/internal/entities"
	"github.com/Decentr-net/mosaic/internal/storage"
)

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

type pg struct {
	db *sqlx.DB
}

type postDTO struct {
	ID            string         `db:"id"`
	Owner         string         `db:"owner"`
	Content       string         `db:"content"`
	MediaURL      string         `db:"media_url"`
	MediaCategory string         `db:"media_category"`
	Visibility    string         `db:"visibility"`
	Tags          pq.StringArray `db:"tags"`
	Views         int64          `db:"views"`
	Likes         pq.StringArray `db:"likes"`
	CreatedAt     time.Time      `db:"created_at"`
}

type userDTO struct {
	ID        string         `db:"id"`
	IsPrivate bool           `db:"is_private"`
	Followers pq.StringArray `db:"followers"`
}

const selectPost = `
	SELECT p.id, p.owner, p.content, p.media_url, p.media_category, p.visibility, p.tags, p.views, p.created_at,
		COALESCE(array_agg(l.liked_by ORDER BY l.liked_at, l.liked_by) FILTER (WHERE l.liked_by IS NOT NULL), '{}') AS likes
	FROM post p
	LEFT JOIN post_like l ON l.post_id = p.id
`

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		db: sqlx.NewDb(db, "postgres"),
	}
}

func (s pg) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s pg) GetUser(ctx context.Context, id string) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.db, &u, `
			SELECT a.id, a.is_private,
				COALESCE(array_agg(f.follower ORDER BY f.follower) FILTER (WHERE f.follower IS NOT NULL), '{}') AS followers
			FROM account a
			LEFT JOIN follow f ON f.followee = a.id
			WHERE a.id = $1
			GROUP BY a.id
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &entities.User{
		ID:        u.ID,
		IsPrivate: u.IsPrivate,
		Followers: []string(u.Followers),
	}, nil
}

// SetUser upserts account. Followers are managed with Follow and Unfollow.
func (s pg) SetUser(ctx context.Context, u *entities.User) error {
	if _, err := s.db.ExecContext(ctx, `
			INSERT INTO account(id, is_private) VALUES($1, $2)
			ON CONFLICT(id) DO UPDATE SET is_private=excluded.is_private
		`, u.ID, u.IsPrivate,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) Follow(ctx context.Context, follower, followee string) error {
	if _, err := s.db.ExecContext(ctx,
		`
			INSERT INTO follow(follower, followee) VALUES($1, $2) ON CONFLICT DO NOTHING
		`, follower, followee,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) Unfollow(ctx context.Context, follower, followee string) error {
	if _, err := s.db.ExecContext(ctx,
		`
			DELETE FROM follow WHERE follower=$1 AND followee=$2
		`, follower, followee,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) CreatePost(ctx context.Context, p *entities.Post) error {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	post := postDTO{
		ID:            p.ID,
		Owner:         p.Owner,
		Content:       p.Content,
		MediaURL:      p.MediaURL,
		MediaCategory: string(p.MediaCategory),
		Visibility:    string(p.Visibility),
		Tags:          pq.StringArray(tags),
		CreatedAt:     p.CreatedAt.UTC(),
	}

	if _, err := sqlx.NamedExecContext(ctx, s.db,
		`
			INSERT INTO post(id, owner, content, media_url, media_category, visibility, tags, created_at)
			VALUES(:id, :owner, :content, :media_url, :media_category, :visibility, :tags, :created_at)
		`, post,
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == uniqueViolation {
			return storage.ErrAlreadyExists
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) GetPost(ctx context.Context, id string) (*entities.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.db, &p, selectPost+`
			WHERE p.id = $1
			GROUP BY p.id
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toEntity(&p), nil
}

func (s pg) ListPosts(ctx context.Context, params *storage.ListPostsParams) ([]*entities.Post, error) {
	var category sql.NullString
	if params.Category != nil {
		category = sql.NullString{String: string(*params.Category), Valid: true}
	}

	var p []*postDTO

	if err := sqlx.SelectContext(ctx, s.db, &p, selectPost+`
			WHERE p.owner = $1 AND ($2::TEXT IS NULL OR p.media_category = $2)
			GROUP BY p.id
			ORDER BY p.created_at DESC, p.id
		`, params.Owner, category,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Post, len(p))
	for i, v := range p {
		out[i] = toEntity(v)
	}

	return out, nil
}

func (s pg) IncrementViews(ctx context.Context, id string) (uint64, error) {
	var views uint64

	if err := sqlx.GetContext(ctx, s.db, &views,
		`UPDATE post SET views = views + 1 WHERE id = $1 RETURNING views`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}

		return 0, fmt.Errorf("failed to exec: %w", err)
	}

	return views, nil
}

func (s pg) AddLike(ctx context.Context, id string, user string) (uint64, error) {
	var count uint64

	// rows inserted by the CTE are not visible to the outer query
	if err := sqlx.GetContext(ctx, s.db, &count, `
			WITH ins AS (
				INSERT INTO post_like(post_id, liked_by, liked_at) VALUES($1, $2, $3)
				ON CONFLICT DO NOTHING
				RETURNING 1
			)
			SELECT (SELECT COUNT(*) FROM post_like WHERE post_id = $1) + (SELECT COUNT(*) FROM ins)
		`, id, user, time.Now().UTC(),
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return 0, storage.ErrNotFound
		}

		return 0, fmt.Errorf("failed to exec: %w", err)
	}

	return count, nil
}

func (s pg) RemoveLike(ctx context.Context, id string, user string) (uint64, bool, error) {
	var res struct {
		Likes   uint64 `db:"likes"`
		Removed bool   `db:"removed"`
	}

	if err := sqlx.GetContext(ctx, s.db, &res, `
			WITH del AS (
				DELETE FROM post_like WHERE post_id = $1 AND liked_by = $2
				RETURNING 1
			)
			SELECT
				(SELECT COUNT(*) FROM post_like WHERE post_id = $1) - (SELECT COUNT(*) FROM del) AS likes,
				EXISTS(SELECT 1 FROM del) AS removed
		`, id, user,
	); err != nil {
		return 0, false, fmt.Errorf("failed to exec: %w", err)
	}

	return res.Likes, res.Removed, nil
}

func toEntity(p *postDTO) *entities.Post {
	return &entities.Post{
		ID:            p.ID,
		Owner:         p.Owner,
		Content:       p.Content,
		MediaURL:      p.MediaURL,
		MediaCategory: entities.MediaCategory(p.MediaCategory),
		Visibility:    entities.Visibility(p.Visibility),
		Tags:          []string(p.Tags),
		Views:         uint64(p.Views),
		Likes:         []string(p.Likes),
		CreatedAt:     p.CreatedAt,
	}
}
