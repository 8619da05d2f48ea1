// Package storage contains a storage interface.
package storage

import (
	"context"
	"fmt"

	"github.com/Decentr-net/mosaic/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound ...
var ErrNotFound = fmt.Errorf("not found")

// ErrAlreadyExists ...
var ErrAlreadyExists = fmt.Errorf("already exists")

// Storage provides methods for interacting with database.
// Counters are updated atomically on the database side.
type Storage interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id string) (*entities.User, error)
	SetUser(ctx context.Context, u *entities.User) error
	Follow(ctx context.Context, follower, followee string) error
	Unfollow(ctx context.Context, follower, followee string) error

	CreatePost(ctx context.Context, p *entities.Post) error
	GetPost(ctx context.Context, id string) (*entities.Post, error)
	ListPosts(ctx context.Context, p *ListPostsParams) ([]*entities.Post, error)

	// IncrementViews increments views counter and returns its new value.
	IncrementViews(ctx context.Context, id string) (uint64, error)
	// AddLike adds user to post's likes and returns likes count. It is idempotent.
	AddLike(ctx context.Context, id string, user string) (uint64, error)
	// RemoveLike removes user from post's likes and returns likes count and whether the like existed.
	RemoveLike(ctx context.Context, id string, user string) (uint64, bool, error)
}

// ListPostsParams ...
type ListPostsParams struct {
	Owner    string
	Category *entities.MediaCategory
}
