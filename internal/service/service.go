// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"

	"github.com/Decentr-net/mosaic/internal/entities"
	"github.com/Decentr-net/mosaic/internal/media"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

var (
	// ErrOwnerNotFound is returned when post's owner is unknown.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrPostNotFound ...
	ErrPostNotFound = errors.New("post not found")
	// ErrNoMediaProvided is returned when post is created without media.
	ErrNoMediaProvided = errors.New("no media provided")
	// ErrPostIDRequired ...
	ErrPostIDRequired = errors.New("post id is required")
	// ErrForbidden is returned when viewer is not allowed to see or like the post.
	ErrForbidden = errors.New("forbidden")
	// ErrStorageFailure is returned when media transfer or post persistence failed.
	ErrStorageFailure = errors.New("storage failure")
)

// CreatePostRequest ...
type CreatePostRequest struct {
	Owner      string
	Content    string
	Visibility entities.Visibility
	Tags       []string
	Media      *media.Upload
}

// LikeResult ...
type LikeResult struct {
	Liked      bool
	LikesCount uint64
}

// Service ...
type Service interface {
	// CreatePost admits media, stores it and creates post. Returns id of the new post.
	CreatePost(ctx context.Context, r *CreatePostRequest) (string, error)
	// ListByCategory returns owner's posts of the category, newest first.
	ListByCategory(ctx context.Context, owner, viewer string, c entities.MediaCategory) ([]*entities.Post, error)
	// GetPost returns the post and increments its views.
	GetPost(ctx context.Context, id, viewer string) (*entities.Post, error)
	// ToggleLike likes the post or removes viewer's like.
	ToggleLike(ctx context.Context, id, viewer string) (*LikeResult, error)
}
