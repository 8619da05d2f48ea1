// Package impl is implementation of service interface.
package impl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/mosaic/internal/entities"
	"github.com/Decentr-net/mosaic/internal/media"
	"github.com/Decentr-net/mosaic/internal/policy"
	"github.com/Decentr-net/mosaic/internal/service"
	"github.com/Decentr-net/mosaic/internal/storage"
)

var log = logrus.WithField("layer", "service").WithField("package", "impl")

// service ...
type srv struct {
	s storage.Storage
	m media.Store
	v *media.Validator

	now   func() time.Time
	newID func() string
}

// New creates new instance of service.
func New(s storage.Storage, m media.Store, v *media.Validator) service.Service {
	return srv{
		s:     s,
		m:     m,
		v:     v,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

func (s srv) CreatePost(ctx context.Context, r *service.CreatePostRequest) (string, error) {
	if _, err := s.getUser(ctx, r.Owner); err != nil {
		return "", err
	}

	if r.Media == nil {
		return "", service.ErrNoMediaProvided
	}

	id := s.newID()

	a, err := s.v.Admit(r.Media, id)
	if err != nil {
		return "", err
	}

	url, err := s.m.Store(ctx, a.Key, a.MimeType, r.Media.Data)
	if err != nil {
		return "", fmt.Errorf("%w: failed to store media: %w", service.ErrStorageFailure, err)
	}

	visibility := r.Visibility
	if visibility == "" {
		visibility = entities.PublicVisibility
	}

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}

	p := entities.Post{
		ID:            id,
		Owner:         r.Owner,
		Content:       r.Content,
		MediaURL:      url,
		MediaCategory: a.Category,
		Visibility:    visibility,
		Tags:          tags,
		CreatedAt:     s.now(),
	}

	if err := s.s.CreatePost(ctx, &p); err != nil {
		if err := s.m.Delete(ctx, a.Key); err != nil {
			log.WithError(err).WithField("key", a.Key).Error("failed to delete orphaned media")
		}

		return "", fmt.Errorf("%w: failed to create post on storage side: %w", service.ErrStorageFailure, err)
	}

	return p.ID, nil
}

func (s srv) ListByCategory(ctx context.Context, owner, viewer string, c entities.MediaCategory) ([]*entities.Post, error) {
	u, err := s.getUser(ctx, owner)
	if err != nil {
		return nil, err
	}

	if !policy.CanView(viewer, u) {
		return nil, service.ErrForbidden
	}

	posts, err := s.s.ListPosts(ctx, &storage.ListPostsParams{
		Owner:    owner,
		Category: &c,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts on storage side: %w", err)
	}

	return posts, nil
}

func (s srv) GetPost(ctx context.Context, id, viewer string) (*entities.Post, error) {
	p, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if viewer != p.Owner {
		u, err := s.getUser(ctx, p.Owner)
		if err != nil {
			return nil, err
		}

		if !policy.CanView(viewer, u) {
			return nil, service.ErrForbidden
		}
	}

	views, err := s.s.IncrementViews(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrPostNotFound
		}

		return nil, fmt.Errorf("failed to increment views on storage side: %w", err)
	}
	p.Views = views

	return p, nil
}

func (s srv) ToggleLike(ctx context.Context, id, viewer string) (*service.LikeResult, error) {
	p, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	count, removed, err := s.s.RemoveLike(ctx, id, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to remove like on storage side: %w", err)
	}

	if removed {
		return &service.LikeResult{Liked: false, LikesCount: count}, nil
	}

	u, err := s.getUser(ctx, p.Owner)
	if err != nil {
		return nil, err
	}

	if !policy.CanInteract(viewer, p, u) {
		return nil, service.ErrForbidden
	}

	count, err = s.s.AddLike(ctx, id, viewer)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrPostNotFound
		}

		return nil, fmt.Errorf("failed to add like on storage side: %w", err)
	}

	return &service.LikeResult{Liked: true, LikesCount: count}, nil
}

func (s srv) getUser(ctx context.Context, id string) (*entities.User, error) {
	u, err := s.s.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrOwnerNotFound
		}

		return nil, fmt.Errorf("failed to get user on storage side: %w", err)
	}

	return u, nil
}

func (s srv) getPost(ctx context.Context, id string) (*entities.Post, error) {
	if id == "" {
		return nil, service.ErrPostIDRequired
	}

	p, err := s.s.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrPostNotFound
		}

		return nil, fmt.Errorf("failed to get post on storage side: %w", err)
	}

	return p, nil
}
