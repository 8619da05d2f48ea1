package impl

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/mosaic/internal/entities"
	"github.com/Decentr-net/mosaic/internal/media"
	mediamock "github.com/Decentr-net/mosaic/internal/media/mock"
	"github.com/Decentr-net/mosaic/internal/service"
	storageinterface "github.com/Decentr-net/mosaic/internal/storage"
	storage "github.com/Decentr-net/mosaic/internal/storage/mock"
)

var timestamp = time.Unix(1600000000, 0)

func newTestService(s storageinterface.Storage, m media.Store) srv {
	return srv{
		s:     s,
		m:     m,
		v:     media.NewValidator(func() time.Time { return timestamp }),
		now:   func() time.Time { return timestamp },
		newID: func() string { return "uuid" },
	}
}

func jpegData(t *testing.T, w, h int) []byte {
	var b bytes.Buffer
	require.NoError(t, jpeg.Encode(&b, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return b.Bytes()
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	require.NotNil(t, New(storage.NewMockStorage(ctrl), mediamock.NewMockStore(ctrl), media.NewValidator(nil)))
}

func TestSrv_CreatePost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := storage.NewMockStorage(ctrl)
	m := mediamock.NewMockStore(ctrl)
	srv := newTestService(s, m)

	data := jpegData(t, 16, 16)

	s.EXPECT().GetUser(gomock.Any(), "owner").Return(&entities.User{ID: "owner"}, nil)
	m.EXPECT().Store(gomock.Any(), "user-post-media/user-image/1600000000000_uuid_a.jpg", "image/jpeg", data).
		Return("http://media/a.jpg", nil)
	s.EXPECT().CreatePost(gomock.Any(), &entities.Post{
		ID:            "uuid",
		Owner:         "owner",
		Content:       "hello",
		MediaURL:      "http://media/a.jpg",
		MediaCategory: entities.ImageCategory,
		Visibility:    entities.PublicVisibility,
		Tags:          []string{},
		CreatedAt:     timestamp,
	}).Return(nil)

	id, err := srv.CreatePost(context.Background(), &service.CreatePostRequest{
		Owner:   "owner",
		Content: "hello",
		Media:   &media.Upload{MimeType: "image/jpeg", Size: int64(len(data)), Data: data, Name: "a.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, "uuid", id)
}

func TestSrv_CreatePost_Reel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := storage.NewMockStorage(ctrl)
	m := mediamock.NewMockStore(ctrl)
	srv := newTestService(s, m)

	s.EXPECT().GetUser(gomock.Any(), "owner").Return(&entities.User{ID: "owner"}, nil)
	m.EXPECT().Store(gomock.Any(), "user-post-media/user-reel/1600000000000_uuid_a.mp4", "video/mp4", gomock.Any()).
		Return("http://media/a.mp4", nil)
	s.EXPECT().CreatePost(gomock.Any(), gomock.Any()).Do(func(_ context.Context, p *entities.Post) {
		assert.Equal(t, entities.ReelCategory, p.MediaCategory)
		assert.Equal(t, entities.PrivateVisibility, p.Visibility)
		assert.Equal(t, []string{"x", "y"}, p.Tags)
	}).Return(nil)

	_, err := srv.CreatePost(context.Background(), &service.CreatePostRequest{
		Owner:      "owner",
		Visibility: entities.PrivateVisibility,
		Tags:       []string{"x", "y"},
		Media:      &media.Upload{MimeType: "video/mp4", Size: 40 * media.MiB, Data: []byte("video"), Name: "a.mp4"},
	})
	require.NoError(t, err)
}

func TestSrv_CreatePost_Errors(t *testing.T) {
	wide := jpegData(t, 512, 256)
	square := jpegData(t, 16, 16)

	tt := []struct {
		name  string
		req   service.CreatePostRequest
		owner error
		err   error
	}{
		{
			name:  "owner not found",
			req:   service.CreatePostRequest{Owner: "owner", Media: &media.Upload{MimeType: "image/jpeg", Data: square}},
			owner: storageinterface.ErrNotFound,
			err:   service.ErrOwnerNotFound,
		},
		{
			name:  "owner lookup failed",
			req:   service.CreatePostRequest{Owner: "owner", Media: &media.Upload{MimeType: "image/jpeg", Data: square}},
			owner: context.Canceled,
			err:   context.Canceled,
		},
		{
			name: "no media",
			req:  service.CreatePostRequest{Owner: "owner"},
			err:  service.ErrNoMediaProvided,
		},
		{
			name: "unsupported",
			req:  service.CreatePostRequest{Owner: "owner", Media: &media.Upload{MimeType: "image/gif", Data: []byte("GIF89a")}},
			err:  media.ErrUnsupportedFormat,
		},
		{
			name: "not square",
			req:  service.CreatePostRequest{Owner: "owner", Media: &media.Upload{MimeType: "image/jpeg", Size: 2 * media.MiB, Data: wide}},
			err:  media.ErrAspectRatioViolation,
		},
		{
			name: "large image",
			req:  service.CreatePostRequest{Owner: "owner", Media: &media.Upload{MimeType: "image/png", Size: 11 * media.MiB, Data: square}},
			err:  media.ErrPayloadTooLarge,
		},
		{
			name: "large reel",
			req:  service.CreatePostRequest{Owner: "owner", Media: &media.Upload{MimeType: "video/mp4", Size: 51 * media.MiB}},
			err:  media.ErrPayloadTooLarge,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s := storage.NewMockStorage(ctrl)
			m := mediamock.NewMockStore(ctrl)
			srv := newTestService(s, m)

			var u *entities.User
			if tc.owner == nil {
				u = &entities.User{ID: "owner"}
			}
			s.EXPECT().GetUser(gomock.Any(), "owner").Return(u, tc.owner)

			id, err := srv.CreatePost(context.Background(), &tc.req)
			require.True(t, errors.Is(err, tc.err), err)
			require.Empty(t, id)
		})
	}
}

func TestSrv_CreatePost_StoreFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := storage.NewMockStorage(ctrl)
	m := mediamock.NewMockStore(ctrl)
	srv := newTestService(s, m)

	s.EXPECT().GetUser(gomock.Any(), "owner").Return(&entities.User{ID: "owner"}, nil)
	m.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("disk is full"))

	_, err := srv.CreatePost(context.Background(), &service.CreatePostRequest{
		Owner: "owner",
		Media: &media.Upload{MimeType: "video/mp4", Data: []byte("video"), Name: "a.mp4"},
	})
	require.True(t, errors.Is(err, service.ErrStorageFailure))
}

func TestSrv_CreatePost_PersistFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := storage.NewMockStorage(ctrl)
	m := mediamock.NewMockStore(ctrl)
	srv := newTestService(s, m)

	s.EXPECT().GetUser(gomock.Any(), "owner").Return(&entities.User{ID: "owner"}, nil)
	m.EXPECT().Store(gomock.Any(), "user-post-media/user-reel/1600000000000_uuid_a.mp4", "video/mp4", gomock.Any()).
		Return("http://media/a.mp4", nil)
	s.EXPECT().CreatePost(gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded)
	m.EXPECT().Delete(gomock.Any(), "user-post-media/user-reel/1600000000000_uuid_a.mp4").Return(nil)

	_, err := srv.CreatePost(context.Background(), &service.CreatePostRequest{
		Owner: "owner",
		Media: &media.Upload{MimeType: "video/mp4", Data: []byte("video"), Name: "a.mp4"},
	})
	require.True(t, errors.Is(err, service.ErrStorageFailure))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSrv_ListByCategory(t *testing.T) {
	posts := []*entities.Post{{ID: "1", Owner: "owner", MediaCategory: entities.ReelCategory}}
	owner := &entities.User{ID: "owner", IsPrivate: true, Followers: []string{"follower"}}

	tt := []struct {
		name   string
		viewer string
		err    error
	}{
		{name: "owner", viewer: "owner"},
		{name: "follower", viewer: "follower"},
		{name: "stranger", viewer: "stranger", err: service.ErrForbidden},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s := storage.NewMockStorage(ctrl)
			srv := newTestService(s, mediamock.NewMockStore(ctrl))

			s.EXPECT().GetUser(gomock.Any(), "owner").Return(owner, nil)
			if tc.err == nil {
				s.EXPECT().ListPosts(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, p *storageinterface.ListPostsParams) ([]*entities.Post, error) {
						assert.Equal(t, "owner", p.Owner)
						assert.Equal(t, entities.ReelCategory, *p.Category)
						return posts, nil
					},
				)
			}

			res, err := srv.ListByCategory(context.Background(), "owner", tc.viewer, entities.ReelCategory)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err))
				return
			}

			require.NoError(t, err)
			require.Equal(t, posts, res)
		})
	}
}

func TestSrv_ListByCategory_PublicAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := storage.NewMockStorage(ctrl)
	srv := newTestService(s, mediamock.NewMockStore(ctrl))

	s.EXPECT().GetUser(gomock.Any(), "owner").Return(&entities.User{ID: "owner"}, nil)
	s.EXPECT().ListPosts(gomock.Any(), gomock.Any()).Return([]*entities.Post{}, nil)

	res, err := srv.ListByCategory(context.Background(), "owner", "stranger", entities.ImageCategory)
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestSrv_ListByCategory_OwnerNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := storage.NewMockStorage(ctrl)
	srv := newTestService(s, mediamock.NewMockStore(ctrl))

	s.EXPECT().GetUser(gomock.Any(), "owner").Return(nil, storageinterface.ErrNotFound)

	_, err := srv.ListByCategory(context.Background(), "owner", "viewer", entities.ImageCategory)
	require.True(t, errors.Is(err, service.ErrOwnerNotFound))
}

func TestSrv_GetPost(t *testing.T) {
	// A is private and followed by B; the post itself is public.
	owner := &entities.User{ID: "A", IsPrivate: true, Followers: []string{"B"}}
	post := func() *entities.Post {
		return &entities.Post{ID: "p", Owner: "A", Visibility: entities.PublicVisibility, Views: 3}
	}

	t.Run("follower", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s := storage.NewMockStorage(ctrl)
		srv := newTestService(s, mediamock.NewMockStore(ctrl))

		s.EXPECT().GetPost(gomock.Any(), "p").Return(post(), nil)
		s.EXPECT().GetUser(gomock.Any(), "A").Return(owner, nil)
		s.EXPECT().IncrementViews(gomock.Any(), "p").Return(uint64(4), nil)

		p, err := srv.GetPost(context.Background(), "p", "B")
		require.NoError(t, err)
		require.EqualValues(t, 4, p.Views)
	})

	t.Run("stranger", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s := storage.NewMockStorage(ctrl)
		srv := newTestService(s, mediamock.NewMockStore(ctrl))

		s.EXPECT().GetPost(gomock.Any(), "p").Return(post(), nil)
		s.EXPECT().GetUser(gomock.Any(), "A").Return(owner, nil)

		_, err := srv.GetPost(context.Background(), "p", "C")
		require.True(t, errors.Is(err, service.ErrForbidden))
	})

	t.Run("owner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s := storage.NewMockStorage(ctrl)
		srv := newTestService(s, mediamock.NewMockStore(ctrl))

		s.EXPECT().GetPost(gomock.Any(), "p").Return(post(), nil).Times(2)
		s.EXPECT().IncrementViews(gomock.Any(), "p").Return(uint64(4), nil)
		s.EXPECT().IncrementViews(gomock.Any(), "p").Return(uint64(5), nil)

		p, err := srv.GetPost(context.Background(), "p", "A")
		require.NoError(t, err)
		require.EqualValues(t, 4, p.Views)

		p, err = srv.GetPost(context.Background(), "p", "A")
		require.NoError(t, err)
		require.EqualValues(t, 5, p.Views)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s := storage.NewMockStorage(ctrl)
		srv := newTestService(s, mediamock.NewMockStore(ctrl))

		s.EXPECT().GetPost(gomock.Any(), "p").Return(nil, storageinterface.ErrNotFound)

		_, err := srv.GetPost(context.Background(), "p", "A")
		require.True(t, errors.Is(err, service.ErrPostNotFound))
	})

	t.Run("empty id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		srv := newTestService(storage.NewMockStorage(ctrl), mediamock.NewMockStore(ctrl))

		_, err := srv.GetPost(context.Background(), "", "A")
		require.True(t, errors.Is(err, service.ErrPostIDRequired))
	})

	t.Run("increment failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s := storage.NewMockStorage(ctrl)
		srv := newTestService(s, mediamock.NewMockStore(ctrl))

		s.EXPECT().GetPost(gomock.Any(), "p").Return(post(), nil)
		s.EXPECT().IncrementViews(gomock.Any(), "p").Return(uint64(0), context.Canceled)

		_, err := srv.GetPost(context.Background(), "p", "A")
		require.True(t, errors.Is(err, context.Canceled))
	})
}

func TestSrv_ToggleLike(t *testing.T) {
	owner := &entities.User{ID: "A", Followers: []string{"B"}}
	post := &entities.Post{ID: "p", Owner: "A", Visibility: entities.PublicVisibility, Likes: []string{"B"}}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := storage.NewMockStorage(ctrl)
	srv := newTestService(s, mediamock.NewMockStore(ctrl))

	gomock.InOrder(
		s.EXPECT().GetPost(gomock.Any(), "p").Return(post, nil),
		s.EXPECT().RemoveLike(gomock.Any(), "p", "D").Return(uint64(1), false, nil),
		s.EXPECT().GetUser(gomock.Any(), "A").Return(owner, nil),
		s.EXPECT().AddLike(gomock.Any(), "p", "D").Return(uint64(2), nil),

		s.EXPECT().GetPost(gomock.Any(), "p").Return(post, nil),
		s.EXPECT().RemoveLike(gomock.Any(), "p", "D").Return(uint64(1), true, nil),
	)

	r, err := srv.ToggleLike(context.Background(), "p", "D")
	require.NoError(t, err)
	require.Equal(t, &service.LikeResult{Liked: true, LikesCount: 2}, r)

	r, err = srv.ToggleLike(context.Background(), "p", "D")
	require.NoError(t, err)
	require.Equal(t, &service.LikeResult{Liked: false, LikesCount: 1}, r)
}

func TestSrv_ToggleLike_PrivatePost(t *testing.T) {
	owner := &entities.User{ID: "A", Followers: []string{"B"}}
	post := &entities.Post{ID: "p", Owner: "A", Visibility: entities.PrivateVisibility}

	tt := []struct {
		name    string
		viewer  string
		removed bool
		err     error
	}{
		{name: "follower", viewer: "B"},
		{name: "owner not following", viewer: "A", err: service.ErrForbidden},
		{name: "owner unlikes", viewer: "A", removed: true},
		{name: "stranger", viewer: "C", err: service.ErrForbidden},
		{name: "stranger unlikes", viewer: "C", removed: true},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			s := storage.NewMockStorage(ctrl)
			srv := newTestService(s, mediamock.NewMockStore(ctrl))

			s.EXPECT().GetPost(gomock.Any(), "p").Return(post, nil)
			s.EXPECT().RemoveLike(gomock.Any(), "p", tc.viewer).Return(uint64(0), tc.removed, nil)
			if !tc.removed {
				s.EXPECT().GetUser(gomock.Any(), "A").Return(owner, nil)
			}
			if !tc.removed && tc.err == nil {
				s.EXPECT().AddLike(gomock.Any(), "p", tc.viewer).Return(uint64(1), nil)
			}

			r, err := srv.ToggleLike(context.Background(), "p", tc.viewer)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err))
				return
			}

			require.NoError(t, err)
			require.Equal(t, !tc.removed, r.Liked)
		})
	}
}

func TestSrv_ToggleLike_Errors(t *testing.T) {
	t.Run("empty id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		srv := newTestService(storage.NewMockStorage(ctrl), mediamock.NewMockStore(ctrl))

		_, err := srv.ToggleLike(context.Background(), "", "A")
		require.True(t, errors.Is(err, service.ErrPostIDRequired))
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s := storage.NewMockStorage(ctrl)
		srv := newTestService(s, mediamock.NewMockStore(ctrl))

		s.EXPECT().GetPost(gomock.Any(), "p").Return(nil, storageinterface.ErrNotFound)

		_, err := srv.ToggleLike(context.Background(), "p", "A")
		require.True(t, errors.Is(err, service.ErrPostNotFound))
	})

	t.Run("deleted concurrently", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		s := storage.NewMockStorage(ctrl)
		srv := newTestService(s, mediamock.NewMockStore(ctrl))

		s.EXPECT().GetPost(gomock.Any(), "p").Return(&entities.Post{ID: "p", Owner: "A", Visibility: entities.PublicVisibility}, nil)
		s.EXPECT().RemoveLike(gomock.Any(), "p", "B").Return(uint64(0), false, nil)
		s.EXPECT().GetUser(gomock.Any(), "A").Return(&entities.User{ID: "A"}, nil)
		s.EXPECT().AddLike(gomock.Any(), "p", "B").Return(uint64(0), storageinterface.ErrNotFound)

		_, err := srv.ToggleLike(context.Background(), "p", "B")
		require.True(t, errors.Is(err, service.ErrPostNotFound))
	})
}
