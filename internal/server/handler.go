package server

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	"github.com/Decentr-net/mosaic/internal/api"
	"github.com/Decentr-net/mosaic/internal/entities"
	"github.com/Decentr-net/mosaic/internal/media"
	mm "github.com/Decentr-net/mosaic/internal/middleware"
	"github.com/Decentr-net/mosaic/internal/service"
)

// maxMemory is a part of multipart form kept in memory, the rest goes to temporary files.
const maxMemory = 32 * media.MiB

var errInvalidRequest = errors.New("invalid request")

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts Posts CreatePost
	//
	// Creates a post with an image or a reel. Images must be square jpeg or png up to 10 MiB,
	// reels are mp4 up to 50 MiB.
	//
	// ---
	// security:
	// - bearer: []
	// consumes:
	// - multipart/form-data
	// produces:
	// - application/json
	// parameters:
	// - name: media
	//   in: formData
	//   required: true
	//   type: file
	// - name: content
	//   in: formData
	//   required: false
	//   type: string
	// - name: visibility
	//   in: formData
	//   required: false
	//   type: string
	//   enum: [public, private]
	//   default: public
	// - name: tags
	//   description: comma separated or repeated
	//   in: formData
	//   required: false
	//   type: string
	// responses:
	//   '201':
	//     description: Post was created
	//     schema:
	//       "$ref": "#/definitions/CreatePostResponse"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '401':
	//     description: unauthorized
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: owner not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '413':
	//     description: media is too large
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '429':
	//     description: too many requests
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '502':
	//     description: media or post storage failed
	//     schema:
	//       "$ref": "#/definitions/Error"

	owner, _ := mm.ViewerFromContext(r.Context())

	req, err := extractCreatePostRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.WriteError(w, http.StatusRequestEntityTooLarge, media.ErrPayloadTooLarge.Error())
			return
		}

		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Owner = owner

	id, err := s.s.CreatePost(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, "failed to create post", err)
		return
	}

	api.WriteOK(w, http.StatusCreated, CreatePostResponse{ID: id})
}

func (s server) getPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/{id} Posts GetPost
	//
	// Returns the post and counts the view.
	//
	// ---
	// security:
	// - bearer: []
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: Post
	//     schema:
	//       "$ref": "#/definitions/Post"
	//   '403':
	//     description: post is not visible to requester
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: post not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	viewer, _ := mm.ViewerFromContext(r.Context())

	p, err := s.s.GetPost(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeServiceError(r.Context(), w, "failed to get post", err)
		return
	}

	api.WriteOK(w, http.StatusOK, toAPIPost(p, viewer))
}

func (s server) toggleLike(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/like Posts ToggleLike
	//
	// Likes the post or removes requester's like.
	//
	// ---
	// security:
	// - bearer: []
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: New like state
	//     schema:
	//       "$ref": "#/definitions/LikeResponse"
	//   '403':
	//     description: requester can not interact with the post
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: post not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '429':
	//     description: too many requests
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	viewer, _ := mm.ViewerFromContext(r.Context())

	res, err := s.s.ToggleLike(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeServiceError(r.Context(), w, "failed to toggle like", err)
		return
	}

	api.WriteOK(w, http.StatusOK, LikeResponse{
		Liked:      res.Liked,
		LikesCount: res.LikesCount,
	})
}

func (s server) listImages(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /users/{owner}/images Posts ListImages
	//
	// Returns owner's image posts, newest first.
	//
	// ---
	// security:
	// - bearer: []
	// produces:
	// - application/json
	// parameters:
	// - name: owner
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: Posts
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"
	//   '403':
	//     description: owner's account is private
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: owner not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	s.listByCategory(w, r, entities.ImageCategory)
}

func (s server) listReels(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /users/{owner}/reels Posts ListReels
	//
	// Returns owner's reel posts, newest first.
	//
	// ---
	// security:
	// - bearer: []
	// produces:
	// - application/json
	// parameters:
	// - name: owner
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: Posts
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"
	//   '403':
	//     description: owner's account is private
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: owner not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	s.listByCategory(w, r, entities.ReelCategory)
}

func (s server) listByCategory(w http.ResponseWriter, r *http.Request, c entities.MediaCategory) {
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		api.WriteError(w, http.StatusBadRequest, "invalid owner")
		return
	}

	viewer, _ := mm.ViewerFromContext(r.Context())

	posts, err := s.s.ListByCategory(r.Context(), owner, viewer, c)
	if err != nil {
		writeServiceError(r.Context(), w, "failed to list posts", err)
		return
	}

	out := ListPostsResponse{Posts: make([]Post, len(posts))}
	for i, v := range posts {
		out.Posts[i] = toAPIPost(v, viewer)
	}

	api.WriteOK(w, http.StatusOK, out)
}

func extractCreatePostRequest(r *http.Request) (*service.CreatePostRequest, error) {
	err := r.ParseMultipartForm(maxMemory)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		// a request without a form carries neither fields nor media, the service decides on it.
		return &service.CreatePostRequest{
			Visibility: entities.PublicVisibility,
			Tags:       []string{},
		}, nil
	case err != nil:
		return nil, fmt.Errorf("%w: failed to parse form: %w", errInvalidRequest, err)
	}

	visibility, err := entities.ParseVisibility(r.FormValue("visibility"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidRequest, err.Error())
	}

	out := service.CreatePostRequest{
		Content:    r.FormValue("content"),
		Visibility: visibility,
		Tags:       extractTags(r.MultipartForm.Value["tags"]),
	}

	f, h, err := r.FormFile("media")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return &out, nil
	case err != nil:
		return nil, fmt.Errorf("%w: failed to read media: %w", errInvalidRequest, err)
	}
	defer f.Close() // nolint:errcheck

	out.Media, err = readUpload(f, h)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read media: %w", errInvalidRequest, err)
	}

	return &out, nil
}

func readUpload(f multipart.File, h *multipart.FileHeader) (*media.Upload, error) {
	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &media.Upload{
		MimeType: h.Header.Get("Content-Type"),
		Size:     h.Size,
		Data:     data,
		Name:     h.Filename,
	}, nil
}

func extractTags(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}

	return out
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, service.ErrOwnerNotFound),
		errors.Is(err, service.ErrPostNotFound):
		api.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoMediaProvided),
		errors.Is(err, service.ErrPostIDRequired),
		errors.Is(err, media.ErrUnsupportedFormat),
		errors.Is(err, media.ErrAspectRatioViolation):
		api.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrPayloadTooLarge):
		api.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrForbidden):
		api.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		api.GetLogger(ctx).WithError(err).Error(message)
		api.WriteError(w, http.StatusBadGateway, service.ErrStorageFailure.Error())
	default:
		api.WriteInternalErrorf(ctx, w, "%s: %s", message, err.Error())
	}
}

func toAPIPost(p *entities.Post, viewer string) Post {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return Post{
		ID:            p.ID,
		Owner:         p.Owner,
		Content:       p.Content,
		MediaURL:      p.MediaURL,
		MediaCategory: p.MediaCategory,
		Visibility:    p.Visibility,
		Tags:          tags,
		Views:         p.Views,
		LikesCount:    uint64(len(p.Likes)),
		Liked:         p.LikedBy(viewer),
		CreatedAt:     p.CreatedAt.Unix(),
	}
}
